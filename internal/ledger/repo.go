package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository persists stock ledger rows. There is no update or delete path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.InventoryAdjustment) error
	List(ctx context.Context, q listQuery) ([]models.InventoryAdjustment, error)
	ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.InventoryAdjustment, error)
}

type listQuery struct {
	productID   uuid.UUID
	variationID *uuid.UUID
	limit       int
	cursor      *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.InventoryAdjustment) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.InventoryAdjustment, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InventoryAdjustment{}).
		Where("product_id = ?", q.productID)
	if q.variationID != nil {
		query = query.Where("variation_id = ?", *q.variationID)
	}
	if q.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.cursor.CreatedAt, q.cursor.CreatedAt, q.cursor.ID)
	}

	var rows []models.InventoryAdjustment
	if err := query.Order("created_at DESC").Order("id DESC").Limit(q.limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.InventoryAdjustment, error) {
	var rows []models.InventoryAdjustment
	if err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
