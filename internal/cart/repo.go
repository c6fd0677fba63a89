package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository stores cart lines for both authenticated and anonymous owners.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) LineRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) ListByOwner(ctx context.Context, ownerKey string) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := r.db.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		Order("created_at ASC").Order("id ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// Find returns gorm.ErrRecordNotFound when the owner has no such line.
func (r *Repository) Find(ctx context.Context, ownerKey string, productID uuid.UUID, optionsKey string) (*models.CartLine, error) {
	var line models.CartLine
	if err := r.db.WithContext(ctx).
		Where("owner_key = ? AND product_id = ? AND options_key = ?", ownerKey, productID, optionsKey).
		Take(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

// Upsert inserts new lines and overwrites quantity and price on existing ones.
func (r *Repository) Upsert(ctx context.Context, line *models.CartLine) error {
	if line.ID == uuid.Nil {
		return r.db.WithContext(ctx).Create(line).Error
	}
	now := time.Now().UTC()
	line.UpdatedAt = now
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", line.ID).
		UpdateColumns(map[string]any{
			"quantity":   line.Quantity,
			"price":      line.Price,
			"updated_at": now,
		}).Error
}

func (r *Repository) Delete(ctx context.Context, ownerKey string, productID uuid.UUID, optionsKey string) error {
	return r.db.WithContext(ctx).
		Where("owner_key = ? AND product_id = ? AND options_key = ?", ownerKey, productID, optionsKey).
		Delete(&models.CartLine{}).Error
}

func (r *Repository) DeleteByOwner(ctx context.Context, ownerKey string) error {
	return r.db.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		Delete(&models.CartLine{}).Error
}

// DeleteAnonymousBefore drops session-owned lines untouched since cutoff.
func (r *Repository) DeleteAnonymousBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("session_token IS NOT NULL AND updated_at < ?", cutoff).
		Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}
