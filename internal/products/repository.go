package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository reads catalog rows together with the variation data the resolver needs.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) withVariations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Variations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Axes", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Axes.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
}

// FindWithVariations loads a product with its variations, axes and options.
func (r *Repository) FindWithVariations(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.withVariations(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindManyWithVariations loads several products keyed by id. Missing ids are absent from the map.
func (r *Repository) FindManyWithVariations(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.withVariations(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// Create inserts a product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// CreateVariation inserts a variation row.
func (r *Repository) CreateVariation(ctx context.Context, variation *models.Variation) error {
	return r.db.WithContext(ctx).Create(variation).Error
}
