package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// LineRepository defines the persistence surface required by the cart service.
type LineRepository interface {
	WithTx(tx *gorm.DB) LineRepository
	ListByOwner(ctx context.Context, ownerKey string) ([]models.CartLine, error)
	Find(ctx context.Context, ownerKey string, productID uuid.UUID, optionsKey string) (*models.CartLine, error)
	Upsert(ctx context.Context, line *models.CartLine) error
	Delete(ctx context.Context, ownerKey string, productID uuid.UUID, optionsKey string) error
	DeleteByOwner(ctx context.Context, ownerKey string) error
	DeleteAnonymousBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type productLoader interface {
	FindWithVariations(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindManyWithVariations(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}
