package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/ledger"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const variationOptionsIndex = "ux_variations_product_options"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry ledger.Entry) (*models.InventoryAdjustment, error)
}

type aggregateRecomputer interface {
	RecomputeAggregates(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error
}

// Service exposes catalog reads and variation creation.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateVariation(ctx context.Context, input CreateVariationInput) (*models.Variation, error)
}

type CreateVariationInput struct {
	ProductID     uuid.UUID        `json:"-"`
	OptionIDs     []uuid.UUID      `json:"option_ids" validate:"required,min=1,dive,required"`
	SKU           *string          `json:"sku,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Quantity      int              `json:"quantity" validate:"gte=0"`
	ActorID       *uuid.UUID       `json:"-"`
}

type service struct {
	tx         txRunner
	repo       *Repository
	ledger     ledgerRecorder
	aggregates aggregateRecomputer
}

func NewService(tx txRunner, repo *Repository, ledger ledgerRecorder, aggregates aggregateRecomputer) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if aggregates == nil {
		return nil, fmt.Errorf("aggregate recomputer required")
	}
	return &service{tx: tx, repo: repo, ledger: ledger, aggregates: aggregates}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindWithVariations(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) CreateVariation(ctx context.Context, input CreateVariationInput) (*models.Variation, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}
	if input.Price != nil && input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	options := dbtypes.NewOptionSet(input.OptionIDs...)
	if options.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one option is required")
	}

	var created *models.Variation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindWithVariations(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if err := validateOptions(product, options); err != nil {
			return err
		}
		// The first variation takes over the product's quantity, so plain stock must be zeroed first.
		if len(product.Variations) == 0 && product.Quantity > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product has plain stock, adjust it to zero before adding variations").WithDetails(map[string]any{
				"product_id": product.ID,
				"quantity":   product.Quantity,
			})
		}

		variation := &models.Variation{
			ProductID:     product.ID,
			OptionIDs:     options,
			SKU:           trimmed(input.SKU),
			Price:         input.Price,
			OriginalPrice: input.OriginalPrice,
			Quantity:      input.Quantity,
		}
		if err := repo.CreateVariation(ctx, variation); err != nil {
			if db.IsUniqueViolation(err, variationOptionsIndex) {
				return pkgerrors.New(pkgerrors.CodeConflict, "a variation with these options already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create variation")
		}

		if variation.Quantity > 0 {
			if _, err := s.ledger.Record(ctx, tx, ledger.Entry{
				ProductID:      product.ID,
				VariationID:    &variation.ID,
				ActorID:        input.ActorID,
				QuantityBefore: 0,
				QuantityAfter:  variation.Quantity,
				Type:           enums.AdjustmentTypeSystem,
				Reason:         "variation created",
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record opening stock")
			}
		}
		if err := s.aggregates.RecomputeAggregates(ctx, tx, product.ID); err != nil {
			return err
		}
		created = variation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// validateOptions requires every option to belong to one of the product's axes, one option per axis.
func validateOptions(product *models.Product, options dbtypes.OptionSet) error {
	axisOf := map[uuid.UUID]uuid.UUID{}
	for _, axis := range product.Axes {
		for _, option := range axis.Options {
			axisOf[option.ID] = axis.ID
		}
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range options {
		axisID, ok := axisOf[id]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "option does not belong to product").WithDetails(map[string]any{
				"option_id": id,
			})
		}
		if seen[axisID] {
			return pkgerrors.New(pkgerrors.CodeValidation, "only one option per axis is allowed").WithDetails(map[string]any{
				"axis_id": axisID,
			})
		}
		seen[axisID] = true
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
