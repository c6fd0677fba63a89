// Package variations maps a product plus a selected option set onto the
// purchasable variant and its effective price, quantity and labels.
package variations

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Resolve returns the first variation of product whose option set equals
// optionIDs, or nil when none matches. Both sides are normalized first so the
// order of ids never matters.
func Resolve(product *models.Product, optionIDs dbtypes.OptionSet) *models.Variation {
	if product == nil {
		return nil
	}
	want := optionIDs.Key()
	for i := range product.Variations {
		if product.Variations[i].OptionIDs.Key() == want {
			return &product.Variations[i]
		}
	}
	return nil
}

// PriceFor is the resolved variation price, falling back to the product price.
func PriceFor(product *models.Product, optionIDs dbtypes.OptionSet) decimal.Decimal {
	if variation := Resolve(product, optionIDs); variation != nil && variation.Price != nil {
		return *variation.Price
	}
	return product.Price
}

// QuantityFor is the resolved variation quantity, falling back to the product quantity.
func QuantityFor(product *models.Product, optionIDs dbtypes.OptionSet) int {
	if variation := Resolve(product, optionIDs); variation != nil {
		return variation.Quantity
	}
	return product.Quantity
}

// Labels returns display names for the selected options, ordered by axis
// position. Ids that do not belong to the product are skipped.
func Labels(product *models.Product, optionIDs dbtypes.OptionSet) []models.OptionLabel {
	if product == nil || len(optionIDs) == 0 {
		return nil
	}
	labels := make([]models.OptionLabel, 0, len(optionIDs))
	for _, axis := range sortedAxes(product.Axes) {
		for _, option := range axis.Options {
			if optionIDs.Contains(option.ID) {
				labels = append(labels, models.OptionLabel{
					AxisID:   axis.ID,
					Axis:     axis.Name,
					OptionID: option.ID,
					Option:   option.Name,
				})
			}
		}
	}
	return labels
}

// FindByID returns the variation of product with the given id, or a
// VARIATION_NOT_FOUND error when it belongs to another product.
func FindByID(product *models.Product, variationID uuid.UUID) (*models.Variation, error) {
	for i := range product.Variations {
		if product.Variations[i].ID == variationID {
			return &product.Variations[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeVariationNotFound, "variation does not belong to product").
		WithDetails(map[string]any{"product_id": product.ID, "variation_id": variationID})
}

func sortedAxes(axes []models.VariationAxis) []models.VariationAxis {
	out := make([]models.VariationAxis, len(axes))
	copy(out, axes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
