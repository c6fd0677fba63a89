package variations

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Selection is the stock target a buyer picked: the variation when the product
// has variations, otherwise the product itself.
type Selection struct {
	Product   *models.Product
	Variation *models.Variation
	Options   dbtypes.OptionSet
}

// Select resolves optionIDs into a purchasable target. Products with
// variations require an exact match; products without variations require an
// empty selection.
func Select(product *models.Product, optionIDs dbtypes.OptionSet) (Selection, error) {
	options := optionIDs.Normalize()
	if !product.HasVariations() {
		if !options.IsEmpty() {
			return Selection{}, variationNotFound(product.ID, options)
		}
		return Selection{Product: product, Options: options}, nil
	}
	variation := Resolve(product, options)
	if variation == nil {
		return Selection{}, variationNotFound(product.ID, options)
	}
	return Selection{Product: product, Variation: variation, Options: options}, nil
}

func (s Selection) Price() decimal.Decimal {
	if s.Variation != nil && s.Variation.Price != nil {
		return *s.Variation.Price
	}
	return s.Product.Price
}

func (s Selection) Quantity() int {
	if s.Variation != nil {
		return s.Variation.Quantity
	}
	return s.Product.Quantity
}

func (s Selection) VariationID() *uuid.UUID {
	if s.Variation == nil {
		return nil
	}
	id := s.Variation.ID
	return &id
}

func (s Selection) Labels() []models.OptionLabel {
	return Labels(s.Product, s.Options)
}

func variationNotFound(productID uuid.UUID, options dbtypes.OptionSet) error {
	return pkgerrors.New(pkgerrors.CodeVariationNotFound, "no variation matches the selected options").
		WithDetails(map[string]any{"product_id": productID, "option_ids": options})
}
