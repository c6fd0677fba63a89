package inventory

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Target names the row whose stock moves: a variation when VariationID is set, else the product.
type Target struct {
	ProductID   uuid.UUID  `json:"product_id"`
	VariationID *uuid.UUID `json:"variation_id,omitempty"`
}

func ProductTarget(productID uuid.UUID) Target {
	return Target{ProductID: productID}
}

func VariationTarget(productID, variationID uuid.UUID) Target {
	return Target{ProductID: productID, VariationID: &variationID}
}

func (t Target) IsVariation() bool {
	return t.VariationID != nil && *t.VariationID != uuid.Nil
}

// Key identifies the target for de-duplication keys and logs.
func (t Target) Key() string {
	if t.IsVariation() {
		return "variation:" + t.VariationID.String()
	}
	return "product:" + t.ProductID.String()
}

func (t Target) model() any {
	if t.IsVariation() {
		return &models.Variation{}
	}
	return &models.Product{}
}

func (t Target) rowID() uuid.UUID {
	if t.IsVariation() {
		return *t.VariationID
	}
	return t.ProductID
}

func targetOf(line models.OrderLine) Target {
	if line.VariationID != nil {
		return VariationTarget(line.ProductID, *line.VariationID)
	}
	return ProductTarget(line.ProductID)
}

// StockLevel is a target's quantity at a point in time.
type StockLevel struct {
	Target
	ProductTitle string `json:"product_title"`
	Quantity     int    `json:"quantity"`
}
