package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// SeedProduct inserts a published product without variations.
func SeedProduct(t testing.TB, conn *gorm.DB, title string, price int64, quantity int) *models.Product {
	t.Helper()
	product := &models.Product{
		Title:    title,
		Price:    decimal.NewFromInt(price),
		Quantity: quantity,
		Status:   enums.ProductStatusPublished,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// SeedAxis appends an axis after the product's existing ones, with one option
// per name, and returns the options in order.
func SeedAxis(t testing.TB, conn *gorm.DB, productID uuid.UUID, name string, options ...string) []models.VariationOption {
	t.Helper()
	var position int64
	if err := conn.Model(&models.VariationAxis{}).Where("product_id = ?", productID).Count(&position).Error; err != nil {
		t.Fatalf("count axes: %v", err)
	}
	axis := &models.VariationAxis{ProductID: productID, Name: name, Position: int(position)}
	for i, option := range options {
		axis.Options = append(axis.Options, models.VariationOption{Name: option, Position: i})
	}
	if err := conn.Create(axis).Error; err != nil {
		t.Fatalf("seed axis: %v", err)
	}
	return axis.Options
}

// SeedVariation inserts a variation. A nil price inherits the product price.
func SeedVariation(t testing.TB, conn *gorm.DB, productID uuid.UUID, price *int64, quantity int, optionIDs ...uuid.UUID) *models.Variation {
	t.Helper()
	variation := &models.Variation{
		ProductID: productID,
		OptionIDs: dbtypes.NewOptionSet(optionIDs...),
		Quantity:  quantity,
	}
	if price != nil {
		p := decimal.NewFromInt(*price)
		variation.Price = &p
	}
	if err := conn.Create(variation).Error; err != nil {
		t.Fatalf("seed variation: %v", err)
	}
	return variation
}

// Price is a convenience for SeedVariation's optional price.
func Price(v int64) *int64 {
	return &v
}
