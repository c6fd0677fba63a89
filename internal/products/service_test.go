package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/ledger"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	stock, err := inventory.NewService(inventory.ServiceParams{
		DB:                client,
		Repo:              inventory.NewRepository(conn),
		Ledger:            ledgerSvc,
		LowStockThreshold: 5,
	})
	require.NoError(t, err)
	svc, err := NewService(client, NewRepository(conn), ledgerSvc, stock)
	require.NoError(t, err)
	return svc, conn
}

func TestCreateVariationRecordsOpeningStock(t *testing.T) {
	svc, conn := newService(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, conn, "Jacket", 200, 0)
	sizes := dbtest.SeedAxis(t, conn, product.ID, "size", "S", "M")
	colors := dbtest.SeedAxis(t, conn, product.ID, "color", "black")
	price := decimal.NewFromInt(180)

	variation, err := svc.CreateVariation(ctx, CreateVariationInput{
		ProductID: product.ID,
		OptionIDs: []uuid.UUID{colors[0].ID, sizes[1].ID},
		Price:     &price,
		Quantity:  6,
	})
	require.NoError(t, err)
	assert.Len(t, variation.OptionIDs, 2)
	assert.NotEmpty(t, variation.OptionsKey)

	got, err := svc.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Quantity)
	assert.Equal(t, "180", got.Price.String())
	require.Len(t, got.Variations, 1)

	var rows []models.InventoryAdjustment
	require.NoError(t, conn.Where("product_id = ?", product.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].QuantityBefore)
	assert.Equal(t, 6, rows[0].QuantityAfter)
}

func TestCreateVariationRejectsDuplicateOptionSetInAnyOrder(t *testing.T) {
	svc, conn := newService(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, conn, "Boot", 90, 0)
	sizes := dbtest.SeedAxis(t, conn, product.ID, "size", "42")
	colors := dbtest.SeedAxis(t, conn, product.ID, "color", "brown")

	_, err := svc.CreateVariation(ctx, CreateVariationInput{
		ProductID: product.ID,
		OptionIDs: []uuid.UUID{sizes[0].ID, colors[0].ID},
		Quantity:  1,
	})
	require.NoError(t, err)

	_, err = svc.CreateVariation(ctx, CreateVariationInput{
		ProductID: product.ID,
		OptionIDs: []uuid.UUID{colors[0].ID, sizes[0].ID},
		Quantity:  3,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	var count int64
	require.NoError(t, conn.Model(&models.Variation{}).Where("product_id = ?", product.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateVariationRequiresPlainStockToBeZeroed(t *testing.T) {
	svc, conn := newService(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, conn, "Hoodie", 60, 10)
	sizes := dbtest.SeedAxis(t, conn, product.ID, "size", "S", "M")

	_, err := svc.CreateVariation(ctx, CreateVariationInput{
		ProductID: product.ID,
		OptionIDs: []uuid.UUID{sizes[0].ID},
		Quantity:  3,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	got, err := svc.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Quantity)
	assert.Empty(t, got.Variations)

	var count int64
	require.NoError(t, conn.Model(&models.InventoryAdjustment{}).Where("product_id = ?", product.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateVariationAddsToExistingVariations(t *testing.T) {
	svc, conn := newService(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, conn, "Beanie", 15, 0)
	colors := dbtest.SeedAxis(t, conn, product.ID, "color", "red", "blue")

	_, err := svc.CreateVariation(ctx, CreateVariationInput{ProductID: product.ID, OptionIDs: []uuid.UUID{colors[0].ID}, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.CreateVariation(ctx, CreateVariationInput{ProductID: product.ID, OptionIDs: []uuid.UUID{colors[1].ID}, Quantity: 5})
	require.NoError(t, err)

	got, err := svc.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity)
	assert.Len(t, got.Variations, 2)
}

func TestCreateVariationValidatesOptions(t *testing.T) {
	svc, conn := newService(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, conn, "Cap", 25, 0)
	sizes := dbtest.SeedAxis(t, conn, product.ID, "size", "S", "L")
	other := dbtest.SeedProduct(t, conn, "Scarf", 30, 0)
	foreign := dbtest.SeedAxis(t, conn, other.ID, "color", "grey")

	tests := []struct {
		name string
		in   CreateVariationInput
		code pkgerrors.Code
	}{
		{"no options", CreateVariationInput{ProductID: product.ID}, pkgerrors.CodeValidation},
		{"foreign option", CreateVariationInput{ProductID: product.ID, OptionIDs: []uuid.UUID{foreign[0].ID}}, pkgerrors.CodeValidation},
		{"two options on one axis", CreateVariationInput{ProductID: product.ID, OptionIDs: []uuid.UUID{sizes[0].ID, sizes[1].ID}}, pkgerrors.CodeValidation},
		{"negative quantity", CreateVariationInput{ProductID: product.ID, OptionIDs: []uuid.UUID{sizes[0].ID}, Quantity: -1}, pkgerrors.CodeValidation},
		{"missing product", CreateVariationInput{ProductID: uuid.New(), OptionIDs: []uuid.UUID{sizes[0].ID}}, pkgerrors.CodeNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateVariation(ctx, tc.in)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestGetMissingProduct(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
