package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn func(ctx context.Context, row *models.InventoryAdjustment) error
	listFn   func(ctx context.Context, q listQuery) ([]models.InventoryAdjustment, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, row *models.InventoryAdjustment) error {
	if f.createFn != nil {
		return f.createFn(ctx, row)
	}
	return nil
}

func (f *fakeRepository) List(ctx context.Context, q listQuery) ([]models.InventoryAdjustment, error) {
	if f.listFn != nil {
		return f.listFn(ctx, q)
	}
	return nil, nil
}

func (f *fakeRepository) ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.InventoryAdjustment, error) {
	return nil, nil
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}

func TestService_RecordComputesAdjustment(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	var created *models.InventoryAdjustment
	repo.createFn = func(ctx context.Context, row *models.InventoryAdjustment) error {
		created = row
		return nil
	}

	orderID := uuid.New()
	got, err := svc.Record(context.Background(), nil, Entry{
		ProductID:      uuid.New(),
		QuantityBefore: 10,
		QuantityAfter:  7,
		Type:           enums.AdjustmentTypeOrder,
		Reason:         "  order placed ",
		ReferenceID:    &orderID,
	})
	require.NoError(t, err)
	require.Same(t, created, got)
	assert.Equal(t, -3, got.Adjustment)
	assert.Equal(t, "order placed", got.Reason)
	assert.Equal(t, orderID, *got.ReferenceID)
	assert.Nil(t, got.VariationID)
}

func TestService_RecordValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	require.NoError(t, err)

	tests := []struct {
		name  string
		entry Entry
	}{
		{
			name:  "missing product",
			entry: Entry{QuantityBefore: 1, QuantityAfter: 2, Type: enums.AdjustmentTypeManual},
		},
		{
			name:  "negative before",
			entry: Entry{ProductID: uuid.New(), QuantityBefore: -1, QuantityAfter: 2, Type: enums.AdjustmentTypeManual},
		},
		{
			name:  "negative after",
			entry: Entry{ProductID: uuid.New(), QuantityBefore: 1, QuantityAfter: -2, Type: enums.AdjustmentTypeManual},
		},
		{
			name:  "invalid type",
			entry: Entry{ProductID: uuid.New(), QuantityBefore: 1, QuantityAfter: 2, Type: enums.AdjustmentType("restock")},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), nil, tc.entry)
			assert.Error(t, err)
		})
	}
}

func TestService_RecordAllowsNoOpRow(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	require.NoError(t, err)

	row, err := svc.Record(context.Background(), nil, Entry{
		ProductID:      uuid.New(),
		QuantityBefore: 0,
		QuantityAfter:  0,
		Type:           enums.AdjustmentTypeManual,
	})
	require.NoError(t, err)
	assert.Zero(t, row.Adjustment)
}

func TestService_RecordRepoError(t *testing.T) {
	expectedErr := errors.New("boom")
	svc, err := NewService(&fakeRepository{
		createFn: func(ctx context.Context, row *models.InventoryAdjustment) error { return expectedErr },
	})
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), nil, Entry{
		ProductID:      uuid.New(),
		QuantityBefore: 3,
		QuantityAfter:  4,
		Type:           enums.AdjustmentTypeSystem,
	})
	assert.ErrorIs(t, err, expectedErr)
}

func TestService_HistoryRejectsBadCursor(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	require.NoError(t, err)

	_, err = svc.History(context.Background(), HistoryParams{
		ProductID: uuid.New(),
		Params:    pagination.Params{Cursor: "%%%"},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.History(context.Background(), HistoryParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestService_HistoryAgainstDatabase(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	product := dbtest.SeedProduct(t, conn, "Mug", 12, 10)
	other := dbtest.SeedProduct(t, conn, "Plate", 8, 4)
	variationID := uuid.New()

	quantities := []int{10, 8, 5}
	for i := 1; i < len(quantities); i++ {
		_, err := svc.Record(ctx, nil, Entry{
			ProductID:      product.ID,
			QuantityBefore: quantities[i-1],
			QuantityAfter:  quantities[i],
			Type:           enums.AdjustmentTypeManual,
			Reason:         "recount",
		})
		require.NoError(t, err)
	}
	_, err = svc.Record(ctx, nil, Entry{
		ProductID:      product.ID,
		VariationID:    &variationID,
		QuantityBefore: 3,
		QuantityAfter:  1,
		Type:           enums.AdjustmentTypeOrder,
	})
	require.NoError(t, err)
	_, err = svc.Record(ctx, nil, Entry{ProductID: other.ID, QuantityBefore: 4, QuantityAfter: 2, Type: enums.AdjustmentTypeOrder})
	require.NoError(t, err)

	page, err := svc.History(ctx, HistoryParams{ProductID: product.ID})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Empty(t, page.Cursor)
	for _, item := range page.Items {
		assert.Equal(t, product.ID, item.ProductID)
		assert.Equal(t, item.QuantityAfter-item.QuantityBefore, item.Adjustment)
	}

	scoped, err := svc.History(ctx, HistoryParams{ProductID: product.ID, VariationID: &variationID})
	require.NoError(t, err)
	require.Len(t, scoped.Items, 1)
	assert.Equal(t, -2, scoped.Items[0].Adjustment)

	limited, err := svc.History(ctx, HistoryParams{ProductID: product.ID, Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, limited.Items, 2)
	assert.NotEmpty(t, limited.Cursor)
}
