package inventory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/ledger"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type fakeRejections struct {
	mu    sync.Mutex
	kinds []string
}

func (f *fakeRejections) StockRejected(target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, target)
}

type harness struct {
	svc     Service
	client  *db.Client
	conn    *gorm.DB
	metrics *fakeRejections
}

func newHarness(t *testing.T) harness {
	t.Helper()
	client, conn := dbtest.Client(t)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	metrics := &fakeRejections{}
	svc, err := NewService(ServiceParams{
		DB:                client,
		Repo:              NewRepository(conn),
		Ledger:            ledgerSvc,
		LowStockThreshold: 5,
		Metrics:           metrics,
	})
	require.NoError(t, err)
	return harness{svc: svc, client: client, conn: conn, metrics: metrics}
}

func (h harness) product(t *testing.T, id uuid.UUID) models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, h.conn.First(&p, "id = ?", id).Error)
	return p
}

func (h harness) variation(t *testing.T, id uuid.UUID) models.Variation {
	t.Helper()
	var v models.Variation
	require.NoError(t, h.conn.First(&v, "id = ?", id).Error)
	return v
}

func (h harness) ledgerRows(t *testing.T, productID uuid.UUID) []models.InventoryAdjustment {
	t.Helper()
	var rows []models.InventoryAdjustment
	require.NoError(t, h.conn.Where("product_id = ?", productID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)

	client, conn := dbtest.Client(t)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	_, err = NewService(ServiceParams{DB: client, Repo: NewRepository(conn), Ledger: ledgerSvc})
	require.Error(t, err, "threshold must be positive")
}

func TestDecreaseStockForOrderWritesLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, h.conn, "Lamp", 100, 5)
	orderID := uuid.New()

	var levels []StockLevel
	err := h.client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		levels, err = h.svc.DecreaseStockForOrder(ctx, tx, orderID, []models.OrderLine{
			{ProductID: product.ID, ProductTitle: product.Title, Quantity: 3},
		})
		return err
	})
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, 2, levels[0].Quantity)
	assert.Equal(t, "Lamp", levels[0].ProductTitle)

	got := h.product(t, product.ID)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, 3, got.SoldCount)

	rows := h.ledgerRows(t, product.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].QuantityBefore)
	assert.Equal(t, 2, rows[0].QuantityAfter)
	assert.Equal(t, -3, rows[0].Adjustment)
	assert.Equal(t, enums.AdjustmentTypeOrder, rows[0].Type)
	require.NotNil(t, rows[0].ReferenceID)
	assert.Equal(t, orderID, *rows[0].ReferenceID)
}

func TestDecreaseStockForOrderRejectsWithoutClamping(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := dbtest.SeedProduct(t, h.conn, "Chair", 40, 4)
	second := dbtest.SeedProduct(t, h.conn, "Table", 90, 1)

	err := h.client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := h.svc.DecreaseStockForOrder(ctx, tx, uuid.New(), []models.OrderLine{
			{ProductID: first.ID, ProductTitle: first.Title, Quantity: 2},
			{ProductID: second.ID, ProductTitle: second.Title, Quantity: 2},
		})
		return err
	})
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	typed := pkgerrors.As(err)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	shortfalls, ok := details["shortfalls"].([]Shortfall)
	require.True(t, ok)
	require.Len(t, shortfalls, 1)
	assert.Equal(t, second.ID, shortfalls[0].ProductID)
	assert.Equal(t, 1, shortfalls[0].Available)

	// The first line's decrement rolled back with the transaction.
	assert.Equal(t, 4, h.product(t, first.ID).Quantity)
	assert.Equal(t, 1, h.product(t, second.ID).Quantity)
	assert.Empty(t, h.ledgerRows(t, first.ID))
	assert.Equal(t, []string{"product"}, h.metrics.kinds)
}

func TestDecreaseStockForVariationRecomputesProduct(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, h.conn, "Shirt", 100, 0)
	sizes := dbtest.SeedAxis(t, h.conn, product.ID, "size", "M", "L")
	medium := dbtest.SeedVariation(t, h.conn, product.ID, dbtest.Price(150), 2, sizes[0].ID)
	dbtest.SeedVariation(t, h.conn, product.ID, dbtest.Price(120), 4, sizes[1].ID)

	err := h.client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := h.svc.DecreaseStockForOrder(ctx, tx, uuid.New(), []models.OrderLine{
			{ProductID: product.ID, VariationID: &medium.ID, ProductTitle: product.Title, Quantity: 2},
		})
		return err
	})
	require.NoError(t, err)

	v := h.variation(t, medium.ID)
	assert.Equal(t, 0, v.Quantity)
	assert.Equal(t, 2, v.SoldCount)

	p := h.product(t, product.ID)
	assert.Equal(t, 4, p.Quantity)
	assert.Equal(t, "120", p.Price.String())
	assert.Equal(t, 0, p.SoldCount)

	rows := h.ledgerRows(t, product.ID)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].VariationID)
	assert.Equal(t, medium.ID, *rows[0].VariationID)
}

func TestIncreaseStockForCancelledOrderRestores(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, h.conn, "Vase", 30, 5)
	orderID := uuid.New()
	lines := []models.OrderLine{{ProductID: product.ID, ProductTitle: product.Title, Quantity: 3}}

	require.NoError(t, h.client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := h.svc.DecreaseStockForOrder(ctx, tx, orderID, lines)
		return err
	}))
	require.NoError(t, h.client.WithTx(ctx, func(tx *gorm.DB) error {
		return h.svc.IncreaseStockForCancelledOrder(ctx, tx, orderID, lines)
	}))

	p := h.product(t, product.ID)
	assert.Equal(t, 5, p.Quantity)
	assert.Equal(t, 0, p.SoldCount)

	rows := h.ledgerRows(t, product.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, enums.AdjustmentTypeOrderCancel, rows[1].Type)
	assert.Equal(t, 2, rows[1].QuantityBefore)
	assert.Equal(t, 5, rows[1].QuantityAfter)
}

func TestIncreaseStockFloorsSoldCount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, h.conn, "Rug", 60, 1)
	require.NoError(t, h.conn.Model(&models.Product{}).Where("id = ?", product.ID).UpdateColumn("sold_count", 1).Error)

	require.NoError(t, h.client.WithTx(ctx, func(tx *gorm.DB) error {
		return h.svc.IncreaseStockForCancelledOrder(ctx, tx, uuid.New(), []models.OrderLine{
			{ProductID: product.ID, Quantity: 4},
		})
	}))

	p := h.product(t, product.ID)
	assert.Equal(t, 5, p.Quantity)
	assert.Equal(t, 0, p.SoldCount)
}

func TestAdjustStockClampsAndNudgesSoldCount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, h.conn, "Kettle", 45, 3)
	actor := uuid.New()

	res, err := h.svc.AdjustStock(ctx, AdjustInput{ProductID: product.ID, Delta: -10, Reason: "damaged", ActorID: &actor})
	require.NoError(t, err)
	assert.Equal(t, 3, res.QuantityBefore)
	assert.Equal(t, 0, res.QuantityAfter)
	assert.Equal(t, -3, res.Applied)
	assert.Equal(t, 3, res.SoldCount)

	res, err = h.svc.AdjustStock(ctx, AdjustInput{ProductID: product.ID, Delta: 7, Reason: "restock", Type: enums.AdjustmentTypeSystem})
	require.NoError(t, err)
	assert.Equal(t, 7, res.QuantityAfter)
	assert.Equal(t, 0, res.SoldCount)

	p := h.product(t, product.ID)
	assert.Equal(t, 7, p.Quantity)
	assert.Equal(t, 0, p.SoldCount)

	rows := h.ledgerRows(t, product.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, -3, rows[0].Adjustment)
	require.NotNil(t, rows[0].ActorID)
	assert.Equal(t, actor, *rows[0].ActorID)
	assert.Equal(t, enums.AdjustmentTypeSystem, rows[1].Type)
}

func TestAdjustStockVariationRecomputesAggregates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, h.conn, "Sock", 10, 0)
	colors := dbtest.SeedAxis(t, h.conn, product.ID, "color", "red", "blue")
	red := dbtest.SeedVariation(t, h.conn, product.ID, nil, 1, colors[0].ID)
	dbtest.SeedVariation(t, h.conn, product.ID, dbtest.Price(12), 2, colors[1].ID)

	_, err := h.svc.AdjustStock(ctx, AdjustInput{ProductID: product.ID, VariationID: &red.ID, Delta: 4, Reason: "found box"})
	require.NoError(t, err)

	assert.Equal(t, 5, h.variation(t, red.ID).Quantity)
	p := h.product(t, product.ID)
	assert.Equal(t, 7, p.Quantity)
	assert.Equal(t, "12", p.Price.String())
}

func TestAdjustStockRejectsProductLevelDeltaWhenVariationsExist(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, h.conn, "Glove", 20, 4)
	sizes := dbtest.SeedAxis(t, h.conn, product.ID, "size", "M")
	medium := dbtest.SeedVariation(t, h.conn, product.ID, nil, 4, sizes[0].ID)

	_, err := h.svc.AdjustStock(ctx, AdjustInput{ProductID: product.ID, Delta: 10, Reason: "restock"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 4, h.product(t, product.ID).Quantity)
	assert.Empty(t, h.ledgerRows(t, product.ID))

	_, err = h.svc.AdjustStock(ctx, AdjustInput{ProductID: product.ID, VariationID: &medium.ID, Delta: -1, Reason: "damaged"})
	require.NoError(t, err)

	assert.Equal(t, 3, h.product(t, product.ID).Quantity)
	rows := h.ledgerRows(t, product.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].QuantityBefore)
	assert.Equal(t, 3, rows[0].QuantityAfter)
}

func TestAdjustStockRejectsUnknownTargets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, h.conn, "Pen", 2, 3)
	other := dbtest.SeedProduct(t, h.conn, "Ink", 4, 0)
	otherAxis := dbtest.SeedAxis(t, h.conn, other.ID, "color", "black")
	foreign := dbtest.SeedVariation(t, h.conn, other.ID, nil, 2, otherAxis[0].ID)

	missing := uuid.New()
	_, err := h.svc.AdjustStock(ctx, AdjustInput{ProductID: product.ID, VariationID: &missing, Delta: 1, Reason: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeVariationNotFound))

	_, err = h.svc.AdjustStock(ctx, AdjustInput{ProductID: product.ID, VariationID: &foreign.ID, Delta: 1, Reason: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeVariationNotFound))

	_, err = h.svc.AdjustStock(ctx, AdjustInput{ProductID: uuid.New(), Delta: 1, Reason: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.AdjustStock(ctx, AdjustInput{ProductID: product.ID, Delta: 0, Reason: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.AdjustStock(ctx, AdjustInput{ProductID: product.ID, Delta: 1, Reason: "x", Type: enums.AdjustmentTypeOrder})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Equal(t, 3, h.product(t, product.ID).Quantity)
	assert.Equal(t, 2, h.variation(t, foreign.ID).Quantity)
}

func TestGetLowStockProducts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	low := dbtest.SeedProduct(t, h.conn, "Low", 5, 2)
	dbtest.SeedProduct(t, h.conn, "Empty", 5, 0)
	dbtest.SeedProduct(t, h.conn, "Plenty", 5, 50)
	draft := &models.Product{Title: "Draft", Quantity: 1}
	require.NoError(t, h.conn.Create(draft).Error)

	parent := dbtest.SeedProduct(t, h.conn, "Hat", 15, 0)
	sizes := dbtest.SeedAxis(t, h.conn, parent.ID, "size", "S", "L")
	small := dbtest.SeedVariation(t, h.conn, parent.ID, nil, 1, sizes[0].ID)
	dbtest.SeedVariation(t, h.conn, parent.ID, nil, 30, sizes[1].ID)

	items, err := h.svc.GetLowStockProducts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Hat", items[0].ProductTitle)
	assert.Equal(t, 1, items[0].Quantity)
	require.True(t, items[0].IsVariation())
	assert.Equal(t, small.ID, *items[0].VariationID)

	assert.Equal(t, low.ID, items[1].ProductID)
	assert.False(t, items[1].IsVariation())

	items, err = h.svc.GetLowStockProducts(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRecomputeAggregatesLeavesPlainProducts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, h.conn, "Plain", 9, 4)

	require.NoError(t, h.svc.RecomputeAggregates(ctx, h.conn, product.ID))
	p := h.product(t, product.ID)
	assert.Equal(t, 4, p.Quantity)
	assert.Equal(t, "9", p.Price.String())
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, h.conn, "Limited", 20, 5)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.client.WithTx(ctx, func(tx *gorm.DB) error {
				_, err := h.svc.DecreaseStockForOrder(ctx, tx, uuid.New(), []models.OrderLine{
					{ProductID: product.ID, ProductTitle: product.Title, Quantity: 1},
				})
				return err
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 5, succeeded.Load())
	assert.EqualValues(t, 7, rejected.Load())
	p := h.product(t, product.ID)
	assert.Equal(t, 0, p.Quantity)
	assert.Equal(t, 5, p.SoldCount)
	assert.Len(t, h.ledgerRows(t, product.ID), 5)
}

func TestTargetKey(t *testing.T) {
	pid, vid := uuid.New(), uuid.New()
	assert.Equal(t, "product:"+pid.String(), ProductTarget(pid).Key())
	assert.Equal(t, "variation:"+vid.String(), VariationTarget(pid, vid).Key())
	assert.True(t, IsLow(1, 5))
	assert.True(t, IsLow(5, 5))
	assert.False(t, IsLow(0, 5))
	assert.False(t, IsLow(6, 5))
}
