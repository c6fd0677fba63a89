package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/ledger"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry ledger.Entry) (*models.InventoryAdjustment, error)
	History(ctx context.Context, params ledger.HistoryParams) (*ledger.HistoryPage, error)
}

type rejectionRecorder interface {
	StockRejected(target string)
}

// Service owns every stock mutation. Callers that already hold a transaction pass it in;
// AdjustStock opens its own.
type Service interface {
	DecrementIfAvailable(ctx context.Context, tx *gorm.DB, target Target, amount int) (bool, error)
	DecreaseStockForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []models.OrderLine) ([]StockLevel, error)
	IncreaseStockForCancelledOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []models.OrderLine) error
	AdjustStock(ctx context.Context, input AdjustInput) (*AdjustResult, error)
	GetInventoryHistory(ctx context.Context, params ledger.HistoryParams) (*ledger.HistoryPage, error)
	GetLowStockProducts(ctx context.Context, threshold int) ([]StockLevel, error)
	RecomputeAggregates(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error
}

type AdjustInput struct {
	ProductID   uuid.UUID            `json:"product_id" validate:"required"`
	VariationID *uuid.UUID           `json:"variation_id,omitempty"`
	Delta       int                  `json:"delta" validate:"required"`
	Reason      string               `json:"reason" validate:"required"`
	Type        enums.AdjustmentType `json:"type,omitempty"`
	ActorID     *uuid.UUID           `json:"-"`
}

type AdjustResult struct {
	Target
	QuantityBefore int `json:"quantity_before"`
	QuantityAfter  int `json:"quantity_after"`
	Applied        int `json:"applied"`
	SoldCount      int `json:"sold_count"`
}

type ServiceParams struct {
	DB                txRunner
	Repo              *Repository
	Ledger            ledgerRecorder
	LowStockThreshold int
	Metrics           rejectionRecorder
	Logger            *logger.Logger
}

type service struct {
	db        txRunner
	repo      *Repository
	ledger    ledgerRecorder
	threshold int
	metrics   rejectionRecorder
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.LowStockThreshold <= 0 {
		return nil, fmt.Errorf("low stock threshold must be positive")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		db:        params.DB,
		repo:      params.Repo,
		ledger:    params.Ledger,
		threshold: params.LowStockThreshold,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

func (s *service) DecrementIfAvailable(ctx context.Context, tx *gorm.DB, target Target, amount int) (bool, error) {
	if amount <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "decrement amount must be positive")
	}
	affected, err := s.repo.WithTx(tx).Decrement(ctx, target, amount)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
	}
	if affected == 0 && s.metrics != nil {
		s.metrics.StockRejected(targetKind(target))
	}
	return affected == 1, nil
}

func (s *service) DecreaseStockForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []models.OrderLine) ([]StockLevel, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	repo := s.repo.WithTx(tx)
	levels := make([]StockLevel, 0, len(lines))
	touched := map[uuid.UUID]struct{}{}

	for _, line := range lines {
		target := targetOf(line)
		ok, err := s.DecrementIfAvailable(ctx, tx, target, line.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			available := 0
			if row, lerr := repo.Load(ctx, target, false); lerr == nil {
				available = row.Quantity
			}
			return nil, InsufficientStock(Shortfall{
				ProductID:    line.ProductID,
				VariationID:  line.VariationID,
				ProductTitle: line.ProductTitle,
				Requested:    line.Quantity,
				Available:    available,
				Reason:       ShortfallReasonStock,
			})
		}

		row, err := repo.Load(ctx, target, false)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read back stock")
		}
		if _, err := s.ledger.Record(ctx, tx, ledger.Entry{
			ProductID:      line.ProductID,
			VariationID:    line.VariationID,
			QuantityBefore: row.Quantity + line.Quantity,
			QuantityAfter:  row.Quantity,
			Type:           enums.AdjustmentTypeOrder,
			Reason:         "order placed",
			ReferenceID:    &orderID,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock ledger")
		}
		if target.IsVariation() {
			touched[line.ProductID] = struct{}{}
		}
		levels = append(levels, StockLevel{Target: target, ProductTitle: line.ProductTitle, Quantity: row.Quantity})
	}

	for productID := range touched {
		if err := s.RecomputeAggregates(ctx, tx, productID); err != nil {
			return nil, err
		}
	}
	return levels, nil
}

func (s *service) IncreaseStockForCancelledOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []models.OrderLine) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	repo := s.repo.WithTx(tx)
	touched := map[uuid.UUID]struct{}{}

	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		target := targetOf(line)
		affected, err := repo.Restore(ctx, target, line.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
		}
		if affected == 0 {
			// Target deleted since the order was placed; nothing to put back.
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"order_id": orderID.String(),
				"target":   target.Key(),
			}), "cancel restock skipped missing target")
			continue
		}
		row, err := repo.Load(ctx, target, false)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read back stock")
		}
		if _, err := s.ledger.Record(ctx, tx, ledger.Entry{
			ProductID:      line.ProductID,
			VariationID:    line.VariationID,
			QuantityBefore: row.Quantity - line.Quantity,
			QuantityAfter:  row.Quantity,
			Type:           enums.AdjustmentTypeOrderCancel,
			Reason:         "order canceled",
			ReferenceID:    &orderID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock ledger")
		}
		if target.IsVariation() {
			touched[line.ProductID] = struct{}{}
		}
	}

	for productID := range touched {
		if err := s.RecomputeAggregates(ctx, tx, productID); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) AdjustStock(ctx context.Context, input AdjustInput) (*AdjustResult, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	if input.Type == "" {
		input.Type = enums.AdjustmentTypeManual
	}
	if !input.Type.NudgesSoldCount() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment type must be manual or system")
	}

	target := ProductTarget(input.ProductID)
	if input.VariationID != nil {
		target = VariationTarget(input.ProductID, *input.VariationID)
	}

	var result *AdjustResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.Load(ctx, target, true)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(target)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
		}
		if row.ProductID != input.ProductID {
			return notFound(target)
		}
		if !target.IsVariation() {
			// Product quantity is derived from its variations once any exist.
			n, err := repo.CountVariations(ctx, input.ProductID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count variations")
			}
			if n > 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "product has variations, adjust a variation instead").WithDetails(map[string]any{
					"product_id": input.ProductID,
				})
			}
		}

		after := row.Quantity + input.Delta
		if after < 0 {
			after = 0
		}
		applied := after - row.Quantity
		sold := row.SoldCount - applied
		if sold < 0 {
			sold = 0
		}
		if err := repo.Set(ctx, target, after, sold); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
		}
		if _, err := s.ledger.Record(ctx, tx, ledger.Entry{
			ProductID:      input.ProductID,
			VariationID:    input.VariationID,
			ActorID:        input.ActorID,
			QuantityBefore: row.Quantity,
			QuantityAfter:  after,
			Type:           input.Type,
			Reason:         reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock ledger")
		}
		if target.IsVariation() {
			if err := s.RecomputeAggregates(ctx, tx, input.ProductID); err != nil {
				return err
			}
		}

		result = &AdjustResult{
			Target:         target,
			QuantityBefore: row.Quantity,
			QuantityAfter:  after,
			Applied:        applied,
			SoldCount:      sold,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"target":          target.Key(),
		"quantity_before": result.QuantityBefore,
		"quantity_after":  result.QuantityAfter,
		"type":            input.Type.String(),
	}), "stock adjusted")
	return result, nil
}

func (s *service) GetInventoryHistory(ctx context.Context, params ledger.HistoryParams) (*ledger.HistoryPage, error) {
	return s.ledger.History(ctx, params)
}

func (s *service) GetLowStockProducts(ctx context.Context, threshold int) ([]StockLevel, error) {
	if threshold <= 0 {
		threshold = s.threshold
	}
	products, err := s.repo.LowStockProducts(ctx, threshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock products")
	}
	variations, err := s.repo.LowStockVariations(ctx, threshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock variations")
	}

	out := append(products, variations...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity < out[j].Quantity
		}
		return out[i].ProductTitle < out[j].ProductTitle
	})
	return out, nil
}

// RecomputeAggregates mirrors variation stock onto the parent product. It writes no
// ledger row; the variation rows already carry the movement.
func (s *service) RecomputeAggregates(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	rows, err := repo.VariationStock(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variation stock")
	}
	if len(rows) == 0 {
		return nil
	}

	total := 0
	var minPrice *decimal.Decimal
	for _, row := range rows {
		total += row.Quantity
		if !row.Price.Valid {
			continue
		}
		if minPrice == nil || row.Price.Decimal.LessThan(*minPrice) {
			p := row.Price.Decimal
			minPrice = &p
		}
	}
	if err := repo.SetAggregates(ctx, productID, total, minPrice); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product aggregates")
	}
	return nil
}

// IsLow reports whether a post-mutation quantity falls in the alert band.
func IsLow(quantity, threshold int) bool {
	return quantity > 0 && quantity <= threshold
}

func notFound(target Target) error {
	if target.IsVariation() {
		return pkgerrors.New(pkgerrors.CodeVariationNotFound, "variation not found").WithDetails(map[string]any{
			"product_id":   target.ProductID,
			"variation_id": target.VariationID,
		})
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func targetKind(target Target) string {
	if target.IsVariation() {
		return "variation"
	}
	return "product"
}
