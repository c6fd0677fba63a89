package notifications

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

const defaultAlertTTL = 6 * time.Hour

// LowStockItem is a product or variation whose stock just dropped into the alert band.
type LowStockItem = inventory.StockLevel

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// alertStore de-duplicates alerts per target for one threshold window.
type alertStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	LowStockKey(target string) string
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// LowStockNotifier turns low stock levels into admin notifications and inventory.low_stock events.
type LowStockNotifier struct {
	db        txRunner
	repo      Repository
	alerts    alertStore
	outbox    outboxEmitter
	threshold int
	ttl       time.Duration
	logg      *logger.Logger
}

type LowStockNotifierParams struct {
	DB        txRunner
	Repo      Repository
	Alerts    alertStore
	Outbox    outboxEmitter
	Threshold int
	AlertTTL  time.Duration
	Logger    *logger.Logger
}

func NewLowStockNotifier(params LowStockNotifierParams) (*LowStockNotifier, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("notifications repository required")
	case params.Alerts == nil:
		return nil, fmt.Errorf("alert store required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Threshold <= 0:
		return nil, fmt.Errorf("low stock threshold must be positive")
	}
	if params.AlertTTL <= 0 {
		params.AlertTTL = defaultAlertTTL
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &LowStockNotifier{
		db:        params.DB,
		repo:      params.Repo,
		alerts:    params.Alerts,
		outbox:    params.Outbox,
		threshold: params.Threshold,
		ttl:       params.AlertTTL,
		logg:      params.Logger,
	}, nil
}

// NotifyLowStock alerts once per target per window. Items outside (0, threshold] are ignored.
// Every item is attempted; failures are combined into the returned error.
func (n *LowStockNotifier) NotifyLowStock(ctx context.Context, items []LowStockItem) error {
	var errs error
	for _, item := range items {
		if !inventory.IsLow(item.Quantity, n.threshold) {
			continue
		}
		if err := n.notify(ctx, item); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", item.Key(), err))
		}
	}
	return errs
}

func (n *LowStockNotifier) notify(ctx context.Context, item LowStockItem) error {
	key := n.alerts.LowStockKey(item.Key())
	fresh, err := n.alerts.SetNX(ctx, key, item.Quantity, n.ttl)
	if err != nil {
		return fmt.Errorf("claim alert: %w", err)
	}
	if !fresh {
		return nil
	}

	err = n.db.WithTx(ctx, func(tx *gorm.DB) error {
		notification := lowStockNotification(item, n.threshold)
		if err := n.repo.WithTx(tx).Create(ctx, notification); err != nil {
			return err
		}
		return n.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryLowStock,
			AggregateType: enums.AggregateProduct,
			AggregateID:   item.ProductID,
			Data: payloads.LowStockEvent{
				ProductID:    item.ProductID,
				VariationID:  item.VariationID,
				ProductTitle: item.ProductTitle,
				Quantity:     item.Quantity,
				Threshold:    n.threshold,
			},
		})
	})
	if err != nil {
		// release the claim so the next stock movement can retry the alert
		if delErr := n.alerts.Del(ctx, key); delErr != nil {
			err = multierr.Append(err, fmt.Errorf("release alert: %w", delErr))
		}
		return err
	}

	logCtx := n.logg.WithFields(ctx, map[string]any{
		"target":   item.Key(),
		"quantity": item.Quantity,
	})
	n.logg.Info(logCtx, "low stock notification created")
	return nil
}

func lowStockNotification(item LowStockItem, threshold int) *models.Notification {
	subject := item.ProductTitle
	if item.IsVariation() {
		subject += " (variation)"
	}
	link := "/admin/products/" + item.ProductID.String()
	return &models.Notification{
		Type:    enums.NotificationTypeLowStock,
		Title:   "Low stock: " + subject,
		Message: fmt.Sprintf("%s has %d left (threshold %d).", subject, item.Quantity, threshold),
		Link:    &link,
	}
}
