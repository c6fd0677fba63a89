package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultExpiryBatch = 100
	expiryCancelReason = "payment window expired"
)

type expiringOrders interface {
	ListAwaitingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason string, actor orders.Actor) (*models.Order, error)
}

// OrderExpiryJobParams configure the bank transfer expiry job.
type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	Orders    expiringOrders
	TTL       time.Duration
	BatchSize int
}

// NewOrderExpiryJob cancels bank transfer orders still awaiting payment after TTL.
// Cancellation goes through the orders service so stock is restored.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("awaiting payment ttl must be positive")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    params.TTL,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders expiringOrders
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.ttl)
	ids, err := j.orders.ListAwaitingPaymentBefore(ctx, cutoff, j.batch)
	if err != nil {
		return 0, fmt.Errorf("query awaiting payment orders: %w", err)
	}

	var (
		canceled int64
		errs     error
	)
	for _, id := range ids {
		orderCtx := j.logg.WithOrderID(ctx, id.String())
		_, err := j.orders.Cancel(orderCtx, id, expiryCancelReason, orders.SystemActor())
		switch {
		case err == nil:
			canceled++
		case pkgerrors.IsCode(err, pkgerrors.CodeNotCancelable), pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			// paid or shipped since the listing query
			j.logg.Warn(orderCtx, "skipping order no longer eligible for expiry")
		default:
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", id, err))
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"found":    len(ids),
		"canceled": canceled,
	}), "order expiry loop complete")
	return canceled, errs
}
