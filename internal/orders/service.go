package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// Service defines order lifecycle operations after checkout.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason string, actor Actor) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput, actor Actor) (*models.Order, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, note string, actor Actor) (*models.Order, error)
	MarkPaymentSubmitted(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	ListAwaitingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxEmitter
	inventory stockRestorer
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxEmitter, inventory stockRestorer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outbox,
		inventory: inventory,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return order, nil
}

func (s *service) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	if _, err := s.Get(ctx, orderID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order history")
	}
	return rows, nil
}

// Cancel restores stock for every line and marks the order canceled. Orders that
// are completed, already canceled or paid are rejected without side effects.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, reason string, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	reason = strings.TrimSpace(reason)

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if !order.Status.IsCancelable() || order.PaymentStatus == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeNotCancelable, "order can no longer be canceled").WithDetails(map[string]any{
				"status":         order.Status,
				"payment_status": order.PaymentStatus,
			})
		}

		if err := s.inventory.IncreaseStockForCancelledOrder(ctx, tx, order.ID, order.Lines); err != nil {
			return err
		}

		now := s.now()
		paymentStatus := order.PaymentStatus
		if paymentStatus == enums.PaymentStatusAwaiting {
			paymentStatus = enums.PaymentStatusFailed
		}
		updates := map[string]any{
			"status":         enums.OrderStatusCanceled,
			"payment_status": paymentStatus,
			"canceled_at":    now,
			"updated_at":     now,
		}
		if reason != "" {
			updates["cancel_reason"] = reason
			order.CancelReason = &reason
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		order.Status = enums.OrderStatusCanceled
		order.PaymentStatus = paymentStatus
		order.CanceledAt = &now
		order.UpdatedAt = now

		note := "order canceled"
		if reason != "" {
			note += ": " + reason
		}
		if err := s.appendHistory(ctx, repo, order, note, actor); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.ref(),
			Data: payloads.OrderCanceledEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				Reason:        reason,
				PaymentStatus: paymentStatus,
				Lines:         EventLines(order.Lines),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order canceled")
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"actor_role": actor.Role,
		"reason":     reason,
	}), "order canceled")
	return result, nil
}

// UpdateStatus moves an order along pending -> processing -> completed.
// A target of canceled is routed through Cancel.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if input.Status == enums.OrderStatusCanceled {
		return s.Cancel(ctx, orderID, input.Note, actor)
	}
	note := strings.TrimSpace(input.Note)

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		from := order.Status
		if !from.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", from, input.Status))
		}

		now := s.now()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":     input.Status,
			"updated_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = input.Status
		order.UpdatedAt = now

		historyNote := fmt.Sprintf("status changed from %s to %s", from, input.Status)
		if note != "" {
			historyNote += ": " + note
		}
		if err := s.appendHistory(ctx, repo, order, historyNote, actor); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.ref(),
			Data: payloads.OrderStatusChangedEvent{
				OrderID: order.ID,
				From:    from,
				To:      input.Status,
				Note:    note,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order status changed")
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConfirmPayment marks a live order paid once an admin has seen the money arrive.
func (s *service) ConfirmPayment(ctx context.Context, orderID uuid.UUID, note string, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	note = strings.TrimSpace(note)

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if order.Status == enums.OrderStatusCanceled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "canceled orders cannot be paid")
		}
		switch order.PaymentStatus {
		case enums.PaymentStatusAwaiting, enums.PaymentStatusPendingConfirmation, enums.PaymentStatusPending:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment cannot be confirmed from %s", order.PaymentStatus))
		}

		now := s.now()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"paid_at":        now,
			"updated_at":     now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment")
		}
		order.PaymentStatus = enums.PaymentStatusPaid
		order.PaidAt = &now
		order.UpdatedAt = now

		historyNote := "payment confirmed"
		if note != "" {
			historyNote += ": " + note
		}
		if err := s.appendHistory(ctx, repo, order, historyNote, actor); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.ref(),
			Data: payloads.OrderPaidEvent{
				OrderID:       order.ID,
				PaymentMethod: order.PaymentMethod,
				TotalPrice:    order.TotalPrice,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order paid")
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkPaymentSubmitted records that the buyer reports having sent a bank transfer.
func (s *service) MarkPaymentSubmitted(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if order.Status == enums.OrderStatusCanceled || order.PaymentStatus != enums.PaymentStatusAwaiting {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
		}

		now := s.now()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusPendingConfirmation,
			"updated_at":     now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment submitted")
		}
		order.PaymentStatus = enums.PaymentStatusPendingConfirmation
		order.UpdatedAt = now

		if err := s.appendHistory(ctx, repo, order, "payment submitted by buyer", actor); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListAwaitingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must be positive")
	}
	ids, err := s.repo.ListAwaitingPaymentBefore(ctx, cutoff, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list awaiting payment orders")
	}
	return ids, nil
}

func (s *service) appendHistory(ctx context.Context, repo Repository, order *models.Order, note string, actor Actor) error {
	if err := repo.AppendHistory(ctx, &models.OrderHistory{
		OrderID:       order.ID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Note:          note,
		ActorID:       actor.UserID,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
	}
	return nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
