package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

const orderAlertsConsumer = "order-alerts"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type notificationCreator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// OrderAlertConsumer turns order.created and order.canceled domain events
// into admin notifications.
type OrderAlertConsumer struct {
	repo         notificationCreator
	subscription receiver
	processed    processedTracker
	logg         *logger.Logger
}

func NewOrderAlertConsumer(repo notificationCreator, subscription receiver, processed processedTracker, logg *logger.Logger) (*OrderAlertConsumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("order alerts subscription required")
	}
	if processed == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &OrderAlertConsumer{
		repo:         repo,
		subscription: subscription,
		processed:    processed,
		logg:         logg,
	}, nil
}

// Run blocks until ctx is canceled or the subscription fails.
func (c *OrderAlertConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message should be acked. Malformed messages
// are acked so they do not loop forever.
func (c *OrderAlertConsumer) process(ctx context.Context, msg *pubsub.Message) bool {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != enums.EventOrderCreated && eventType != enums.EventOrderCanceled {
		return true
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return true
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return true
	}

	already, err := c.processed.CheckAndMarkProcessed(ctx, orderAlertsConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return false
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return true
	}

	notification, err := buildOrderAlert(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return true
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "failed to store order alert", err)
		if rerr := c.processed.Release(ctx, orderAlertsConsumer, eventID); rerr != nil {
			c.logg.Error(logCtx, "failed to release idempotency key", rerr)
		}
		return false
	}

	c.logg.Info(logCtx, "order alert stored")
	return true
}

func buildOrderAlert(eventType enums.OutboxEventType, data json.RawMessage) (*models.Notification, error) {
	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.OrderID == uuid.Nil {
			return nil, fmt.Errorf("order id missing")
		}
		return &models.Notification{
			Type:    enums.NotificationTypeOrderAlert,
			Title:   "New order",
			Message: fmt.Sprintf("Order %s placed for %s (%s).", payload.OrderID, payload.TotalPrice.StringFixed(2), payload.PaymentMethod),
			Link:    orderLink(payload.OrderID),
		}, nil
	case enums.EventOrderCanceled:
		var payload payloads.OrderCanceledEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.OrderID == uuid.Nil {
			return nil, fmt.Errorf("order id missing")
		}
		message := fmt.Sprintf("Order %s was canceled.", payload.OrderID)
		if payload.Reason != "" {
			message = fmt.Sprintf("Order %s was canceled: %s", payload.OrderID, payload.Reason)
		}
		return &models.Notification{
			Type:    enums.NotificationTypeOrderAlert,
			Title:   "Order canceled",
			Message: message,
			Link:    orderLink(payload.OrderID),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported event type %q", eventType)
	}
}

func orderLink(orderID uuid.UUID) *string {
	link := fmt.Sprintf("/admin/orders/%s", orderID)
	return &link
}
