package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderLine is the slice of an order line downstream consumers need.
type OrderLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	VariationID *uuid.UUID      `json:"variation_id,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// OrderCreatedEvent is emitted in the checkout transaction.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	ContactEmail  string              `json:"contact_email"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Lines         []OrderLine         `json:"lines"`
}

// OrderCanceledEvent is emitted after stock for the order has been restored.
type OrderCanceledEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	Reason        string              `json:"reason,omitempty"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Lines         []OrderLine         `json:"lines"`
}

// OrderStatusChangedEvent covers admin fulfillment transitions.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
	Note    string            `json:"note,omitempty"`
}

// OrderPaidEvent is emitted when an admin confirms payment.
type OrderPaidEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
}

// LowStockEvent reports a product or variation that crossed the low-stock threshold.
type LowStockEvent struct {
	ProductID    uuid.UUID  `json:"product_id"`
	VariationID  *uuid.UUID `json:"variation_id,omitempty"`
	ProductTitle string     `json:"product_title"`
	Quantity     int        `json:"quantity"`
	Threshold    int        `json:"threshold"`
}
