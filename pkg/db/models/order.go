package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is created atomically with its lines at checkout. Contact fields are a
// snapshot and do not follow later profile edits.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID         *uuid.UUID          `gorm:"column:user_id;type:uuid;index"`
	ContactName    string              `gorm:"column:contact_name;not null"`
	ContactEmail   string              `gorm:"column:contact_email;not null"`
	ContactPhone   string              `gorm:"column:contact_phone;not null"`
	ContactAddress string              `gorm:"column:contact_address;not null"`
	Note           *string             `gorm:"column:note"`
	TotalPrice     decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;index"`
	PaymentStatus  enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	CancelReason   *string             `gorm:"column:cancel_reason"`
	CanceledAt     *time.Time          `gorm:"column:canceled_at"`
	PaidAt         *time.Time          `gorm:"column:paid_at"`
	GuestToken     *string             `gorm:"column:guest_token;uniqueIndex"`
	Lines          []OrderLine         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// IsGuest reports whether the order was placed by an anonymous owner.
func (o Order) IsGuest() bool {
	return o.UserID == nil
}

// OrderLine copies price, title and option labels at checkout time.
type OrderLine struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariationID  *uuid.UUID      `gorm:"column:variation_id;type:uuid"`
	ProductTitle string          `gorm:"column:product_title;not null"`
	Quantity     int             `gorm:"column:quantity;not null"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Options      []OptionLabel   `gorm:"column:options;type:jsonb;serializer:json"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (l *OrderLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// OrderHistory is an append-only timeline entry of an order.
type OrderHistory struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	Note          string              `gorm:"column:note;not null"`
	ActorID       *uuid.UUID          `gorm:"column:actor_id;type:uuid"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (OrderHistory) TableName() string { return "order_history" }

func (h *OrderHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
