package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
)

// CartLine is one pending (product, option set, quantity) tuple of a cart owner.
// OwnerKey is "user:<id>" or "session:<token>"; exactly one of UserID and
// SessionToken is set.
type CartLine struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OwnerKey     string            `gorm:"column:owner_key;not null;uniqueIndex:ux_cart_lines_identity,priority:1"`
	UserID       *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	SessionToken *string           `gorm:"column:session_token;index"`
	ProductID    uuid.UUID         `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_lines_identity,priority:2"`
	OptionIDs    dbtypes.OptionSet `gorm:"column:option_ids;type:jsonb;not null"`
	OptionsKey   string            `gorm:"column:options_key;not null;uniqueIndex:ux_cart_lines_identity,priority:3"`
	Quantity     int               `gorm:"column:quantity;not null"`
	Price        decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *CartLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.OptionIDs = l.OptionIDs.Normalize()
	l.OptionsKey = l.OptionIDs.Key()
	return nil
}

// Subtotal is quantity times the snapshot price.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
