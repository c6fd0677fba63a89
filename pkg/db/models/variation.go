package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
)

// Variation is a purchasable combination of options (one per axis) of a product.
// OptionsKey is the canonical form of OptionIDs and is unique per product.
type Variation struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID         `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_variations_product_options,priority:1"`
	OptionIDs     dbtypes.OptionSet `gorm:"column:option_ids;type:jsonb;not null"`
	OptionsKey    string            `gorm:"column:options_key;not null;uniqueIndex:ux_variations_product_options,priority:2"`
	SKU           *string           `gorm:"column:sku"`
	Price         *decimal.Decimal  `gorm:"column:price;type:numeric(12,2)"`
	OriginalPrice *decimal.Decimal  `gorm:"column:original_price;type:numeric(12,2)"`
	Quantity      int               `gorm:"column:quantity;not null"`
	SoldCount     int               `gorm:"column:sold_count;not null"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Variation) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.OptionIDs = v.OptionIDs.Normalize()
	v.OptionsKey = v.OptionIDs.Key()
	return nil
}

// VariationAxis is a dimension a product varies along, such as size or color.
type VariationAxis struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string            `gorm:"column:name;not null"`
	Position  int               `gorm:"column:position;not null"`
	Options   []VariationOption `gorm:"foreignKey:AxisID;constraint:OnDelete:CASCADE"`
}

func (a *VariationAxis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type VariationOption struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	AxisID   uuid.UUID `gorm:"column:axis_id;type:uuid;not null;index"`
	Name     string    `gorm:"column:name;not null"`
	Position int       `gorm:"column:position;not null"`
}

func (o *VariationOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OptionLabel is the display snapshot of one selected option.
type OptionLabel struct {
	AxisID   uuid.UUID `json:"axis_id"`
	Axis     string    `json:"axis"`
	OptionID uuid.UUID `json:"option_id"`
	Option   string    `json:"option"`
}
