package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Product is a catalog listing. When it has variations, Quantity and Price
// mirror the sum and minimum of its variations.
type Product struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Title         string              `gorm:"column:title;not null"`
	Price         decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	OriginalPrice *decimal.Decimal    `gorm:"column:original_price;type:numeric(12,2)"`
	Quantity      int                 `gorm:"column:quantity;not null"`
	SoldCount     int                 `gorm:"column:sold_count;not null"`
	Status        enums.ProductStatus `gorm:"column:status;type:text;not null"`
	ImageURL      *string             `gorm:"column:image_url"`
	Axes          []VariationAxis     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Variations    []Variation         `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = enums.ProductStatusDraft
	}
	return nil
}

// IsPurchasable reports whether buyers may add the product to a cart.
func (p Product) IsPurchasable() bool {
	return p.Status == enums.ProductStatusPublished
}

func (p Product) HasVariations() bool {
	return len(p.Variations) > 0
}
