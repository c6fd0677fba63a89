package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// InventoryAdjustment is one stock ledger row. Rows are never updated or deleted.
type InventoryAdjustment struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID            `gorm:"column:product_id;type:uuid;not null;index:ix_inventory_adjustments_target,priority:1"`
	VariationID    *uuid.UUID           `gorm:"column:variation_id;type:uuid;index:ix_inventory_adjustments_target,priority:2"`
	ActorID        *uuid.UUID           `gorm:"column:actor_id;type:uuid"`
	QuantityBefore int                  `gorm:"column:quantity_before;not null"`
	QuantityAfter  int                  `gorm:"column:quantity_after;not null"`
	Adjustment     int                  `gorm:"column:adjustment;not null"`
	Type           enums.AdjustmentType `gorm:"column:type;type:text;not null"`
	Reason         string               `gorm:"column:reason;not null"`
	ReferenceID    *uuid.UUID           `gorm:"column:reference_id;type:uuid;index"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (a *InventoryAdjustment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
