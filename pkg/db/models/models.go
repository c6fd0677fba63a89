package models

// All lists every persisted model, in dependency order, for AutoMigrate in tests.
func All() []any {
	return []any{
		&Product{},
		&VariationAxis{},
		&VariationOption{},
		&Variation{},
		&CartLine{},
		&Order{},
		&OrderLine{},
		&OrderHistory{},
		&InventoryAdjustment{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
