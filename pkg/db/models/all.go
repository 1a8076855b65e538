package models

// All lists every persisted model in foreign-key order.
func All() []any {
	return []any{
		&User{},
		&Supplier{},
		&SupplierProduct{},
		&Category{},
		&Product{},
		&Order{},
		&OrderItem{},
		&Payout{},
		&OutboxEvent{},
	}
}
