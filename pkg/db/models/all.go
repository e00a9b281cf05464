package models

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&Store{},
		&Warehouse{},
		&Gig{},
		&Inventory{},
		&StockMovement{},
		&Inquiry{},
		&GigOrder{},
		&GigOrderUpdate{},
		&ProductOrder{},
		&ProductOrderItem{},
		&ShippingMethod{},
		&Shipment{},
		&OutboxEvent{},
	}
}
