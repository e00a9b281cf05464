package inventory

import (
	"github.com/google/uuid"
)

// Line is one (warehouse, product, quantity) request against the ledger.
type Line struct {
	WarehouseID uuid.UUID `json:"warehouseId"`
	ProductID   uuid.UUID `json:"productId"`
	Quantity    int       `json:"quantity"`
}

// StockInput is a single-product stock adjustment.
type StockInput struct {
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Quantity    int
	Location    *string
}

// Shortage describes the line that made a deduction fail.
type Shortage struct {
	WarehouseID uuid.UUID `json:"warehouseId"`
	ProductID   uuid.UUID `json:"productId"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

// StockDeductedEvent is published once per successful multi-line deduction.
type StockDeductedEvent struct {
	OrderID *uuid.UUID `json:"orderId,omitempty"`
	Lines   []Line     `json:"lines"`
}

// StockAdjustedEvent is published for manual stock in/out.
type StockAdjustedEvent struct {
	WarehouseID uuid.UUID `json:"warehouseId"`
	ProductID   uuid.UUID `json:"productId"`
	Quantity    int       `json:"quantity"`
	Balance     int       `json:"balance"`
}
