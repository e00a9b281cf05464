package warehouse

import (
	internalorders "github.com/tradehub/tradehub-backend/internal/orders"
	"github.com/tradehub/tradehub-backend/pkg/db/models"
)

func newOrder(o *models.ProductOrder) Order {
	out := Order{
		ID:              o.ID,
		StoreID:         o.StoreID,
		BuyerID:         o.BuyerID,
		TotalPrice:      o.TotalPrice,
		Status:          o.Status,
		PaymentIntentID: o.PaymentIntentID,
		ShippingAddress: o.ShippingAddress,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           make([]OrderItem, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		out.Items = append(out.Items, OrderItem{
			ID:          item.ID,
			ProductID:   item.ProductID,
			WarehouseID: item.WarehouseID,
			Quantity:    item.Quantity,
		})
	}
	if o.Shipment != nil {
		shipment := newShipment(o.Shipment)
		out.Shipment = &shipment
	}
	return out
}

func newOrders(rows []models.ProductOrder) []Order {
	out := make([]Order, 0, len(rows))
	for i := range rows {
		out = append(out, newOrder(&rows[i]))
	}
	return out
}

func newCancelResult(res *internalorders.WarehouseCancelResult) CancelResult {
	return CancelResult{Order: newOrder(res.Order), Refund: string(res.Refund)}
}

func newShippingMethod(m *models.ShippingMethod) ShippingMethod {
	return ShippingMethod{ID: m.ID, Name: m.Name, EstimatedDays: m.EstimatedDays}
}

func newShipment(s *models.Shipment) Shipment {
	out := Shipment{
		ID:               s.ID,
		OrderID:          s.ProductOrderID,
		WarehouseID:      s.WarehouseID,
		ShippingMethodID: s.ShippingMethodID,
		TrackingNumber:   s.TrackingNumber,
		TrackingStatus:   s.TrackingStatus,
		ShippedAt:        s.ShippedAt,
		DeliveredAt:      s.DeliveredAt,
	}
	if s.ShippingMethod != nil {
		method := newShippingMethod(s.ShippingMethod)
		out.ShippingMethod = &method
	}
	return out
}

func newInventory(rows []models.Inventory) []InventoryRecord {
	out := make([]InventoryRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, newInventoryRecord(&row))
	}
	return out
}

func newInventoryRecord(row *models.Inventory) InventoryRecord {
	return InventoryRecord{
		ID:          row.ID,
		WarehouseID: row.WarehouseID,
		ProductID:   row.ProductID,
		Quantity:    row.Quantity,
		Location:    row.Location,
		UpdatedAt:   row.UpdatedAt,
	}
}

func newMovements(rows []models.StockMovement) []StockMovement {
	out := make([]StockMovement, 0, len(rows))
	for _, row := range rows {
		out = append(out, StockMovement{
			ID:          row.ID,
			WarehouseID: row.WarehouseID,
			ProductID:   row.ProductID,
			ChangeType:  row.ChangeType,
			Quantity:    row.Quantity,
			OrderID:     row.OrderID,
			CreatedAt:   row.CreatedAt,
		})
	}
	return out
}
