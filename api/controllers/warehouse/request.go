package warehouse

import (
	"github.com/tradehub/tradehub-backend/api/validators"
	"github.com/tradehub/tradehub-backend/internal/inventory"
	internalorders "github.com/tradehub/tradehub-backend/internal/orders"
)

func toLines(items []lineRequest) []inventory.Line {
	if len(items) == 0 {
		return nil
	}
	lines := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, inventory.Line{
			WarehouseID: item.WarehouseID,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
		})
	}
	return lines
}

func toCreateInput(payload createOrderRequest) internalorders.CreateWarehouseOrderInput {
	return internalorders.CreateWarehouseOrderInput{
		StoreID:         payload.StoreID,
		ShippingAddress: validators.SanitizeString(payload.ShippingAddress, 500),
		TotalPrice:      payload.TotalPrice,
		Items:           toLines(payload.Items),
		PaymentIntentID: validators.SanitizeString(payload.PaymentIntentID, 255),
	}
}

func toStockInput(payload stockRequest) inventory.StockInput {
	input := inventory.StockInput{
		WarehouseID: payload.WarehouseID,
		ProductID:   payload.ProductID,
		Quantity:    payload.Quantity,
	}
	if payload.Location != nil {
		if loc := validators.SanitizeString(*payload.Location, 200); loc != "" {
			input.Location = &loc
		}
	}
	return input
}
