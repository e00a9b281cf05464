package gigorders

import (
	internalorders "github.com/tradehub/tradehub-backend/internal/orders"
	"github.com/tradehub/tradehub-backend/pkg/db/models"
)

func newGigOrder(o *models.GigOrder) GigOrder {
	out := GigOrder{
		ID:              o.ID,
		GigID:           o.GigID,
		InquiryID:       o.InquiryID,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
		Requirement:     o.Requirement,
		Quantity:        o.Quantity,
		UnitPrice:       o.UnitPrice,
		TotalPrice:      o.TotalPrice,
		Status:          o.Status,
		PaymentIntentID: o.PaymentIntentID,
		ShippingAddress: o.ShippingAddress,
		DeliveryMethod:  o.DeliveryMethod,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if len(o.Updates) > 0 {
		out.Updates = newProgressUpdates(o.Updates)
	}
	return out
}

func newGigOrders(rows []models.GigOrder) []GigOrder {
	out := make([]GigOrder, 0, len(rows))
	for i := range rows {
		out = append(out, newGigOrder(&rows[i]))
	}
	return out
}

func newProgressUpdate(u *models.GigOrderUpdate) ProgressUpdate {
	return ProgressUpdate{
		ID:                   u.ID,
		OrderID:              u.OrderID,
		SellerID:             u.SellerID,
		Title:                u.Title,
		Content:              u.Content,
		ExpectedDeliveryDate: u.ExpectedDeliveryDate,
		CreatedAt:            u.CreatedAt,
	}
}

func newProgressUpdates(rows []models.GigOrderUpdate) []ProgressUpdate {
	out := make([]ProgressUpdate, 0, len(rows))
	for i := range rows {
		out = append(out, newProgressUpdate(&rows[i]))
	}
	return out
}

func newCancelResult(res *internalorders.GigCancelResult) CancelResult {
	return CancelResult{Order: newGigOrder(res.Order), Refund: string(res.Refund)}
}
