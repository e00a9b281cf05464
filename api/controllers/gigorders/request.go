package gigorders

import (
	"github.com/tradehub/tradehub-backend/api/validators"
	internalorders "github.com/tradehub/tradehub-backend/internal/orders"
)

func toCreateInput(payload createOrderRequest) internalorders.CreateGigOrderInput {
	return internalorders.CreateGigOrderInput{
		GigID:           payload.GigID,
		InquiryID:       payload.InquiryID,
		PaymentIntentID: validators.SanitizeString(payload.PaymentIntentID, 255),
		Requirement:     validators.SanitizeString(payload.Requirement, 4000),
		ShippingAddress: trimmedOrNil(payload.ShippingAddress, 500),
		DeliveryMethod:  trimmedOrNil(payload.DeliveryMethod, 100),
	}
}

func toProgressInput(payload progressUpdateRequest) internalorders.ProgressUpdateInput {
	return internalorders.ProgressUpdateInput{
		Title:                validators.SanitizeString(payload.Title, 200),
		Content:              validators.SanitizeString(payload.Content, 4000),
		ExpectedDeliveryDate: payload.ExpectedDeliveryDate,
	}
}

func trimmedOrNil(v *string, maxLen int) *string {
	if v == nil {
		return nil
	}
	s := validators.SanitizeString(*v, maxLen)
	if s == "" {
		return nil
	}
	return &s
}
