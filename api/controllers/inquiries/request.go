package inquiries

import (
	"github.com/tradehub/tradehub-backend/api/validators"
	internalinquiries "github.com/tradehub/tradehub-backend/internal/inquiries"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
)

const maxMessageLen = 2000

func toCreateInput(payload createInquiryRequest) internalinquiries.CreateInput {
	return internalinquiries.CreateInput{
		GigID:             payload.GigID,
		SupplierID:        payload.SupplierID,
		RequestedQuantity: payload.RequestedQuantity,
		RequestedPrice:    payload.RequestedPrice,
		Message:           sanitizeMessage(payload.Message),
	}
}

func toUpdateInput(payload updateInquiryRequest) (internalinquiries.UpdateInput, error) {
	if payload.Status != "" && !payload.Status.IsValid() {
		return internalinquiries.UpdateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid inquiry status").
			WithDetails(map[string]any{"status": payload.Status})
	}
	return internalinquiries.UpdateInput{
		ProposedQuantity: payload.ProposedQuantity,
		ProposedPrice:    payload.ProposedPrice,
		Message:          sanitizeMessage(payload.Message),
		Status:           payload.Status,
	}, nil
}

func sanitizeMessage(v *string) *string {
	if v == nil {
		return nil
	}
	s := validators.SanitizeString(*v, maxMessageLen)
	if s == "" {
		return nil
	}
	return &s
}
