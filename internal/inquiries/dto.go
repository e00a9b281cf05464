package inquiries

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradehub/tradehub-backend/pkg/enums"
)

type CreateInput struct {
	GigID             uuid.UUID
	SupplierID        uuid.UUID
	RequestedQuantity int
	RequestedPrice    *decimal.Decimal
	Message           *string
}

// UpdateInput is a counter-offer, an acceptance or a rejection. An empty
// Status means counter-offer.
type UpdateInput struct {
	ProposedQuantity *int
	ProposedPrice    *decimal.Decimal
	Message          *string
	Status           enums.InquiryStatus
}

// AcceptedEvent carries the frozen terms downstream order creation reads.
type AcceptedEvent struct {
	InquiryID     uuid.UUID       `json:"inquiryId"`
	GigID         uuid.UUID       `json:"gigId"`
	BuyerID       uuid.UUID       `json:"buyerId"`
	SupplierID    uuid.UUID       `json:"supplierId"`
	FinalQuantity int             `json:"finalQuantity"`
	FinalPrice    decimal.Decimal `json:"finalPrice"`
	Round         int             `json:"round"`
}
