package inquiries

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradehub/tradehub-backend/pkg/enums"
)

type createInquiryRequest struct {
	GigID             uuid.UUID        `json:"gigId" validate:"required"`
	SupplierID        uuid.UUID        `json:"supplierId" validate:"required"`
	RequestedQuantity int              `json:"requestedQuantity" validate:"required,gt=0"`
	RequestedPrice    *decimal.Decimal `json:"requestedPrice,omitempty"`
	Message           *string          `json:"message,omitempty" validate:"omitempty,max=2000"`
}

// updateInquiryRequest is a counter-offer when Status is empty.
type updateInquiryRequest struct {
	ProposedQuantity *int                `json:"proposedQuantity,omitempty" validate:"omitempty,gt=0"`
	ProposedPrice    *decimal.Decimal    `json:"proposedPrice,omitempty"`
	Message          *string             `json:"message,omitempty" validate:"omitempty,max=2000"`
	Status           enums.InquiryStatus `json:"status,omitempty"`
}

type Inquiry struct {
	ID                uuid.UUID           `json:"id"`
	GigID             uuid.UUID           `json:"gigId"`
	BuyerID           uuid.UUID           `json:"buyerId"`
	SupplierID        uuid.UUID           `json:"supplierId"`
	RequestedQuantity int                 `json:"requestedQuantity"`
	RequestedPrice    *decimal.Decimal    `json:"requestedPrice,omitempty"`
	ProposedQuantity  *int                `json:"proposedQuantity,omitempty"`
	ProposedPrice     *decimal.Decimal    `json:"proposedPrice,omitempty"`
	FinalQuantity     *int                `json:"finalQuantity,omitempty"`
	FinalPrice        *decimal.Decimal    `json:"finalPrice,omitempty"`
	Message           *string             `json:"message,omitempty"`
	Status            enums.InquiryStatus `json:"status"`
	Round             int                 `json:"round"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}
