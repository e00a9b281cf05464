package gigorders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradehub/tradehub-backend/pkg/enums"
)

type createPaymentIntentRequest struct {
	GigID     uuid.UUID `json:"gigId" validate:"required"`
	InquiryID uuid.UUID `json:"inquiryId" validate:"required"`
}

type createOrderRequest struct {
	GigID           uuid.UUID `json:"gigId" validate:"required"`
	InquiryID       uuid.UUID `json:"inquiryId" validate:"required"`
	PaymentIntentID string    `json:"paymentIntentId" validate:"required"`
	Requirement     string    `json:"requirement" validate:"required,max=4000"`
	ShippingAddress *string   `json:"shippingAddress,omitempty" validate:"omitempty,max=500"`
	DeliveryMethod  *string   `json:"deliveryMethod,omitempty" validate:"omitempty,max=100"`
}

type updateStatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

type progressUpdateRequest struct {
	Title                string     `json:"title" validate:"required,max=200"`
	Content              string     `json:"content" validate:"required,max=4000"`
	ExpectedDeliveryDate *time.Time `json:"expectedDeliveryDate,omitempty"`
}

// GigOrder is the public view of a gig order.
type GigOrder struct {
	ID              uuid.UUID         `json:"id"`
	GigID           uuid.UUID         `json:"gigId"`
	InquiryID       uuid.UUID         `json:"inquiryId"`
	BuyerID         uuid.UUID         `json:"buyerId"`
	SellerID        uuid.UUID         `json:"sellerId"`
	Requirement     string            `json:"requirement"`
	Quantity        int               `json:"quantity"`
	UnitPrice       decimal.Decimal   `json:"unitPrice"`
	TotalPrice      decimal.Decimal   `json:"totalPrice"`
	Status          enums.OrderStatus `json:"status"`
	PaymentIntentID string            `json:"paymentIntentId"`
	ShippingAddress *string           `json:"shippingAddress,omitempty"`
	DeliveryMethod  *string           `json:"deliveryMethod,omitempty"`
	CancelledAt     *time.Time        `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	Updates         []ProgressUpdate  `json:"updates,omitempty"`
}

type ProgressUpdate struct {
	ID                   uuid.UUID  `json:"id"`
	OrderID              uuid.UUID  `json:"orderId"`
	SellerID             uuid.UUID  `json:"sellerId"`
	Title                string     `json:"title"`
	Content              string     `json:"content"`
	ExpectedDeliveryDate *time.Time `json:"expectedDeliveryDate,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

type CancelResult struct {
	Order  GigOrder `json:"order"`
	Refund string   `json:"refund"`
}
