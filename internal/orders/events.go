package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradehub/tradehub-backend/pkg/enums"
)

type OrderCreatedEvent struct {
	OrderID         uuid.UUID       `json:"orderId"`
	Kind            enums.OrderKind `json:"kind"`
	BuyerID         uuid.UUID       `json:"buyerId"`
	SellerID        *uuid.UUID      `json:"sellerId,omitempty"`
	StoreID         *uuid.UUID      `json:"storeId,omitempty"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	PaymentIntentID string          `json:"paymentIntentId"`
}

type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"orderId"`
	Kind    enums.OrderKind   `json:"kind"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
	Action  Action            `json:"action"`
}

type OrderCancelledEvent struct {
	OrderID         uuid.UUID       `json:"orderId"`
	Kind            enums.OrderKind `json:"kind"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
}

// RefundFailedEvent alerts operators that a cancelled order still holds funds.
type RefundFailedEvent struct {
	OrderID         uuid.UUID       `json:"orderId"`
	Kind            enums.OrderKind `json:"kind"`
	PaymentIntentID string          `json:"paymentIntentId"`
	Reason          string          `json:"reason"`
}
