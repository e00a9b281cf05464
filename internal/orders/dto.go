package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradehub/tradehub-backend/internal/inventory"
	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
)

// IntentResult is what a client needs to confirm a payment.
type IntentResult struct {
	PaymentIntentID string          `json:"paymentIntentId"`
	ClientSecret    string          `json:"clientSecret"`
	Amount          decimal.Decimal `json:"amount"`
}

type GigIntentInput struct {
	GigID     uuid.UUID
	InquiryID uuid.UUID
}

type CreateGigOrderInput struct {
	GigID           uuid.UUID
	InquiryID       uuid.UUID
	PaymentIntentID string
	Requirement     string
	ShippingAddress *string
	DeliveryMethod  *string
}

type ProgressUpdateInput struct {
	Title                string
	Content              string
	ExpectedDeliveryDate *time.Time
}

type WarehouseIntentInput struct {
	StoreID    uuid.UUID
	TotalPrice decimal.Decimal
}

type CreateWarehouseOrderInput struct {
	StoreID         uuid.UUID
	ShippingAddress string
	TotalPrice      decimal.Decimal
	Items           []inventory.Line
	PaymentIntentID string
}

// RefundOutcome reports what happened to the payment after a cancel.
type RefundOutcome string

const (
	RefundSucceeded RefundOutcome = "succeeded"
	RefundFailed    RefundOutcome = "failed"
	RefundSkipped   RefundOutcome = "skipped"
)

type GigCancelResult struct {
	Order  *models.GigOrder
	Refund RefundOutcome
}

type WarehouseCancelResult struct {
	Order  *models.ProductOrder
	Refund RefundOutcome
}

// statusChange is one applied FSM step.
type statusChange struct {
	kind   enums.OrderKind
	id     uuid.UUID
	from   enums.OrderStatus
	to     enums.OrderStatus
	action Action
}
