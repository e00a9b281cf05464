package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/internal/inventory"
	"github.com/tradehub/tradehub-backend/internal/payments"
)

// PaymentGate is the slice of payments.Gate the orchestrator needs.
type PaymentGate interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, description string, customer *payments.CustomerInfo, metadata map[string]string) (*payments.Intent, error)
	VerifySucceeded(ctx context.Context, intentID string) (*payments.Intent, error)
	Refund(ctx context.Context, intentID string) error
}

// StockDeducter removes stock inside the caller's transaction.
type StockDeducter interface {
	DeductTx(ctx context.Context, tx *gorm.DB, orderID *uuid.UUID, lines []inventory.Line) error
}
