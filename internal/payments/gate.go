package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
	"github.com/tradehub/tradehub-backend/pkg/logger"
	"github.com/tradehub/tradehub-backend/pkg/metrics"
)

var minorUnitFactor = decimal.NewFromInt(100)

// GateConfig fixes the currency and the synchronous verification budget.
type GateConfig struct {
	Currency        string
	VerifyTimeout   time.Duration
	DefaultCustomer CustomerInfo
}

// Gate guards order creation behind a confirmed payment.
type Gate struct {
	processor Processor
	cfg       GateConfig
	logg      *logger.Logger
	metrics   *metrics.CommerceMetrics
}

func NewGate(processor Processor, cfg GateConfig, logg *logger.Logger, m *metrics.CommerceMetrics) (*Gate, error) {
	if processor == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		return nil, fmt.Errorf("currency required")
	}
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = 10 * time.Second
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Gate{processor: processor, cfg: cfg, logg: logg, metrics: m}, nil
}

// ToMinorUnits converts a major-unit amount to the processor's integer
// representation, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnitFactor).Round(0).IntPart()
}

// CreateIntent opens a payment intent for amount. It does not move funds.
func (g *Gate) CreateIntent(ctx context.Context, amount decimal.Decimal, description string, customer *CustomerInfo, metadata map[string]string) (*Intent, error) {
	minor := ToMinorUnits(amount)
	if minor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	info := g.cfg.DefaultCustomer
	if customer != nil {
		info = *customer
	}
	intent, err := g.processor.CreateIntent(ctx, IntentRequest{
		AmountMinor: minor,
		Currency:    g.cfg.Currency,
		Description: description,
		Customer:    info,
		Metadata:    metadata,
	})
	if err != nil {
		g.logg.Error(ctx, "payment intent creation failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create payment intent")
	}
	return intent, nil
}

type lookup struct {
	intent *Intent
	err    error
}

// VerifySucceeded fails with PAYMENT_NOT_COMPLETED unless the processor reports
// a succeeded intent within the verify timeout. It returns the verified intent.
func (g *Gate) VerifySucceeded(ctx context.Context, intentID string) (*Intent, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.cfg.VerifyTimeout)
	defer cancel()

	done := make(chan lookup, 1)
	go func() {
		intent, err := g.processor.GetIntent(ctx, intentID)
		done <- lookup{intent: intent, err: err}
	}()

	select {
	case <-ctx.Done():
		g.metrics.ObservePaymentVerify("timeout", time.Since(start))
		return nil, pkgerrors.New(pkgerrors.CodePaymentIncomplete, "payment confirmation timed out")
	case res := <-done:
		if res.err != nil {
			g.metrics.ObservePaymentVerify("error", time.Since(start))
			g.logg.Error(ctx, "payment intent lookup failed", res.err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, res.err, "verify payment intent")
		}
		if res.intent == nil || res.intent.Status != StatusSucceeded {
			status := ""
			if res.intent != nil {
				status = res.intent.Status
			}
			g.metrics.ObservePaymentVerify("incomplete", time.Since(start))
			return nil, pkgerrors.New(pkgerrors.CodePaymentIncomplete, "payment not completed").
				WithDetails(map[string]string{"paymentIntentId": intentID, "status": status})
		}
		g.metrics.ObservePaymentVerify("succeeded", time.Since(start))
		return res.intent, nil
	}
}

// Refund asks the processor to return the funds behind intentID.
func (g *Gate) Refund(ctx context.Context, intentID string) error {
	if strings.TrimSpace(intentID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	if _, err := g.processor.Refund(ctx, intentID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "refund payment")
	}
	return nil
}
