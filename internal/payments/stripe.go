package payments

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/refund"

	pkgstripe "github.com/tradehub/tradehub-backend/pkg/stripe"
)

type stripeProcessor struct{}

// NewStripeProcessor backs the gate with Stripe payment intents.
func NewStripeProcessor(client *pkgstripe.Client) (Processor, error) {
	if client == nil {
		return nil, errors.New("stripe client required")
	}
	return &stripeProcessor{}, nil
}

func (p *stripeProcessor) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	custParams := &stripe.CustomerParams{
		Name: stripe.String(req.Customer.Name),
		Address: &stripe.AddressParams{
			Line1:      stripe.String(req.Customer.Line1),
			City:       stripe.String(req.Customer.City),
			State:      stripe.String(req.Customer.State),
			PostalCode: stripe.String(req.Customer.PostalCode),
			Country:    stripe.String(req.Customer.Country),
		},
	}
	custParams.Context = ctx
	cust, err := customer.New(custParams)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.AmountMinor),
		Currency:    stripe.String(req.Currency),
		Customer:    stripe.String(cust.ID),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return fromStripeIntent(pi), nil
}

func (p *stripeProcessor) GetIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, err
	}
	return fromStripeIntent(pi), nil
}

func (p *stripeProcessor) Refund(ctx context.Context, intentID string) (*Refund, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx
	r, err := refund.New(params)
	if err != nil {
		return nil, err
	}
	return &Refund{ID: r.ID, Status: string(r.Status)}, nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountMinor:  pi.Amount,
		Metadata:     pi.Metadata,
	}
}
