package payments

import "context"

// Processor is the external payment provider.
type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	GetIntent(ctx context.Context, intentID string) (*Intent, error)
	Refund(ctx context.Context, intentID string) (*Refund, error)
}

// IntentRequest is already expressed in minor units.
type IntentRequest struct {
	AmountMinor int64
	Currency    string
	Description string
	Customer    CustomerInfo
	Metadata    map[string]string
}

// CustomerInfo is the billing identity attached to an intent.
type CustomerInfo struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Intent is the processor's view of a payment confirmation.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountMinor  int64
	Metadata     map[string]string
}

type Refund struct {
	ID     string
	Status string
}

// StatusSucceeded is the only terminal success state an intent can report.
const StatusSucceeded = "succeeded"
