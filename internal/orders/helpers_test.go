package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/internal/inventory"
	"github.com/tradehub/tradehub-backend/internal/payments"
	"github.com/tradehub/tradehub-backend/pkg/db"
	"github.com/tradehub/tradehub-backend/pkg/db/dbtest"
	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
	"github.com/tradehub/tradehub-backend/pkg/outbox"
)

type stubGate struct {
	mu        sync.Mutex
	intents   map[string]*payments.Intent
	refundErr error
	refunded  []string
	created   []decimal.Decimal
}

func newStubGate() *stubGate {
	return &stubGate{intents: map[string]*payments.Intent{}}
}

func (g *stubGate) CreateIntent(_ context.Context, amount decimal.Decimal, _ string, _ *payments.CustomerInfo, metadata map[string]string) (*payments.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent := &payments.Intent{
		ID:           "pi_" + uuid.NewString()[:8],
		ClientSecret: "secret",
		Status:       "requires_payment_method",
		AmountMinor:  payments.ToMinorUnits(amount),
		Metadata:     metadata,
	}
	g.intents[intent.ID] = intent
	g.created = append(g.created, amount)
	return intent, nil
}

func (g *stubGate) VerifySucceeded(_ context.Context, id string) (*payments.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[id]
	if !ok || intent.Status != payments.StatusSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodePaymentIncomplete, "payment not completed")
	}
	return intent, nil
}

func (g *stubGate) Refund(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunded = append(g.refunded, id)
	return g.refundErr
}

// paid registers a succeeded intent for amount.
func (g *stubGate) paid(amount decimal.Decimal) string {
	return g.paidWith(amount, nil)
}

func (g *stubGate) paidWith(amount decimal.Decimal, metadata map[string]string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := "pi_" + uuid.NewString()[:8]
	g.intents[id] = &payments.Intent{ID: id, Status: payments.StatusSucceeded, AmountMinor: payments.ToMinorUnits(amount), Metadata: metadata}
	return id
}

// settle marks a created intent as succeeded.
func (g *stubGate) settle(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[id].Status = payments.StatusSucceeded
}

type fixture struct {
	conn      *gorm.DB
	gate      *stubGate
	gigs      GigService
	warehouse WarehouseService
	stock     inventory.Service
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test put its own deducter in front of the ledger.
func newFixtureWith(t *testing.T, wrap func(inventory.Service) StockDeducter) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	runner := db.Wrap(conn)
	stock, err := inventory.NewService(inventory.NewRepository(conn), runner, emitter, nil)
	require.NoError(t, err)

	var deducter StockDeducter = stock
	if wrap != nil {
		deducter = wrap(stock)
	}
	gate := newStubGate()
	repo := NewRepository(conn)
	gigs, err := NewGigService(repo, runner, emitter, gate, nil, nil)
	require.NoError(t, err)
	warehouse, err := NewWarehouseService(repo, runner, emitter, gate, deducter, nil, nil)
	require.NoError(t, err)
	return &fixture{conn: conn, gate: gate, gigs: gigs, warehouse: warehouse, stock: stock}
}

func (f *fixture) eventCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected %s, got untyped error %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected %s, got %s (%v)", code, typed.Code(), err)
	}
}

var errProcessorDown = errors.New("processor unavailable")
