package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/pkg/db"
	"github.com/tradehub/tradehub-backend/pkg/enums"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
	"github.com/tradehub/tradehub-backend/pkg/logger"
	"github.com/tradehub/tradehub-backend/pkg/metrics"
	"github.com/tradehub/tradehub-backend/pkg/outbox"
)

// lifecycle holds what gig and warehouse services share: applying FSM steps,
// emitting their events and the best-effort refund after a cancel.
type lifecycle struct {
	repo     Repository
	tx       db.TxRunner
	outbox   outbox.Emitter
	payments PaymentGate
	logg     *logger.Logger
	metrics  *metrics.CommerceMetrics
	now      func() time.Time
}

func newLifecycle(repo Repository, tx db.TxRunner, emitter outbox.Emitter, gate PaymentGate, logg *logger.Logger, m *metrics.CommerceMetrics) (lifecycle, error) {
	if repo == nil {
		return lifecycle{}, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return lifecycle{}, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return lifecycle{}, fmt.Errorf("outbox emitter required")
	}
	if gate == nil {
		return lifecycle{}, fmt.Errorf("payment gate required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return lifecycle{
		repo:     repo,
		tx:       tx,
		outbox:   emitter,
		payments: gate,
		logg:     logg,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func aggregateFor(kind enums.OrderKind) enums.OutboxAggregateType {
	if kind == enums.OrderKindGig {
		return enums.AggregateGigOrder
	}
	return enums.AggregateProductOrder
}

// apply resolves action against the table and writes the new status only if
// the row still holds the status it was loaded with.
func (l lifecycle) apply(ctx context.Context, tx *gorm.DB, kind enums.OrderKind, id uuid.UUID, from enums.OrderStatus, action Action, actor uuid.UUID) (statusChange, error) {
	to, err := Next(kind, from, action)
	if err != nil {
		return statusChange{}, err
	}
	repo := l.repo.WithTx(tx)
	var swapped bool
	if kind == enums.OrderKindGig {
		swapped, err = repo.SetGigOrderStatus(ctx, id, from, to, l.now())
	} else {
		swapped, err = repo.SetProductOrderStatus(ctx, id, from, to, l.now())
	}
	if err != nil {
		return statusChange{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !swapped {
		return statusChange{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed by another request").
			WithDetails(map[string]string{"expected": string(from)})
	}

	change := statusChange{kind: kind, id: id, from: from, to: to, action: action}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: aggregateFor(kind),
		AggregateID:   id,
		Actor:         outbox.Actor(actor, ""),
		Data: OrderStatusChangedEvent{
			OrderID: id,
			Kind:    kind,
			From:    from,
			To:      to,
			Action:  action,
		},
	}
	if action == ActionCancel {
		event.EventType = enums.EventOrderCancelled
	}
	if err := l.outbox.Emit(ctx, tx, event); err != nil {
		return statusChange{}, err
	}
	return change, nil
}

func (l lifecycle) recorded(change statusChange) {
	l.metrics.StatusTransition(string(change.kind), string(change.to))
}

// refundAfterCancel runs once the cancellation has committed. Failure is
// reported through logs, metrics and an outbox event; the order stays cancelled.
func (l lifecycle) refundAfterCancel(ctx context.Context, kind enums.OrderKind, orderID uuid.UUID, intentID string) RefundOutcome {
	if intentID == "" {
		return RefundSkipped
	}
	ctx = l.logg.WithOrderID(ctx, orderID.String())
	err := l.payments.Refund(ctx, intentID)
	if err == nil {
		l.logg.Info(ctx, "order refunded")
		return RefundSucceeded
	}

	l.logg.Error(ctx, "refund failed for cancelled order", err)
	l.metrics.RefundFailed(string(kind))
	emitErr := l.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return l.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefundFailed,
			AggregateType: aggregateFor(kind),
			AggregateID:   orderID,
			Data: RefundFailedEvent{
				OrderID:         orderID,
				Kind:            kind,
				PaymentIntentID: intentID,
				Reason:          err.Error(),
			},
		})
	})
	if emitErr != nil {
		l.logg.Error(ctx, "record refund failure", emitErr)
	}
	return RefundFailed
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

func requireActor(actor uuid.UUID) error {
	if actor == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return nil
}
