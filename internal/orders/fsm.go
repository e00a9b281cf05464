package orders

import (
	"fmt"

	"github.com/tradehub/tradehub-backend/pkg/enums"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
)

// Action is something that can happen to an order.
type Action string

const (
	ActionAccept      Action = "accept"
	ActionStart       Action = "start"
	ActionAssignStock Action = "assign_stock"
	ActionShip        Action = "ship"
	ActionDeliver     Action = "deliver"
	ActionComplete    Action = "complete"
	ActionCancel      Action = "cancel"
)

type transitionKey struct {
	kind   enums.OrderKind
	from   enums.OrderStatus
	action Action
}

// transitions is the whole order lifecycle for both order kinds. Anything
// missing from the table is rejected.
var transitions = map[transitionKey]enums.OrderStatus{
	{enums.OrderKindWarehouse, enums.OrderStatusPending, ActionAccept}:         enums.OrderStatusAccepted,
	{enums.OrderKindWarehouse, enums.OrderStatusAccepted, ActionAssignStock}:   enums.OrderStatusInProgress,
	{enums.OrderKindWarehouse, enums.OrderStatusInProgress, ActionShip}:        enums.OrderStatusCompleted,
	{enums.OrderKindWarehouse, enums.OrderStatusCompleted, ActionDeliver}:      enums.OrderStatusDelivered,
	{enums.OrderKindWarehouse, enums.OrderStatusPending, ActionCancel}:         enums.OrderStatusCancelled,
	{enums.OrderKindGig, enums.OrderStatusPending, ActionStart}:                enums.OrderStatusInProgress,
	{enums.OrderKindGig, enums.OrderStatusInProgress, ActionDeliver}:           enums.OrderStatusDelivered,
	{enums.OrderKindGig, enums.OrderStatusDelivered, ActionComplete}:           enums.OrderStatusCompleted,
	{enums.OrderKindGig, enums.OrderStatusPending, ActionCancel}:               enums.OrderStatusCancelled,
}

// manualActions are the actions a seller may trigger through a plain status
// update. Stock assignment, shipping and cancellation have their own entry points.
var manualActions = map[enums.OrderKind][]Action{
	enums.OrderKindGig:       {ActionStart, ActionDeliver, ActionComplete},
	enums.OrderKindWarehouse: {ActionAccept},
}

// Next returns the status action leads to from the current status.
func Next(kind enums.OrderKind, from enums.OrderStatus, action Action) (enums.OrderStatus, error) {
	to, ok := transitions[transitionKey{kind: kind, from: from, action: action}]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot %s a %s order in status %s", humanAction(action), kind, from)).
			WithDetails(map[string]string{"status": string(from), "action": string(action)})
	}
	return to, nil
}

// ManualAction resolves a requested status change to the seller action that
// performs it. Only the immediate next status is reachable.
func ManualAction(kind enums.OrderKind, from, to enums.OrderStatus) (Action, error) {
	for _, action := range manualActions[kind] {
		if next, ok := transitions[transitionKey{kind: kind, from: from, action: action}]; ok && next == to {
			return action, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("%s order cannot move from %s to %s", kind, from, to)).
		WithDetails(map[string]string{"from": string(from), "to": string(to)})
}

func humanAction(a Action) string {
	if a == ActionAssignStock {
		return "assign stock to"
	}
	return string(a)
}
