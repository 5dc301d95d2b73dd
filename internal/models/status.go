package models

import "fmt"

// OrderStatus is the lifecycle state of an order. The lifecycle is strictly
// linear: CONFIRMED → PREPARING → READY → ON_THE_WAY → DELIVERED. No
// branching, no cycles, no skipping.
type OrderStatus string

const (
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusPreparing OrderStatus = "PREPARING"
	StatusReady     OrderStatus = "READY"
	StatusOnTheWay  OrderStatus = "ON_THE_WAY"
	StatusDelivered OrderStatus = "DELIVERED"
)

// nextStatus is the single source of truth for legal transitions. DELIVERED
// has no successor.
var nextStatus = map[OrderStatus]OrderStatus{
	StatusConfirmed: StatusPreparing,
	StatusPreparing: StatusReady,
	StatusReady:     StatusOnTheWay,
	StatusOnTheWay:  StatusDelivered,
}

// InvalidTransitionError reports a status change that violates the linear
// lifecycle.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// IsValidStatus reports whether s is one of the five lifecycle states.
func IsValidStatus(s OrderStatus) bool {
	if s == StatusDelivered {
		return true
	}
	_, ok := nextStatus[s]
	return ok
}

// ValidateTransition checks a requested status change against the lifecycle
// table. Re-applying the current status is allowed and treated as a no-op
// success; anything other than the single successor fails.
func ValidateTransition(from, to OrderStatus) error {
	if from == to {
		return nil
	}
	if nextStatus[from] == to {
		return nil
	}
	return &InvalidTransitionError{From: from, To: to}
}

// NextStatus returns the sole legal successor of s, or "" when s is terminal.
func NextStatus(s OrderStatus) OrderStatus {
	return nextStatus[s]
}
