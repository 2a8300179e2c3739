package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderState is the escrow lifecycle state of an order.
type OrderState string

const (
	OrderStateCreated           OrderState = "created"
	OrderStateAccepted          OrderState = "accepted"
	OrderStateEscrowed          OrderState = "escrowed"
	OrderStateCompleted         OrderState = "completed"
	OrderStateDisputed          OrderState = "disputed"
	OrderStateRefunded          OrderState = "refunded"
	OrderStatePartiallyRefunded OrderState = "partially_refunded"
	OrderStateSlashed           OrderState = "slashed"
	OrderStateCancelled         OrderState = "cancelled"
)

// legalTransitions is the full transition table. Any (source, target) pair not
// present here is rejected; there is no other place that decides legality.
var legalTransitions = map[OrderState][]OrderState{
	OrderStateCreated:  {OrderStateAccepted, OrderStateCancelled},
	OrderStateAccepted: {OrderStateEscrowed, OrderStateCancelled},
	OrderStateEscrowed: {OrderStateCompleted, OrderStateDisputed, OrderStateCancelled},
	OrderStateDisputed: {OrderStateRefunded, OrderStatePartiallyRefunded, OrderStateSlashed, OrderStateCompleted},
}

// AllOrderStates enumerates every lifecycle state, useful for exhaustive checks.
var AllOrderStates = []OrderState{
	OrderStateCreated,
	OrderStateAccepted,
	OrderStateEscrowed,
	OrderStateCompleted,
	OrderStateDisputed,
	OrderStateRefunded,
	OrderStatePartiallyRefunded,
	OrderStateSlashed,
	OrderStateCancelled,
}

// IsFinalFinancial reports whether no further escrow-affecting transition is
// legal from s. Review submission is gated on exactly this set.
func (s OrderState) IsFinalFinancial() bool {
	switch s {
	case OrderStateCompleted, OrderStateRefunded, OrderStatePartiallyRefunded, OrderStateSlashed:
		return true
	default:
		return false
	}
}

// ActivelyHeld reports whether an order in state s counts against its guide's
// concurrent-order capacity.
func (s OrderState) ActivelyHeld() bool {
	switch s {
	case OrderStateAccepted, OrderStateEscrowed, OrderStateDisputed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether target is a legal next state from s.
func (s OrderState) CanTransitionTo(target OrderState) bool {
	for _, t := range legalTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// CanReview reports whether reviews may be submitted for an order in state s.
// Only settled money allows reviews; this keeps reputation manipulation on
// unsettled orders impossible.
func CanReview(s OrderState) bool {
	return s.IsFinalFinancial()
}

// CanDispute reports whether a dispute may be opened for an order in state s.
// Disputes are only meaningful while funds are locked.
func CanDispute(s OrderState) bool {
	return s == OrderStateEscrowed
}

// Order is a booking between a tourist and a guide, escrow-gated through the
// lifecycle state machine.
type Order struct {
	ID          string
	TouristID   string
	GuideID     string
	Amount      decimal.Decimal
	Currency    string
	State       OrderState
	EscrowedAt  *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// ApplyTransition validates and applies a transition to target. On an illegal
// pair it returns ErrInvalidTransition and leaves the order untouched. The
// escrow and completion timestamps are stamped exactly once, on the
// corresponding transition, and are never reset.
func (o *Order) ApplyTransition(target OrderState, now time.Time) error {
	if !o.State.CanTransitionTo(target) {
		return fmt.Errorf("domain: order %s: %s -> %s: %w", o.ID, o.State, target, ErrInvalidTransition)
	}
	switch target {
	case OrderStateEscrowed:
		if o.EscrowedAt == nil {
			ts := now
			o.EscrowedAt = &ts
		}
	case OrderStateCompleted:
		if o.CompletedAt == nil {
			ts := now
			o.CompletedAt = &ts
		}
	}
	o.State = target
	return nil
}
