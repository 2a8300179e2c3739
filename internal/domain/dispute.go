package domain

import (
	"math"
	"time"
)

// DisputeStatus tracks the adjudication lifecycle of a dispute.
type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusAssigned DisputeStatus = "assigned"
	DisputeStatusResolved DisputeStatus = "resolved"
)

// Dispute is the adjudication record for a disputed order. A dispute may only
// be created while the order is Escrowed; creation moves the order to
// Disputed. Once Resolution is set it is immutable.
type Dispute struct {
	ID             string
	OrderID        string
	Status         DisputeStatus
	EvidenceHashes []string
	ArbitratorID   *string
	Resolution     *DisputeResolution
	ResolvedAt     *time.Time
	CreatedAt      time.Time
}

// DisputeResolution is the terminal adjudication of a dispute.
type DisputeResolution struct {
	// RefundRatio is the share of the escrowed amount returned to the
	// tourist, always within [0.0, 1.0].
	RefundRatio float64
	// SlashGuide forfeits the guide's staked collateral.
	SlashGuide bool
}

// NewDisputeResolution builds a resolution with the refund ratio clamped into
// [0.0, 1.0]. Out-of-range and NaN inputs are never stored.
func NewDisputeResolution(refundRatio float64, slashGuide bool) DisputeResolution {
	if math.IsNaN(refundRatio) || refundRatio < 0 {
		refundRatio = 0
	} else if refundRatio > 1 {
		refundRatio = 1
	}
	return DisputeResolution{RefundRatio: refundRatio, SlashGuide: slashGuide}
}

// OrderOutcome maps the resolution onto the order's final financial state.
// Slashing dominates; otherwise the refund ratio decides between a full
// refund, a partial refund, and completion in the guide's favour.
func (r DisputeResolution) OrderOutcome() OrderState {
	switch {
	case r.SlashGuide:
		return OrderStateSlashed
	case r.RefundRatio >= 1:
		return OrderStateRefunded
	case r.RefundRatio <= 0:
		return OrderStateCompleted
	default:
		return OrderStatePartiallyRefunded
	}
}
