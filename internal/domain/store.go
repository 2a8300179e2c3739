package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// UserStore persists marketplace users. Roles are immutable: there is
// deliberately no method that changes a user's role after creation.
type UserStore interface {
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	SetKYCStatus(ctx context.Context, id string, status KYCStatus) (User, error)
}

// GuideStore persists guides. Status updates always travel together with the
// stake change that caused them, so a stored status can never drift from the
// stake it was derived from.
type GuideStore interface {
	Create(ctx context.Context, guide Guide) error
	GetByID(ctx context.Context, id string) (Guide, error)
	GetByUserID(ctx context.Context, userID string) (Guide, error)
	List(ctx context.Context, opts ListOpts) ([]Guide, error)
	UpdateStake(ctx context.Context, id string, stake decimal.Decimal, status GuideStatus) (Guide, error)
}

// OrderStore persists orders. Transition is the only mutation: it validates
// the target against the legal-transition table and applies it atomically,
// returning the updated order together with the state it moved from.
type OrderStore interface {
	Create(ctx context.Context, order Order) error
	GetByID(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, opts ListOpts) ([]Order, error)
	ListByGuide(ctx context.Context, guideID string, opts ListOpts) ([]Order, error)
	Transition(ctx context.Context, id string, target OrderState) (Order, OrderState, error)
	CountActiveByGuide(ctx context.Context, guideID string) (int, error)
}

// DisputeStore persists disputes. Resolve stores the resolution exactly once;
// a second Resolve for the same dispute fails.
type DisputeStore interface {
	Create(ctx context.Context, dispute Dispute) error
	GetByID(ctx context.Context, id string) (Dispute, error)
	List(ctx context.Context, opts ListOpts) ([]Dispute, error)
	Assign(ctx context.Context, id, arbitratorID string) (Dispute, error)
	AppendEvidence(ctx context.Context, id, hash string) (Dispute, error)
	Resolve(ctx context.Context, id string, res DisputeResolution, at time.Time) (Dispute, error)
}

// ReviewStore persists reviews. Weights are not stored; they are recomputed
// from current facts whenever a score is read.
type ReviewStore interface {
	Create(ctx context.Context, review Review) error
	ListByOrder(ctx context.Context, orderID string) ([]Review, error)
	ListByGuide(ctx context.Context, guideID string) ([]Review, error)
}
