package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidTransition = errors.New("invalid order state transition")
	ErrCapacityExceeded  = errors.New("guide order capacity exceeded")
	ErrGuideNotActive    = errors.New("guide is not active")
	ErrReviewNotAllowed  = errors.New("review not allowed for order state")
	ErrDisputeNotAllowed = errors.New("dispute not allowed for order state")
	ErrDuplicateInFlight = errors.New("duplicate request in flight")
	ErrDeadlineExceeded  = errors.New("operation deadline exceeded")
	ErrRateLimited       = errors.New("rate limited")
	ErrInvalidArgument   = errors.New("invalid argument")
)
