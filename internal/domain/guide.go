package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GuideStatus is the admission status of a guide. It is always derived from
// the guide's staked collateral and the linked user's KYC status; it is never
// set directly by a request.
type GuideStatus string

const (
	GuideStatusPending   GuideStatus = "pending"
	GuideStatusActive    GuideStatus = "active"
	GuideStatusSuspended GuideStatus = "suspended"
)

// ServiceType classifies the kind of tour a guide offers.
type ServiceType string

const (
	ServiceTypeWalkingTour ServiceType = "walking_tour"
	ServiceTypeCarTour     ServiceType = "car_tour"
	ServiceTypeMultiDay    ServiceType = "multi_day"
	ServiceTypeCultural    ServiceType = "cultural"
	ServiceTypeFood        ServiceType = "food"
	ServiceTypeOther       ServiceType = "other"
)

// Guide is a service provider admitted through staked collateral.
//
// StakeAmount is an arbitrary-precision decimal; monetary values never use a
// binary floating type. It is the single source of truth for the guide's
// concurrent-order capacity.
type Guide struct {
	ID           string
	UserID       string
	City         string
	CountryCode  string
	Languages    []string
	ServiceTypes []ServiceType
	Bio          string
	StakeAmount  decimal.Decimal
	Status       GuideStatus
	CreatedAt    time.Time
}
