package domain

import "time"

// UserRole is fixed at registration and never changes afterwards; stores do
// not expose any role mutation.
type UserRole string

const (
	UserRoleTourist    UserRole = "tourist"
	UserRoleGuide      UserRole = "guide"
	UserRoleArbitrator UserRole = "arbitrator"
)

// KYCStatus tracks identity verification progress.
type KYCStatus string

const (
	KYCStatusNone     KYCStatus = "none"
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusVerified KYCStatus = "verified"
)

// User is a registered marketplace participant.
type User struct {
	ID        string
	Email     string
	Role      UserRole
	KYCStatus KYCStatus
	CreatedAt time.Time
}

// ValidRole reports whether r is one of the known user roles.
func ValidRole(r UserRole) bool {
	switch r {
	case UserRoleTourist, UserRoleGuide, UserRoleArbitrator:
		return true
	default:
		return false
	}
}

// AccountAgeDays returns the whole days elapsed since the user registered.
func (u User) AccountAgeDays(now time.Time) int {
	if now.Before(u.CreatedAt) {
		return 0
	}
	return int(now.Sub(u.CreatedAt).Hours() / 24)
}
