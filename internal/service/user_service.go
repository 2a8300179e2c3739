// Package service implements the marketplace use cases on top of the domain
// stores: registration, stake admission, the order lifecycle, disputes, and
// reviews.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/traveltrust/trustd/internal/domain"
)

// UserService manages participant identities. Credential handling and session
// verification are owned by the surrounding service; this layer only tracks
// who exists and their verification status.
type UserService struct {
	users  domain.UserStore
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users domain.UserStore, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger.With(slog.String("service", "user")),
	}
}

// RegisterUserParams carries the inputs for user registration.
type RegisterUserParams struct {
	Email string
	Role  domain.UserRole
}

// Register creates a user with the given role. The role is fixed for the
// lifetime of the account.
func (s *UserService) Register(ctx context.Context, params RegisterUserParams) (domain.User, error) {
	email := strings.TrimSpace(params.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("user_service: email %q: %w", params.Email, domain.ErrInvalidArgument)
	}
	if !domain.ValidRole(params.Role) {
		return domain.User{}, fmt.Errorf("user_service: role %q: %w", params.Role, domain.ErrInvalidArgument)
	}

	user := domain.User{
		ID:        uuid.New().String(),
		Email:     email,
		Role:      params.Role,
		KYCStatus: domain.KYCStatusNone,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("user_service: create: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Get returns the user by ID.
func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// SetKYCStatus records the outcome of an external identity verification.
func (s *UserService) SetKYCStatus(ctx context.Context, id string, status domain.KYCStatus) (domain.User, error) {
	switch status {
	case domain.KYCStatusNone, domain.KYCStatusPending, domain.KYCStatusVerified:
	default:
		return domain.User{}, fmt.Errorf("user_service: kyc status %q: %w", status, domain.ErrInvalidArgument)
	}
	user, err := s.users.SetKYCStatus(ctx, id, status)
	if err != nil {
		return domain.User{}, fmt.Errorf("user_service: set kyc: %w", err)
	}
	return user, nil
}
