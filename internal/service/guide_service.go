package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/traveltrust/trustd/internal/domain"
	"github.com/traveltrust/trustd/internal/stake"
)

// GuideService manages guide registration and staked collateral. Admission
// status is always derived from the current stake and the linked user's KYC
// status; there is no API that sets it directly.
type GuideService struct {
	guides domain.GuideStore
	users  domain.UserStore
	bus    domain.EventBus
	logger *slog.Logger
}

// NewGuideService creates a GuideService.
func NewGuideService(guides domain.GuideStore, users domain.UserStore, bus domain.EventBus, logger *slog.Logger) *GuideService {
	return &GuideService{
		guides: guides,
		users:  users,
		bus:    bus,
		logger: logger.With(slog.String("service", "guide")),
	}
}

// RegisterGuideParams carries the inputs for guide registration.
type RegisterGuideParams struct {
	UserID       string
	City         string
	CountryCode  string
	Languages    []string
	ServiceTypes []domain.ServiceType
	Bio          string
	StakeAmount  decimal.Decimal
}

// Register creates a guide profile for an existing user with the guide role.
func (s *GuideService) Register(ctx context.Context, params RegisterGuideParams) (domain.Guide, error) {
	user, err := s.users.GetByID(ctx, params.UserID)
	if err != nil {
		return domain.Guide{}, fmt.Errorf("guide_service: load user: %w", err)
	}
	if user.Role != domain.UserRoleGuide {
		return domain.Guide{}, fmt.Errorf("guide_service: user %s has role %s: %w", user.ID, user.Role, domain.ErrInvalidArgument)
	}
	if params.City == "" || params.CountryCode == "" {
		return domain.Guide{}, fmt.Errorf("guide_service: city and country code required: %w", domain.ErrInvalidArgument)
	}
	if params.StakeAmount.IsNegative() {
		return domain.Guide{}, fmt.Errorf("guide_service: negative stake %s: %w", params.StakeAmount, domain.ErrInvalidArgument)
	}

	guide := domain.Guide{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		City:         params.City,
		CountryCode:  params.CountryCode,
		Languages:    params.Languages,
		ServiceTypes: params.ServiceTypes,
		Bio:          params.Bio,
		StakeAmount:  params.StakeAmount,
		Status:       deriveStatus(user, params.StakeAmount, domain.GuideStatusPending),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.guides.Create(ctx, guide); err != nil {
		return domain.Guide{}, fmt.Errorf("guide_service: create: %w", err)
	}

	s.logger.InfoContext(ctx, "guide registered",
		slog.String("guide_id", guide.ID),
		slog.String("status", string(guide.Status)),
		slog.String("stake", guide.StakeAmount.String()),
	)
	s.publish(ctx, "guide.registered", guide)
	return guide, nil
}

// Get returns the guide by ID.
func (s *GuideService) Get(ctx context.Context, id string) (domain.Guide, error) {
	return s.guides.GetByID(ctx, id)
}

// List returns guides ordered by registration time.
func (s *GuideService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Guide, error) {
	return s.guides.List(ctx, opts)
}

// UpdateStake records a new staked amount and re-derives the admission
// status. Capacity changes take effect immediately: the admission controller
// reads the stored stake on every check.
func (s *GuideService) UpdateStake(ctx context.Context, guideID string, stakeAmount decimal.Decimal) (domain.Guide, error) {
	if stakeAmount.IsNegative() {
		return domain.Guide{}, fmt.Errorf("guide_service: negative stake %s: %w", stakeAmount, domain.ErrInvalidArgument)
	}
	guide, err := s.guides.GetByID(ctx, guideID)
	if err != nil {
		return domain.Guide{}, fmt.Errorf("guide_service: load guide: %w", err)
	}
	user, err := s.users.GetByID(ctx, guide.UserID)
	if err != nil {
		return domain.Guide{}, fmt.Errorf("guide_service: load user: %w", err)
	}

	status := deriveStatus(user, stakeAmount, guide.Status)
	updated, err := s.guides.UpdateStake(ctx, guideID, stakeAmount, status)
	if err != nil {
		return domain.Guide{}, fmt.Errorf("guide_service: update stake: %w", err)
	}

	s.logger.InfoContext(ctx, "guide stake updated",
		slog.String("guide_id", guideID),
		slog.String("stake", stakeAmount.String()),
		slog.String("status", string(status)),
	)
	s.publish(ctx, "guide.stake_updated", updated)
	return updated, nil
}

// RefreshStatusForUser re-derives the admission status of the guide linked to
// userID after a verification change. Users without a guide profile are a
// no-op.
func (s *GuideService) RefreshStatusForUser(ctx context.Context, userID string) error {
	guide, err := s.guides.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("guide_service: load guide: %w", err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("guide_service: load user: %w", err)
	}
	status := deriveStatus(user, guide.StakeAmount, guide.Status)
	if status == guide.Status {
		return nil
	}
	if _, err := s.guides.UpdateStake(ctx, guide.ID, guide.StakeAmount, status); err != nil {
		return fmt.Errorf("guide_service: refresh status: %w", err)
	}
	return nil
}

// deriveStatus computes the admission status. Suspension is a moderation
// decision and sticky: stake or KYC changes never lift it. Otherwise a guide
// is active exactly when the user is verified and the stake reaches the
// lowest tier.
func deriveStatus(user domain.User, stakeAmount decimal.Decimal, current domain.GuideStatus) domain.GuideStatus {
	if current == domain.GuideStatusSuspended {
		return domain.GuideStatusSuspended
	}
	if user.KYCStatus != domain.KYCStatusVerified {
		return domain.GuideStatusPending
	}
	if _, ok := stake.TierFor(stakeAmount); !ok {
		return domain.GuideStatusPending
	}
	return domain.GuideStatusActive
}

func (s *GuideService) publish(ctx context.Context, event string, guide domain.Guide) {
	publishEvent(ctx, s.bus, s.logger, domain.ChannelGuides, event, map[string]any{
		"guide_id": guide.ID,
		"status":   string(guide.Status),
		"stake":    guide.StakeAmount.String(),
	})
}
