package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/traveltrust/trustd/internal/domain"
)

// DisputeService adjudicates escrowed orders. Opening a dispute moves the
// order to Disputed; resolving it moves the order to the final financial
// state implied by the resolution and freezes the resolution forever.
type DisputeService struct {
	disputes domain.DisputeStore
	orders   *OrderService
	users    domain.UserStore
	bus      domain.EventBus
	logger   *slog.Logger
}

// NewDisputeService creates a DisputeService.
func NewDisputeService(
	disputes domain.DisputeStore,
	orders *OrderService,
	users domain.UserStore,
	bus domain.EventBus,
	logger *slog.Logger,
) *DisputeService {
	return &DisputeService{
		disputes: disputes,
		orders:   orders,
		users:    users,
		bus:      bus,
		logger:   logger.With(slog.String("service", "dispute")),
	}
}

// Open creates a dispute for an escrowed order. Disputes may not be opened
// before funds are locked or after settlement.
func (s *DisputeService) Open(ctx context.Context, orderID string, evidenceHashes []string) (domain.Dispute, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Dispute{}, fmt.Errorf("dispute_service: load order: %w", err)
	}
	if !domain.CanDispute(order.State) {
		return domain.Dispute{}, fmt.Errorf("dispute_service: order %s in state %s: %w", orderID, order.State, domain.ErrDisputeNotAllowed)
	}

	if _, err := s.orders.transition(ctx, orderID, domain.OrderStateDisputed, "order.disputed"); err != nil {
		// A concurrent transition won the race between the gate check and
		// the state change.
		if errors.Is(err, domain.ErrInvalidTransition) {
			return domain.Dispute{}, fmt.Errorf("dispute_service: order %s: %w", orderID, domain.ErrDisputeNotAllowed)
		}
		return domain.Dispute{}, fmt.Errorf("dispute_service: dispute order: %w", err)
	}

	dispute := domain.Dispute{
		ID:             uuid.New().String(),
		OrderID:        orderID,
		Status:         domain.DisputeStatusOpen,
		EvidenceHashes: evidenceHashes,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.disputes.Create(ctx, dispute); err != nil {
		return domain.Dispute{}, fmt.Errorf("dispute_service: create: %w", err)
	}

	s.logger.InfoContext(ctx, "dispute opened",
		slog.String("dispute_id", dispute.ID),
		slog.String("order_id", orderID),
		slog.Int("evidence_count", len(evidenceHashes)),
	)
	s.publish(ctx, "dispute.opened", dispute)
	return dispute, nil
}

// Assign attaches an arbitrator to the dispute.
func (s *DisputeService) Assign(ctx context.Context, disputeID, arbitratorID string) (domain.Dispute, error) {
	arbitrator, err := s.users.GetByID(ctx, arbitratorID)
	if err != nil {
		return domain.Dispute{}, fmt.Errorf("dispute_service: load arbitrator: %w", err)
	}
	if arbitrator.Role != domain.UserRoleArbitrator {
		return domain.Dispute{}, fmt.Errorf("dispute_service: user %s has role %s: %w", arbitratorID, arbitrator.Role, domain.ErrInvalidArgument)
	}
	dispute, err := s.disputes.Assign(ctx, disputeID, arbitratorID)
	if err != nil {
		return domain.Dispute{}, fmt.Errorf("dispute_service: assign: %w", err)
	}
	s.publish(ctx, "dispute.assigned", dispute)
	return dispute, nil
}

// AppendEvidence adds one evidence reference to an unresolved dispute.
func (s *DisputeService) AppendEvidence(ctx context.Context, disputeID, hash string) (domain.Dispute, error) {
	if hash == "" {
		return domain.Dispute{}, fmt.Errorf("dispute_service: empty evidence hash: %w", domain.ErrInvalidArgument)
	}
	dispute, err := s.disputes.AppendEvidence(ctx, disputeID, hash)
	if err != nil {
		return domain.Dispute{}, fmt.Errorf("dispute_service: append evidence: %w", err)
	}
	return dispute, nil
}

// Resolve records the adjudication exactly once and settles the order. The
// refund ratio is clamped into [0.0, 1.0] before anything is stored.
func (s *DisputeService) Resolve(ctx context.Context, disputeID string, refundRatio float64, slashGuide bool) (domain.Dispute, error) {
	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return domain.Dispute{}, fmt.Errorf("dispute_service: load dispute: %w", err)
	}
	if dispute.Resolution != nil {
		return domain.Dispute{}, fmt.Errorf("dispute_service: dispute %s already resolved: %w", disputeID, domain.ErrAlreadyExists)
	}

	res := domain.NewDisputeResolution(refundRatio, slashGuide)
	outcome := res.OrderOutcome()

	if _, err := s.orders.Resolve(ctx, dispute.OrderID, outcome); err != nil {
		return domain.Dispute{}, fmt.Errorf("dispute_service: settle order: %w", err)
	}

	resolved, err := s.disputes.Resolve(ctx, disputeID, res, time.Now().UTC())
	if err != nil {
		return domain.Dispute{}, fmt.Errorf("dispute_service: resolve: %w", err)
	}

	s.logger.InfoContext(ctx, "dispute resolved",
		slog.String("dispute_id", disputeID),
		slog.String("order_id", dispute.OrderID),
		slog.Float64("refund_ratio", res.RefundRatio),
		slog.Bool("slash_guide", res.SlashGuide),
		slog.String("outcome", string(outcome)),
	)
	s.publish(ctx, "dispute.resolved", resolved)
	return resolved, nil
}

// Get returns the dispute by ID.
func (s *DisputeService) Get(ctx context.Context, id string) (domain.Dispute, error) {
	return s.disputes.GetByID(ctx, id)
}

// List returns disputes ordered by creation time.
func (s *DisputeService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Dispute, error) {
	return s.disputes.List(ctx, opts)
}

func (s *DisputeService) publish(ctx context.Context, eventType string, dispute domain.Dispute) {
	data := map[string]any{
		"dispute_id": dispute.ID,
		"order_id":   dispute.OrderID,
		"status":     string(dispute.Status),
	}
	if dispute.Resolution != nil {
		data["refund_ratio"] = dispute.Resolution.RefundRatio
		data["slash_guide"] = dispute.Resolution.SlashGuide
	}
	publishEvent(ctx, s.bus, s.logger, domain.ChannelDisputes, eventType, data)
}
