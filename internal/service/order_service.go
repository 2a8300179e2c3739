package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/traveltrust/trustd/internal/domain"
	"github.com/traveltrust/trustd/internal/stake"
)

// OrderService drives the order lifecycle. All state changes go through the
// store's atomic Transition; admission capacity is reserved on accept and
// released the moment an order leaves its actively-held states.
type OrderService struct {
	orders    domain.OrderStore
	guides    domain.GuideStore
	users     domain.UserStore
	admission *stake.AdmissionController
	bus       domain.EventBus
	logger    *slog.Logger
}

// NewOrderService creates an OrderService with all required dependencies.
func NewOrderService(
	orders domain.OrderStore,
	guides domain.GuideStore,
	users domain.UserStore,
	admission *stake.AdmissionController,
	bus domain.EventBus,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		guides:    guides,
		users:     users,
		admission: admission,
		bus:       bus,
		logger:    logger.With(slog.String("service", "order")),
	}
}

// CreateOrderParams carries the inputs for order creation.
type CreateOrderParams struct {
	TouristID string
	GuideID   string
	Amount    decimal.Decimal
	Currency  string
}

// Create opens a new order in the Created state.
func (s *OrderService) Create(ctx context.Context, params CreateOrderParams) (domain.Order, error) {
	tourist, err := s.users.GetByID(ctx, params.TouristID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order_service: load tourist: %w", err)
	}
	if tourist.Role != domain.UserRoleTourist {
		return domain.Order{}, fmt.Errorf("order_service: user %s has role %s: %w", tourist.ID, tourist.Role, domain.ErrInvalidArgument)
	}
	if _, err := s.guides.GetByID(ctx, params.GuideID); err != nil {
		return domain.Order{}, fmt.Errorf("order_service: load guide: %w", err)
	}
	if !params.Amount.IsPositive() {
		return domain.Order{}, fmt.Errorf("order_service: amount %s must be positive: %w", params.Amount, domain.ErrInvalidArgument)
	}
	if len(params.Currency) != 3 {
		return domain.Order{}, fmt.Errorf("order_service: currency %q: %w", params.Currency, domain.ErrInvalidArgument)
	}

	order := domain.Order{
		ID:        uuid.New().String(),
		TouristID: params.TouristID,
		GuideID:   params.GuideID,
		Amount:    params.Amount,
		Currency:  params.Currency,
		State:     domain.OrderStateCreated,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("order_service: create: %w", err)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("guide_id", order.GuideID),
		slog.String("amount", order.Amount.String()),
	)
	s.publish(ctx, "order.created", order)
	return order, nil
}

// Accept moves an order to Accepted on behalf of its guide. The capacity
// reservation and the transition form one accept operation: if the
// transition is rejected the reservation is returned immediately.
func (s *OrderService) Accept(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order_service: load order: %w", err)
	}
	guideID := order.GuideID

	if err := s.admission.Admit(ctx, guideID); err != nil {
		return domain.Order{}, fmt.Errorf("order_service: admit: %w", err)
	}

	updated, _, err := s.orders.Transition(ctx, orderID, domain.OrderStateAccepted)
	if err != nil {
		s.admission.Release(guideID)
		return domain.Order{}, fmt.Errorf("order_service: accept: %w", err)
	}

	s.logger.InfoContext(ctx, "order accepted",
		slog.String("order_id", orderID),
		slog.String("guide_id", guideID),
		slog.Int("active_orders", s.admission.Active(guideID)),
	)
	s.publish(ctx, "order.accepted", updated)
	return updated, nil
}

// Fund locks the escrow: Accepted -> Escrowed. Actual payment settlement is
// owned by the surrounding service; this records the lock and stamps the
// escrow timestamp.
func (s *OrderService) Fund(ctx context.Context, orderID string) (domain.Order, error) {
	updated, err := s.transition(ctx, orderID, domain.OrderStateEscrowed, "order.escrowed")
	if err != nil {
		return domain.Order{}, fmt.Errorf("order_service: fund: %w", err)
	}
	return updated, nil
}

// ConfirmCompletion settles the order in the guide's favour: Escrowed ->
// Completed.
func (s *OrderService) ConfirmCompletion(ctx context.Context, orderID string) (domain.Order, error) {
	updated, err := s.transition(ctx, orderID, domain.OrderStateCompleted, "order.completed")
	if err != nil {
		return domain.Order{}, fmt.Errorf("order_service: confirm completion: %w", err)
	}
	return updated, nil
}

// Cancel aborts an order. Legal from Created, Accepted, and Escrowed only.
func (s *OrderService) Cancel(ctx context.Context, orderID string) (domain.Order, error) {
	updated, err := s.transition(ctx, orderID, domain.OrderStateCancelled, "order.cancelled")
	if err != nil {
		return domain.Order{}, fmt.Errorf("order_service: cancel: %w", err)
	}
	return updated, nil
}

// Resolve applies a dispute outcome to the order: Disputed -> one of the
// final financial states.
func (s *OrderService) Resolve(ctx context.Context, orderID string, outcome domain.OrderState) (domain.Order, error) {
	updated, err := s.transition(ctx, orderID, outcome, "order.resolved")
	if err != nil {
		return domain.Order{}, fmt.Errorf("order_service: resolve: %w", err)
	}
	return updated, nil
}

// Get returns the order by ID.
func (s *OrderService) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// List returns orders ordered by creation time.
func (s *OrderService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Order, error) {
	return s.orders.List(ctx, opts)
}

// ListByGuide returns a guide's orders ordered by creation time.
func (s *OrderService) ListByGuide(ctx context.Context, guideID string, opts domain.ListOpts) ([]domain.Order, error) {
	return s.orders.ListByGuide(ctx, guideID, opts)
}

// transition applies target atomically and settles the admission slot when
// the order leaves its actively-held states.
func (s *OrderService) transition(ctx context.Context, orderID string, target domain.OrderState, eventType string) (domain.Order, error) {
	updated, from, err := s.orders.Transition(ctx, orderID, target)
	if err != nil {
		return domain.Order{}, err
	}
	if from.ActivelyHeld() && !updated.State.ActivelyHeld() {
		s.admission.Release(updated.GuideID)
	}

	s.logger.InfoContext(ctx, "order transitioned",
		slog.String("order_id", orderID),
		slog.String("from", string(from)),
		slog.String("to", string(updated.State)),
	)
	s.publish(ctx, eventType, updated)
	return updated, nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order domain.Order) {
	publishEvent(ctx, s.bus, s.logger, domain.ChannelOrders, eventType, map[string]any{
		"order_id": order.ID,
		"guide_id": order.GuideID,
		"state":    string(order.State),
		"amount":   order.Amount.String(),
		"currency": order.Currency,
	})
}
