package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/traveltrust/trustd/internal/domain"
)

// OrderStore keeps orders in memory. Transition is the only mutation and
// validates against the lifecycle table under the write lock, so an order can
// never be observed mid-transition or left partially mutated.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	now    func() time.Time
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[string]domain.Order),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *OrderStore) Create(ctx context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; ok {
		return fmt.Errorf("memory: order %s: %w", order.ID, domain.ErrAlreadyExists)
	}
	s.orders[order.ID] = order
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("memory: order %s: %w", id, domain.ErrNotFound)
	}
	return order, nil
}

func (s *OrderStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		all = append(all, o)
	}
	sortOrders(all)
	return paginate(all, opts), nil
}

func (s *OrderStore) ListByGuide(ctx context.Context, guideID string, opts domain.ListOpts) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []domain.Order
	for _, o := range s.orders {
		if o.GuideID == guideID {
			matched = append(matched, o)
		}
	}
	sortOrders(matched)
	return paginate(matched, opts), nil
}

// Transition atomically validates and applies a lifecycle transition. It
// returns the updated order and the state it moved from. On an illegal pair
// the stored order is untouched and ErrInvalidTransition is returned.
func (s *OrderStore) Transition(ctx context.Context, id string, target domain.OrderState) (domain.Order, domain.OrderState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, "", fmt.Errorf("memory: order %s: %w", id, domain.ErrNotFound)
	}
	from := order.State
	if err := order.ApplyTransition(target, s.now()); err != nil {
		return domain.Order{}, from, err
	}
	s.orders[id] = order
	return order, from, nil
}

// CountActiveByGuide counts orders holding the guide's capacity (accepted,
// escrowed, or disputed).
func (s *OrderStore) CountActiveByGuide(ctx context.Context, guideID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, o := range s.orders {
		if o.GuideID == guideID && o.State.ActivelyHeld() {
			count++
		}
	}
	return count, nil
}

func sortOrders(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
}

// Compile-time interface check.
var _ domain.OrderStore = (*OrderStore)(nil)
