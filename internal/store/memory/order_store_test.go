package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/traveltrust/trustd/internal/domain"
)

func newOrder(id, guideID string, state domain.OrderState, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:        id,
		TouristID: "tourist",
		GuideID:   guideID,
		Amount:    decimal.NewFromInt(100),
		Currency:  "EUR",
		State:     state,
		CreatedAt: createdAt,
	}
}

func TestOrderStore_TransitionReturnsPreviousState(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	if err := s.Create(ctx, newOrder("o1", "g1", domain.OrderStateCreated, time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, from, err := s.Transition(ctx, "o1", domain.OrderStateAccepted)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if from != domain.OrderStateCreated {
		t.Errorf("from = %s, want created", from)
	}
	if updated.State != domain.OrderStateAccepted {
		t.Errorf("state = %s, want accepted", updated.State)
	}
}

func TestOrderStore_TransitionRejectsIllegalPairUntouched(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	if err := s.Create(ctx, newOrder("o1", "g1", domain.OrderStateCreated, time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, _, err := s.Transition(ctx, "o1", domain.OrderStateEscrowed)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("error = %v, want ErrInvalidTransition", err)
	}

	stored, err := s.GetByID(ctx, "o1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.State != domain.OrderStateCreated || stored.EscrowedAt != nil {
		t.Errorf("order mutated by rejected transition: %+v", stored)
	}
}

func TestOrderStore_TransitionUnknownOrder(t *testing.T) {
	s := NewOrderStore()
	_, _, err := s.Transition(context.Background(), "missing", domain.OrderStateAccepted)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestOrderStore_ConcurrentTransitionsApplyOnce(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	if err := s.Create(ctx, newOrder("o1", "g1", domain.OrderStateCreated, time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	const racers = 20
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Transition(ctx, "o1", domain.OrderStateAccepted)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	won := 0
	for err := range errs {
		if err == nil {
			won++
		} else if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Errorf("%d racers won, want exactly 1", won)
	}
}

func TestOrderStore_ListOrderedByCreation(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"c", "a", "b"} {
		// Insert out of creation order on purpose.
		offset := []int{2, 0, 1}[i]
		if err := s.Create(ctx, newOrder(id, "g1", domain.OrderStateCreated, base.Add(time.Duration(offset)*time.Second))); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	orders, err := s.List(ctx, domain.ListOpts{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := make([]string, len(orders))
	for i, o := range orders {
		got[i] = o.ID
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("list order = %v, want %v", got, want)
		}
	}
}

func TestOrderStore_CountActiveByGuide(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	now := time.Now()

	states := map[string]domain.OrderState{
		"o1": domain.OrderStateAccepted,
		"o2": domain.OrderStateEscrowed,
		"o3": domain.OrderStateDisputed,
		"o4": domain.OrderStateCompleted,
		"o5": domain.OrderStateCreated,
	}
	for id, state := range states {
		if err := s.Create(ctx, newOrder(id, "g1", state, now)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := s.Create(ctx, newOrder("other", "g2", domain.OrderStateAccepted, now)); err != nil {
		t.Fatalf("create other: %v", err)
	}

	count, err := s.CountActiveByGuide(ctx, "g1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}
