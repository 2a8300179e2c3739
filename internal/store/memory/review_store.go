package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/traveltrust/trustd/internal/domain"
)

// ReviewStore keeps reviews in memory. Weights are never stored here; the
// reputation calculator derives them on read.
type ReviewStore struct {
	mu      sync.RWMutex
	reviews map[string]domain.Review
}

// NewReviewStore creates an empty ReviewStore.
func NewReviewStore() *ReviewStore {
	return &ReviewStore{reviews: make(map[string]domain.Review)}
}

func (s *ReviewStore) Create(ctx context.Context, review domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[review.ID]; ok {
		return fmt.Errorf("memory: review %s: %w", review.ID, domain.ErrAlreadyExists)
	}
	s.reviews[review.ID] = review
	return nil
}

func (s *ReviewStore) ListByOrder(ctx context.Context, orderID string) ([]domain.Review, error) {
	return s.list(func(r domain.Review) bool { return r.OrderID == orderID })
}

func (s *ReviewStore) ListByGuide(ctx context.Context, guideID string) ([]domain.Review, error) {
	return s.list(func(r domain.Review) bool { return r.GuideID == guideID })
}

func (s *ReviewStore) list(match func(domain.Review) bool) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Compile-time interface check.
var _ domain.ReviewStore = (*ReviewStore)(nil)
