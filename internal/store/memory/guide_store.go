package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/traveltrust/trustd/internal/domain"
)

// GuideStore keeps guides in memory, keyed by ID with a user-ID index.
type GuideStore struct {
	mu       sync.RWMutex
	guides   map[string]domain.Guide
	byUserID map[string]string
}

// NewGuideStore creates an empty GuideStore.
func NewGuideStore() *GuideStore {
	return &GuideStore{
		guides:   make(map[string]domain.Guide),
		byUserID: make(map[string]string),
	}
}

func (s *GuideStore) Create(ctx context.Context, guide domain.Guide) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guides[guide.ID]; ok {
		return fmt.Errorf("memory: guide %s: %w", guide.ID, domain.ErrAlreadyExists)
	}
	if _, ok := s.byUserID[guide.UserID]; ok {
		return fmt.Errorf("memory: guide for user %s: %w", guide.UserID, domain.ErrAlreadyExists)
	}
	s.guides[guide.ID] = guide
	s.byUserID[guide.UserID] = guide.ID
	return nil
}

func (s *GuideStore) GetByID(ctx context.Context, id string) (domain.Guide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	guide, ok := s.guides[id]
	if !ok {
		return domain.Guide{}, fmt.Errorf("memory: guide %s: %w", id, domain.ErrNotFound)
	}
	return guide, nil
}

func (s *GuideStore) GetByUserID(ctx context.Context, userID string) (domain.Guide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUserID[userID]
	if !ok {
		return domain.Guide{}, fmt.Errorf("memory: guide for user %s: %w", userID, domain.ErrNotFound)
	}
	return s.guides[id], nil
}

func (s *GuideStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Guide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]domain.Guide, 0, len(s.guides))
	for _, g := range s.guides {
		all = append(all, g)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, opts), nil
}

// UpdateStake stores the new stake amount together with the admission status
// derived from it, so the two can never drift apart.
func (s *GuideStore) UpdateStake(ctx context.Context, id string, stakeAmount decimal.Decimal, status domain.GuideStatus) (domain.Guide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	guide, ok := s.guides[id]
	if !ok {
		return domain.Guide{}, fmt.Errorf("memory: guide %s: %w", id, domain.ErrNotFound)
	}
	guide.StakeAmount = stakeAmount
	guide.Status = status
	s.guides[id] = guide
	return guide, nil
}

// paginate applies ListOpts to a sorted slice.
func paginate[T any](items []T, opts domain.ListOpts) []T {
	if opts.Offset >= len(items) {
		return []T{}
	}
	items = items[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}

// Compile-time interface check.
var _ domain.GuideStore = (*GuideStore)(nil)
