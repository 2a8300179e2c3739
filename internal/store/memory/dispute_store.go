package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/traveltrust/trustd/internal/domain"
)

// DisputeStore keeps disputes in memory. A resolution is written exactly
// once; the dispute owns it afterwards and no method can change it.
type DisputeStore struct {
	mu       sync.RWMutex
	disputes map[string]domain.Dispute
}

// NewDisputeStore creates an empty DisputeStore.
func NewDisputeStore() *DisputeStore {
	return &DisputeStore{disputes: make(map[string]domain.Dispute)}
}

func (s *DisputeStore) Create(ctx context.Context, dispute domain.Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.disputes[dispute.ID]; ok {
		return fmt.Errorf("memory: dispute %s: %w", dispute.ID, domain.ErrAlreadyExists)
	}
	s.disputes[dispute.ID] = cloneDispute(dispute)
	return nil
}

func (s *DisputeStore) GetByID(ctx context.Context, id string) (domain.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dispute, ok := s.disputes[id]
	if !ok {
		return domain.Dispute{}, fmt.Errorf("memory: dispute %s: %w", id, domain.ErrNotFound)
	}
	return cloneDispute(dispute), nil
}

func (s *DisputeStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]domain.Dispute, 0, len(s.disputes))
	for _, d := range s.disputes {
		all = append(all, cloneDispute(d))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, opts), nil
}

// Assign attaches an arbitrator to an open dispute.
func (s *DisputeStore) Assign(ctx context.Context, id, arbitratorID string) (domain.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dispute, ok := s.disputes[id]
	if !ok {
		return domain.Dispute{}, fmt.Errorf("memory: dispute %s: %w", id, domain.ErrNotFound)
	}
	if dispute.Status == domain.DisputeStatusResolved {
		return domain.Dispute{}, fmt.Errorf("memory: dispute %s already resolved: %w", id, domain.ErrAlreadyExists)
	}
	arb := arbitratorID
	dispute.ArbitratorID = &arb
	dispute.Status = domain.DisputeStatusAssigned
	s.disputes[id] = dispute
	return cloneDispute(dispute), nil
}

// AppendEvidence appends one evidence reference, preserving submission order.
func (s *DisputeStore) AppendEvidence(ctx context.Context, id, hash string) (domain.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dispute, ok := s.disputes[id]
	if !ok {
		return domain.Dispute{}, fmt.Errorf("memory: dispute %s: %w", id, domain.ErrNotFound)
	}
	if dispute.Status == domain.DisputeStatusResolved {
		return domain.Dispute{}, fmt.Errorf("memory: dispute %s already resolved: %w", id, domain.ErrAlreadyExists)
	}
	dispute.EvidenceHashes = append(dispute.EvidenceHashes, hash)
	s.disputes[id] = dispute
	return cloneDispute(dispute), nil
}

// Resolve stores the resolution and resolution timestamp exactly once.
func (s *DisputeStore) Resolve(ctx context.Context, id string, res domain.DisputeResolution, at time.Time) (domain.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dispute, ok := s.disputes[id]
	if !ok {
		return domain.Dispute{}, fmt.Errorf("memory: dispute %s: %w", id, domain.ErrNotFound)
	}
	if dispute.Resolution != nil {
		return domain.Dispute{}, fmt.Errorf("memory: dispute %s already resolved: %w", id, domain.ErrAlreadyExists)
	}
	resCopy := res
	ts := at
	dispute.Resolution = &resCopy
	dispute.ResolvedAt = &ts
	dispute.Status = domain.DisputeStatusResolved
	s.disputes[id] = dispute
	return cloneDispute(dispute), nil
}

// cloneDispute copies the dispute so callers cannot mutate stored evidence or
// resolution through the returned value.
func cloneDispute(d domain.Dispute) domain.Dispute {
	out := d
	if d.EvidenceHashes != nil {
		out.EvidenceHashes = make([]string, len(d.EvidenceHashes))
		copy(out.EvidenceHashes, d.EvidenceHashes)
	}
	if d.ArbitratorID != nil {
		arb := *d.ArbitratorID
		out.ArbitratorID = &arb
	}
	if d.Resolution != nil {
		res := *d.Resolution
		out.Resolution = &res
	}
	if d.ResolvedAt != nil {
		ts := *d.ResolvedAt
		out.ResolvedAt = &ts
	}
	return out
}

// Compile-time interface check.
var _ domain.DisputeStore = (*DisputeStore)(nil)
