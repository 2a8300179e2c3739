package stake

import (
	"context"
	"fmt"
	"sync"

	"github.com/traveltrust/trustd/internal/domain"
)

// GuideSource reads the current guide record. The controller never caches
// stake or capacity; every admission check reads the live stake amount.
type GuideSource interface {
	GetByID(ctx context.Context, id string) (domain.Guide, error)
}

// AdmissionController enforces per-guide concurrent-order capacity. The
// capacity check and the count increment happen under one per-guide mutex so
// two concurrent accept calls can never jointly exceed the cap.
type AdmissionController struct {
	guides GuideSource

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	mu     sync.Mutex
	active int
}

// NewAdmissionController creates a controller backed by the given guide source.
func NewAdmissionController(guides GuideSource) *AdmissionController {
	return &AdmissionController{
		guides: guides,
		slots:  make(map[string]*slot),
	}
}

func (c *AdmissionController) slotFor(guideID string) *slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[guideID]
	if !ok {
		s = &slot{}
		c.slots[guideID] = s
	}
	return s
}

// Admit reserves one unit of the guide's order capacity. It returns
// ErrGuideNotActive when the guide is not admitted to the marketplace, and
// ErrCapacityExceeded when the guide already holds as many active orders as
// their stake tier allows. The caller must pair a successful Admit with a
// later Release when the order leaves its actively-held states.
func (c *AdmissionController) Admit(ctx context.Context, guideID string) error {
	s := c.slotFor(guideID)
	s.mu.Lock()
	defer s.mu.Unlock()

	guide, err := c.guides.GetByID(ctx, guideID)
	if err != nil {
		return fmt.Errorf("stake: load guide %s: %w", guideID, err)
	}
	if guide.Status != domain.GuideStatusActive {
		return fmt.Errorf("stake: guide %s status %s: %w", guideID, guide.Status, domain.ErrGuideNotActive)
	}

	cap := OrderCapFor(guide.StakeAmount)
	if s.active >= cap {
		return fmt.Errorf("stake: guide %s holds %d of %d orders: %w", guideID, s.active, cap, domain.ErrCapacityExceeded)
	}
	s.active++
	return nil
}

// Release returns one unit of capacity. Releasing below zero is clamped; the
// order service is the only caller and pairs releases with admissions.
func (c *AdmissionController) Release(guideID string) {
	s := c.slotFor(guideID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active > 0 {
		s.active--
	}
}

// Active returns the guide's currently held order count.
func (c *AdmissionController) Active(guideID string) int {
	s := c.slotFor(guideID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
