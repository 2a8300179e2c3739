package app

import (
	"fmt"
	"log/slog"

	busmemory "github.com/traveltrust/trustd/internal/bus/memory"
	"github.com/traveltrust/trustd/internal/config"
	"github.com/traveltrust/trustd/internal/domain"
	"github.com/traveltrust/trustd/internal/idempotency"
	"github.com/traveltrust/trustd/internal/service"
	"github.com/traveltrust/trustd/internal/stake"
	storememory "github.com/traveltrust/trustd/internal/store/memory"
)

// Dependencies bundles every domain-level dependency that the application
// needs to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	UserStore    domain.UserStore
	GuideStore   domain.GuideStore
	OrderStore   domain.OrderStore
	DisputeStore domain.DisputeStore
	ReviewStore  domain.ReviewStore

	// Infrastructure
	Bus       domain.EventBus
	Admission *stake.AdmissionController
	Gateway   *idempotency.Gateway

	// Services
	Users    *service.UserService
	Guides   *service.GuideService
	Orders   *service.OrderService
	Disputes *service.DisputeService
	Reviews  *service.ReviewService
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	deps.UserStore = storememory.NewUserStore()
	deps.GuideStore = storememory.NewGuideStore()
	deps.OrderStore = storememory.NewOrderStore()
	deps.DisputeStore = storememory.NewDisputeStore()
	deps.ReviewStore = storememory.NewReviewStore()

	bus := busmemory.New(logger)
	closers = append(closers, bus.Close)
	deps.Bus = bus

	deps.Admission = stake.NewAdmissionController(deps.GuideStore)

	gw, err := idempotency.New(cfg.Idempotency.MaxEntries, cfg.Idempotency.OperationDeadline.Duration, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: idempotency gateway: %w", err)
	}
	deps.Gateway = gw

	deps.Users = service.NewUserService(deps.UserStore, logger)
	deps.Guides = service.NewGuideService(deps.GuideStore, deps.UserStore, deps.Bus, logger)
	deps.Orders = service.NewOrderService(deps.OrderStore, deps.GuideStore, deps.UserStore, deps.Admission, deps.Bus, logger)
	deps.Disputes = service.NewDisputeService(deps.DisputeStore, deps.Orders, deps.UserStore, deps.Bus, logger)
	deps.Reviews = service.NewReviewService(deps.ReviewStore, deps.OrderStore, deps.UserStore, logger)

	return deps, cleanup, nil
}
