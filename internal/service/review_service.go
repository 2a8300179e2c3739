package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/traveltrust/trustd/internal/domain"
	"github.com/traveltrust/trustd/internal/reputation"
)

// ReviewService gates review submission on settled orders and derives
// weighted guide scores on demand.
type ReviewService struct {
	reviews domain.ReviewStore
	orders  domain.OrderStore
	users   domain.UserStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewReviewService creates a ReviewService.
func NewReviewService(reviews domain.ReviewStore, orders domain.OrderStore, users domain.UserStore, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		orders:  orders,
		users:   users,
		logger:  logger.With(slog.String("service", "review")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SubmitReviewParams carries the inputs for review submission.
type SubmitReviewParams struct {
	OrderID  string
	AuthorID string
	Rating   int
	Comment  string
}

// Submit records a review for a settled order. Reviews on unsettled orders
// are rejected with ErrReviewNotAllowed; only the order's tourist may review.
func (s *ReviewService) Submit(ctx context.Context, params SubmitReviewParams) (domain.Review, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return domain.Review{}, fmt.Errorf("review_service: rating %d out of range 1..5: %w", params.Rating, domain.ErrInvalidArgument)
	}
	order, err := s.orders.GetByID(ctx, params.OrderID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("review_service: load order: %w", err)
	}
	if !domain.CanReview(order.State) {
		return domain.Review{}, fmt.Errorf("review_service: order %s in state %s: %w", order.ID, order.State, domain.ErrReviewNotAllowed)
	}
	if params.AuthorID != order.TouristID {
		return domain.Review{}, fmt.Errorf("review_service: author %s is not the order tourist: %w", params.AuthorID, domain.ErrInvalidArgument)
	}

	review := domain.Review{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		GuideID:   order.GuideID,
		AuthorID:  params.AuthorID,
		Rating:    params.Rating,
		Comment:   params.Comment,
		CreatedAt: s.now(),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return domain.Review{}, fmt.Errorf("review_service: create: %w", err)
	}

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID),
		slog.String("order_id", order.ID),
		slog.Int("rating", review.Rating),
	)
	return review, nil
}

// ListByOrder returns the reviews for one order.
func (s *ReviewService) ListByOrder(ctx context.Context, orderID string) ([]domain.Review, error) {
	return s.reviews.ListByOrder(ctx, orderID)
}

// GuideScore is a weighted reputation snapshot derived from current facts.
type GuideScore struct {
	GuideID     string
	Score       float64
	ReviewCount int
	TotalWeight float64
}

// Score recomputes the guide's weighted average rating. Weights follow the
// reputation calculator: order amount and reviewer account age, both clamped.
// Nothing here is persisted.
func (s *ReviewService) Score(ctx context.Context, guideID string) (GuideScore, error) {
	reviews, err := s.reviews.ListByGuide(ctx, guideID)
	if err != nil {
		return GuideScore{}, fmt.Errorf("review_service: list reviews: %w", err)
	}

	score := GuideScore{GuideID: guideID, ReviewCount: len(reviews)}
	var weightedSum float64
	for _, review := range reviews {
		order, err := s.orders.GetByID(ctx, review.OrderID)
		if err != nil {
			return GuideScore{}, fmt.Errorf("review_service: load order %s: %w", review.OrderID, err)
		}
		author, err := s.users.GetByID(ctx, review.AuthorID)
		if err != nil {
			return GuideScore{}, fmt.Errorf("review_service: load author %s: %w", review.AuthorID, err)
		}
		amount := order.Amount.InexactFloat64()
		weight := reputation.ComputeWeight(amount, score.Score, author.AccountAgeDays(s.now()))
		weightedSum += weight * float64(review.Rating)
		score.TotalWeight += weight
	}
	if score.TotalWeight > 0 {
		score.Score = weightedSum / score.TotalWeight
	}
	return score, nil
}
