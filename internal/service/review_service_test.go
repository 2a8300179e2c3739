package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/traveltrust/trustd/internal/domain"
)

func TestReviewSubmit_GatedOnSettledOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tourist := f.registerTourist(t, "t@example.com")
	guide := f.registerActiveGuide(t, "g@example.com", 2000)
	order := f.escrowOrder(t, tourist.ID, guide.ID, 100)

	params := SubmitReviewParams{OrderID: order.ID, AuthorID: tourist.ID, Rating: 5}

	// Escrowed money is not settled money.
	if _, err := f.reviews.Submit(ctx, params); !errors.Is(err, domain.ErrReviewNotAllowed) {
		t.Fatalf("review on escrowed order: error = %v, want ErrReviewNotAllowed", err)
	}

	// A disputed order is still unsettled.
	dispute, err := f.disputes.Open(ctx, order.ID, nil)
	if err != nil {
		t.Fatalf("open dispute: %v", err)
	}
	if _, err := f.reviews.Submit(ctx, params); !errors.Is(err, domain.ErrReviewNotAllowed) {
		t.Fatalf("review on disputed order: error = %v, want ErrReviewNotAllowed", err)
	}

	// Partial refund settles the order; a review becomes legal.
	if _, err := f.disputes.Resolve(ctx, dispute.ID, 0.5, false); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	review, err := f.reviews.Submit(ctx, params)
	if err != nil {
		t.Fatalf("review on settled order: %v", err)
	}
	if review.GuideID != guide.ID || review.Rating != 5 {
		t.Errorf("review not linked correctly: %+v", review)
	}
}

func TestReviewSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tourist := f.registerTourist(t, "t@example.com")
	other := f.registerTourist(t, "o@example.com")
	guide := f.registerActiveGuide(t, "g@example.com", 2000)

	order := f.escrowOrder(t, tourist.ID, guide.ID, 100)
	if _, err := f.orders.ConfirmCompletion(ctx, order.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	for _, rating := range []int{0, 6, -1} {
		_, err := f.reviews.Submit(ctx, SubmitReviewParams{OrderID: order.ID, AuthorID: tourist.ID, Rating: rating})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("rating %d: error = %v, want ErrInvalidArgument", rating, err)
		}
	}

	// Only the order's tourist may review it.
	_, err := f.reviews.Submit(ctx, SubmitReviewParams{OrderID: order.ID, AuthorID: other.ID, Rating: 4})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("foreign author: error = %v, want ErrInvalidArgument", err)
	}
}

func TestReviewScore_WeightsByAmountAndAccountAge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tourist := f.registerTourist(t, "t@example.com")
	guide := f.registerActiveGuide(t, "g@example.com", 10000)

	// Fix "now" one year after registration so the age factor is exactly 1.0.
	now := time.Now().UTC().Add(365 * 24 * time.Hour)
	f.reviews.now = func() time.Time { return now }

	// Two settled orders with amounts chosen so the weights are 1.0 and 2.0.
	small := f.escrowOrder(t, tourist.ID, guide.ID, 1000)
	large := f.escrowOrder(t, tourist.ID, guide.ID, 2000)
	for _, id := range []string{small.ID, large.ID} {
		if _, err := f.orders.ConfirmCompletion(ctx, id); err != nil {
			t.Fatalf("complete %s: %v", id, err)
		}
	}

	if _, err := f.reviews.Submit(ctx, SubmitReviewParams{OrderID: small.ID, AuthorID: tourist.ID, Rating: 2}); err != nil {
		t.Fatalf("submit small: %v", err)
	}
	if _, err := f.reviews.Submit(ctx, SubmitReviewParams{OrderID: large.ID, AuthorID: tourist.ID, Rating: 5}); err != nil {
		t.Fatalf("submit large: %v", err)
	}

	score, err := f.reviews.Score(ctx, guide.ID)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score.ReviewCount != 2 {
		t.Fatalf("review count = %d, want 2", score.ReviewCount)
	}

	// (1.0*2 + 2.0*5) / (1.0 + 2.0) = 4.0
	if math.Abs(score.Score-4.0) > 1e-9 {
		t.Errorf("score = %v, want 4.0", score.Score)
	}
	if math.Abs(score.TotalWeight-3.0) > 1e-9 {
		t.Errorf("total weight = %v, want 3.0", score.TotalWeight)
	}
}

func TestReviewScore_NoReviews(t *testing.T) {
	f := newFixture(t)
	guide := f.registerActiveGuide(t, "g@example.com", 500)

	score, err := f.reviews.Score(context.Background(), guide.ID)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score.Score != 0 || score.ReviewCount != 0 || score.TotalWeight != 0 {
		t.Errorf("empty score snapshot not zero: %+v", score)
	}
}
