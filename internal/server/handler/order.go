package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/traveltrust/trustd/internal/domain"
	"github.com/traveltrust/trustd/internal/service"
)

// OrderService defines the methods that the order handler requires from the
// service layer.
type OrderService interface {
	Create(ctx context.Context, params service.CreateOrderParams) (domain.Order, error)
	Accept(ctx context.Context, orderID string) (domain.Order, error)
	Fund(ctx context.Context, orderID string) (domain.Order, error)
	ConfirmCompletion(ctx context.Context, orderID string) (domain.Order, error)
	Cancel(ctx context.Context, orderID string) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Order, error)
	ListByGuide(ctx context.Context, guideID string, opts domain.ListOpts) ([]domain.Order, error)
}

// DisputeOpener opens a dispute against an escrowed order.
type DisputeOpener interface {
	Open(ctx context.Context, orderID string, evidenceHashes []string) (domain.Dispute, error)
}

// ReviewService defines the review methods the order handler requires.
type ReviewService interface {
	Submit(ctx context.Context, params service.SubmitReviewParams) (domain.Review, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.Review, error)
}

// OrderHandler serves order lifecycle HTTP endpoints.
type OrderHandler struct {
	orders   OrderService
	disputes DisputeOpener
	reviews  ReviewService
	logger   *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given services and logger.
func NewOrderHandler(orders OrderService, disputes DisputeOpener, reviews ReviewService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		disputes: disputes,
		reviews:  reviews,
		logger:   logger,
	}
}

type createOrderRequest struct {
	TouristID string `json:"tourist_id"`
	GuideID   string `json:"guide_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

// Create opens a new order in the Created state.
// POST /api/v1/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TouristID == "" || req.GuideID == "" {
		writeError(w, http.StatusBadRequest, "tourist_id and guide_id are required")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount: "+err.Error())
		return
	}

	order, err := h.orders.Create(r.Context(), service.CreateOrderParams{
		TouristID: req.TouristID,
		GuideID:   req.GuideID,
		Amount:    amount,
		Currency:  req.Currency,
	})
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create order failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// Get returns a single order by ID.
// GET /api/v1/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get order failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// listOrdersResponse wraps the list orders response.
type listOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

// List returns orders with pagination, optionally filtered to one guide.
// GET /api/v1/orders?guide_id=...&limit=50&offset=0
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	guideID := r.URL.Query().Get("guide_id")

	var orders []domain.Order
	var err error
	if guideID != "" {
		orders, err = h.orders.ListByGuide(r.Context(), guideID, opts)
	} else {
		orders, err = h.orders.List(r.Context(), opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list orders failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	if orders == nil {
		orders = []domain.Order{}
	}

	writeJSON(w, http.StatusOK, listOrdersResponse{Orders: orders})
}

// Accept moves an order from Created to Accepted, consuming one of the
// guide's stake-tier capacity slots.
// POST /api/v1/orders/{id}/accept
func (h *OrderHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "accept", h.orders.Accept)
}

// Fund moves an order from Accepted to Escrowed.
// POST /api/v1/orders/{id}/fund
func (h *OrderHandler) Fund(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "fund", h.orders.Fund)
}

// ConfirmCompletion moves an order from Escrowed to Completed, releasing the
// escrowed funds to the guide.
// POST /api/v1/orders/{id}/confirm-completion
func (h *OrderHandler) ConfirmCompletion(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "confirm completion", h.orders.ConfirmCompletion)
}

// Cancel terminates an order that has not yet settled.
// POST /api/v1/orders/{id}/cancel
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel", h.orders.Cancel)
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, action string, fn func(context.Context, string) (domain.Order, error)) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := fn(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: order "+action+" failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to "+action+" order")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

type openDisputeRequest struct {
	EvidenceHashes []string `json:"evidence_hashes"`
}

// OpenDispute freezes an escrowed order and opens a dispute against it.
// POST /api/v1/orders/{id}/dispute
func (h *OrderHandler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req openDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	dispute, err := h.disputes.Open(r.Context(), id, req.EvidenceHashes)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: open dispute failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to open dispute")
		return
	}

	writeJSON(w, http.StatusCreated, dispute)
}

type submitReviewRequest struct {
	AuthorID string `json:"author_id"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

// SubmitReview records a review against a settled order.
// POST /api/v1/orders/{id}/reviews
func (h *OrderHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req submitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	review, err := h.reviews.Submit(r.Context(), service.SubmitReviewParams{
		OrderID:  id,
		AuthorID: req.AuthorID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: submit review failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to submit review")
		return
	}

	writeJSON(w, http.StatusCreated, review)
}

// listReviewsResponse wraps the list reviews response.
type listReviewsResponse struct {
	Reviews []domain.Review `json:"reviews"`
}

// ListReviews returns the reviews recorded against an order.
// GET /api/v1/orders/{id}/reviews
func (h *OrderHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	reviews, err := h.reviews.ListByOrder(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: list reviews failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	writeJSON(w, http.StatusOK, listReviewsResponse{Reviews: reviews})
}
