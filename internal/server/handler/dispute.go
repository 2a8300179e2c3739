package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/traveltrust/trustd/internal/domain"
)

// DisputeService defines the methods that the dispute handler requires from
// the service layer.
type DisputeService interface {
	Get(ctx context.Context, id string) (domain.Dispute, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Dispute, error)
	Assign(ctx context.Context, disputeID, arbitratorID string) (domain.Dispute, error)
	AppendEvidence(ctx context.Context, disputeID, hash string) (domain.Dispute, error)
	Resolve(ctx context.Context, disputeID string, refundRatio float64, slashGuide bool) (domain.Dispute, error)
}

// DisputeHandler serves dispute HTTP endpoints.
type DisputeHandler struct {
	disputes DisputeService
	logger   *slog.Logger
}

// NewDisputeHandler creates a DisputeHandler with the given service and logger.
func NewDisputeHandler(disputes DisputeService, logger *slog.Logger) *DisputeHandler {
	return &DisputeHandler{
		disputes: disputes,
		logger:   logger,
	}
}

// Get returns a single dispute by ID.
// GET /api/v1/disputes/{id}
func (h *DisputeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing dispute id")
		return
	}

	dispute, err := h.disputes.Get(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get dispute failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get dispute")
		return
	}

	writeJSON(w, http.StatusOK, dispute)
}

// listDisputesResponse wraps the list disputes response.
type listDisputesResponse struct {
	Disputes []domain.Dispute `json:"disputes"`
}

// List returns disputes with pagination.
// GET /api/v1/disputes?limit=50&offset=0
func (h *DisputeHandler) List(w http.ResponseWriter, r *http.Request) {
	disputes, err := h.disputes.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list disputes failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list disputes")
		return
	}

	if disputes == nil {
		disputes = []domain.Dispute{}
	}

	writeJSON(w, http.StatusOK, listDisputesResponse{Disputes: disputes})
}

type assignDisputeRequest struct {
	ArbitratorID string `json:"arbitrator_id"`
}

// Assign hands a dispute to an arbitrator for review.
// POST /api/v1/disputes/{id}/assign
func (h *DisputeHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing dispute id")
		return
	}

	var req assignDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ArbitratorID == "" {
		writeError(w, http.StatusBadRequest, "arbitrator_id is required")
		return
	}

	dispute, err := h.disputes.Assign(r.Context(), id, req.ArbitratorID)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: assign dispute failed",
			slog.String("dispute_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to assign dispute")
		return
	}

	writeJSON(w, http.StatusOK, dispute)
}

type appendEvidenceRequest struct {
	Hash string `json:"hash"`
}

// AppendEvidence attaches an evidence hash to an open dispute.
// POST /api/v1/disputes/{id}/evidence
func (h *DisputeHandler) AppendEvidence(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing dispute id")
		return
	}

	var req appendEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Hash == "" {
		writeError(w, http.StatusBadRequest, "hash is required")
		return
	}

	dispute, err := h.disputes.AppendEvidence(r.Context(), id, req.Hash)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: append evidence failed",
			slog.String("dispute_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to append evidence")
		return
	}

	writeJSON(w, http.StatusOK, dispute)
}

type resolveDisputeRequest struct {
	RefundRatio float64 `json:"refund_ratio"`
	SlashGuide  bool    `json:"slash_guide"`
}

// Resolve settles a dispute with a refund ratio and optional stake slash,
// driving the underlying order to its terminal state.
// POST /api/v1/disputes/{id}/resolve
func (h *DisputeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing dispute id")
		return
	}

	var req resolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	dispute, err := h.disputes.Resolve(r.Context(), id, req.RefundRatio, req.SlashGuide)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: resolve dispute failed",
			slog.String("dispute_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to resolve dispute")
		return
	}

	writeJSON(w, http.StatusOK, dispute)
}
