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

// GuideService defines the methods that the guide handler requires from the
// service layer.
type GuideService interface {
	Register(ctx context.Context, params service.RegisterGuideParams) (domain.Guide, error)
	Get(ctx context.Context, id string) (domain.Guide, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Guide, error)
	UpdateStake(ctx context.Context, guideID string, stakeAmount decimal.Decimal) (domain.Guide, error)
}

// GuideScoreService computes weighted reputation aggregates.
type GuideScoreService interface {
	Score(ctx context.Context, guideID string) (service.GuideScore, error)
}

// GuideHandler serves guide profile HTTP endpoints.
type GuideHandler struct {
	guides GuideService
	scores GuideScoreService
	logger *slog.Logger
}

// NewGuideHandler creates a GuideHandler with the given services and logger.
func NewGuideHandler(guides GuideService, scores GuideScoreService, logger *slog.Logger) *GuideHandler {
	return &GuideHandler{
		guides: guides,
		scores: scores,
		logger: logger,
	}
}

type registerGuideRequest struct {
	UserID       string   `json:"user_id"`
	City         string   `json:"city"`
	CountryCode  string   `json:"country_code"`
	Languages    []string `json:"languages"`
	ServiceTypes []string `json:"service_types"`
	Bio          string   `json:"bio"`
	StakeAmount  string   `json:"stake_amount"`
}

// Register creates a guide profile for an existing guide-role user.
// POST /api/v1/guides
func (h *GuideHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerGuideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	stake := decimal.Zero
	if req.StakeAmount != "" {
		var err error
		stake, err = decimal.NewFromString(req.StakeAmount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid stake_amount: "+err.Error())
			return
		}
	}

	types := make([]domain.ServiceType, 0, len(req.ServiceTypes))
	for _, t := range req.ServiceTypes {
		types = append(types, domain.ServiceType(t))
	}

	guide, err := h.guides.Register(r.Context(), service.RegisterGuideParams{
		UserID:       req.UserID,
		City:         req.City,
		CountryCode:  req.CountryCode,
		Languages:    req.Languages,
		ServiceTypes: types,
		Bio:          req.Bio,
		StakeAmount:  stake,
	})
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: register guide failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to register guide")
		return
	}

	writeJSON(w, http.StatusCreated, guide)
}

// Get returns a single guide by ID.
// GET /api/v1/guides/{id}
func (h *GuideHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing guide id")
		return
	}

	guide, err := h.guides.Get(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get guide failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get guide")
		return
	}

	writeJSON(w, http.StatusOK, guide)
}

// listGuidesResponse wraps the list guides response.
type listGuidesResponse struct {
	Guides []domain.Guide `json:"guides"`
}

// List returns guide profiles with pagination.
// GET /api/v1/guides?limit=50&offset=0
func (h *GuideHandler) List(w http.ResponseWriter, r *http.Request) {
	guides, err := h.guides.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list guides failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list guides")
		return
	}

	if guides == nil {
		guides = []domain.Guide{}
	}

	writeJSON(w, http.StatusOK, listGuidesResponse{Guides: guides})
}

type updateStakeRequest struct {
	StakeAmount string `json:"stake_amount"`
}

// UpdateStake replaces a guide's stake and re-derives its admission status.
// POST /api/v1/guides/{id}/stake
func (h *GuideHandler) UpdateStake(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing guide id")
		return
	}

	var req updateStakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	stake, err := decimal.NewFromString(req.StakeAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stake_amount: "+err.Error())
		return
	}

	guide, err := h.guides.UpdateStake(r.Context(), id, stake)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: update stake failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update stake")
		return
	}

	writeJSON(w, http.StatusOK, guide)
}

// Score returns a guide's weighted reputation aggregate.
// GET /api/v1/guides/{id}/score
func (h *GuideHandler) Score(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing guide id")
		return
	}

	score, err := h.scores.Score(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: guide score failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute guide score")
		return
	}

	writeJSON(w, http.StatusOK, score)
}
