package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/traveltrust/trustd/internal/domain"
	"github.com/traveltrust/trustd/internal/service"
)

// UserService defines the methods that the user handler requires from the
// service layer.
type UserService interface {
	Register(ctx context.Context, params service.RegisterUserParams) (domain.User, error)
	Get(ctx context.Context, id string) (domain.User, error)
	SetKYCStatus(ctx context.Context, id string, status domain.KYCStatus) (domain.User, error)
}

// GuideStatusRefresher re-derives a guide's admission status after a change
// to the underlying user account.
type GuideStatusRefresher interface {
	RefreshStatusForUser(ctx context.Context, userID string) error
}

// UserHandler serves account HTTP endpoints.
type UserHandler struct {
	users  UserService
	guides GuideStatusRefresher
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler with the given services and logger.
func NewUserHandler(users UserService, guides GuideStatusRefresher, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		guides: guides,
		logger: logger,
	}
}

type registerUserRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Register creates a new account with a fixed role.
// POST /api/v1/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterUserParams{
		Email: req.Email,
		Role:  domain.UserRole(req.Role),
	})
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: register user failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Get returns a single user by ID.
// GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get user failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type setKYCRequest struct {
	Status string `json:"status"`
}

// SetKYC updates a user's KYC verification status. If the user has a guide
// profile its admission status is re-derived from the new KYC state.
// POST /api/v1/users/{id}/kyc
func (h *UserHandler) SetKYC(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var req setKYCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user, err := h.users.SetKYCStatus(r.Context(), id, domain.KYCStatus(req.Status))
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: set kyc status failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update kyc status")
		return
	}

	if err := h.guides.RefreshStatusForUser(r.Context(), id); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: guide status refresh failed",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, http.StatusOK, user)
}
