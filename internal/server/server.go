package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/traveltrust/trustd/internal/idempotency"
	"github.com/traveltrust/trustd/internal/server/handler"
	"github.com/traveltrust/trustd/internal/server/middleware"
	"github.com/traveltrust/trustd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port         int
	CORSOrigins  []string
	RateLimit    float64
	RateBurst    int
	MaxBodyBytes int64
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Users    *handler.UserHandler
	Guides   *handler.GuideHandler
	Orders   *handler.OrderHandler
	Disputes *handler.DisputeHandler
}

// Server is the HTTP + WebSocket API server for the marketplace.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up the middleware chain (CORS, request id, logging, rate limit,
// body limit, idempotency) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, gateway *idempotency.Gateway, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	mux.HandleFunc("GET /api/v1/health", handlers.Health.HealthCheck)

	// Account endpoints.
	mux.HandleFunc("POST /api/v1/users", handlers.Users.Register)
	mux.HandleFunc("GET /api/v1/users/{id}", handlers.Users.Get)
	mux.HandleFunc("POST /api/v1/users/{id}/kyc", handlers.Users.SetKYC)

	// Guide endpoints.
	mux.HandleFunc("POST /api/v1/guides", handlers.Guides.Register)
	mux.HandleFunc("GET /api/v1/guides", handlers.Guides.List)
	mux.HandleFunc("GET /api/v1/guides/{id}", handlers.Guides.Get)
	mux.HandleFunc("POST /api/v1/guides/{id}/stake", handlers.Guides.UpdateStake)
	mux.HandleFunc("GET /api/v1/guides/{id}/score", handlers.Guides.Score)

	// Order lifecycle endpoints.
	mux.HandleFunc("POST /api/v1/orders", handlers.Orders.Create)
	mux.HandleFunc("GET /api/v1/orders", handlers.Orders.List)
	mux.HandleFunc("GET /api/v1/orders/{id}", handlers.Orders.Get)
	mux.HandleFunc("POST /api/v1/orders/{id}/accept", handlers.Orders.Accept)
	mux.HandleFunc("POST /api/v1/orders/{id}/fund", handlers.Orders.Fund)
	mux.HandleFunc("POST /api/v1/orders/{id}/cancel", handlers.Orders.Cancel)
	mux.HandleFunc("POST /api/v1/orders/{id}/confirm-completion", handlers.Orders.ConfirmCompletion)
	mux.HandleFunc("POST /api/v1/orders/{id}/dispute", handlers.Orders.OpenDispute)
	mux.HandleFunc("POST /api/v1/orders/{id}/reviews", handlers.Orders.SubmitReview)
	mux.HandleFunc("GET /api/v1/orders/{id}/reviews", handlers.Orders.ListReviews)

	// Dispute endpoints.
	mux.HandleFunc("GET /api/v1/disputes", handlers.Disputes.List)
	mux.HandleFunc("GET /api/v1/disputes/{id}", handlers.Disputes.Get)
	mux.HandleFunc("POST /api/v1/disputes/{id}/assign", handlers.Disputes.Assign)
	mux.HandleFunc("POST /api/v1/disputes/{id}/evidence", handlers.Disputes.AppendEvidence)
	mux.HandleFunc("POST /api/v1/disputes/{id}/resolve", handlers.Disputes.Resolve)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Idempotency(gateway, logger)(h)
	h = middleware.BodyLimit(cfg.MaxBodyBytes)(h)
	h = middleware.RateLimit(cfg.RateLimit, cfg.RateBurst)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.RequestID()(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key, X-Idempotency-Key, X-Request-Id")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
