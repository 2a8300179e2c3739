package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/traveltrust/trustd/internal/domain"
	"github.com/traveltrust/trustd/internal/idempotency"
)

// Idempotency header names. The primary name wins when both are present; the
// canonical name is always echoed back so callers see which key was honoured.
const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotencyKeyHeaderAlt = "X-Idempotency-Key"
)

// Idempotency returns middleware that routes state-mutating requests (POST
// and PUT) carrying an idempotency token through the gateway. The first call
// for a (method, path, token) triple executes the wrapped handler; duplicates
// replay the recorded status and body byte-for-byte, with the correlation
// identifier fixed at first execution.
func Idempotency(gateway *idempotency.Gateway, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut {
				next.ServeHTTP(w, r)
				return
			}
			token := r.Header.Get(IdempotencyKeyHeader)
			if token == "" {
				token = r.Header.Get(IdempotencyKeyHeaderAlt)
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := idempotency.Key{Method: r.Method, Path: r.URL.Path, Token: token}
			res, replayed, err := gateway.Execute(r.Context(), key, func(ctx context.Context) (idempotency.Result, error) {
				rec := newRecorder()
				next.ServeHTTP(rec, r.WithContext(ctx))
				return idempotency.Result{
					Status:    rec.status,
					Body:      rec.body.Bytes(),
					RequestID: RequestIDFrom(r.Context()),
				}, nil
			})
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrDuplicateInFlight):
					w.Header().Set("Retry-After", "1")
					writeGatewayError(w, http.StatusServiceUnavailable, "duplicate request still in flight, retry later")
				case errors.Is(err, domain.ErrDeadlineExceeded):
					writeGatewayError(w, http.StatusGatewayTimeout, "operation deadline exceeded")
				default:
					logger.ErrorContext(r.Context(), "idempotent execution failed",
						slog.String("key", key.String()),
						slog.String("error", err.Error()),
					)
					writeGatewayError(w, http.StatusInternalServerError, "internal server error")
				}
				return
			}

			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set(IdempotencyKeyHeaderAlt, token)
			if res.RequestID != "" {
				w.Header().Set(RequestIDHeader, res.RequestID)
			}
			if replayed {
				logger.DebugContext(r.Context(), "replayed idempotent response",
					slog.String("key", key.String()),
					slog.Int("status", res.Status),
				)
			}
			w.WriteHeader(res.Status)
			w.Write(res.Body)
		})
	}
}

func writeGatewayError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

// recorder captures the wrapped handler's response so the gateway can store
// and replay it.
type recorder struct {
	status int
	body   bytes.Buffer
	header http.Header
}

func newRecorder() *recorder {
	return &recorder{
		status: http.StatusOK,
		header: make(http.Header),
	}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(code int) { r.status = code }

func (r *recorder) Write(b []byte) (int, error) { return r.body.Write(b) }
