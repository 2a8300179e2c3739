package middleware

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/traveltrust/trustd/internal/idempotency"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newIdempotentHandler(t *testing.T, next http.Handler) http.Handler {
	t.Helper()
	gw, err := idempotency.New(100, time.Second, testLogger())
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	return Idempotency(gw, testLogger())(next)
}

func TestIdempotency_ReplaysByteIdenticalBody(t *testing.T) {
	var calls atomic.Int32
	h := newIdempotentHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"call":%d}`, n)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		req.Header.Set(IdempotencyKeyHeader, "tok-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	second := do()

	if calls.Load() != 1 {
		t.Fatalf("handler ran %d times, want 1", calls.Load())
	}
	if first.Code != http.StatusCreated || second.Code != first.Code {
		t.Errorf("status codes: %d then %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("replay body differs: %q vs %q", first.Body.String(), second.Body.String())
	}
	if got := second.Header().Get(IdempotencyKeyHeaderAlt); got != "tok-1" {
		t.Errorf("idempotency key not echoed: %q", got)
	}
}

func TestIdempotency_ConcurrentDuplicatesExecuteOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	h := newIdempotentHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"o1"}`))
	}))

	const clients = 10
	var wg sync.WaitGroup
	bodies := make([]string, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
			req.Header.Set(IdempotencyKeyHeader, "tok-conc")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			bodies[i] = rec.Body.String()
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("handler ran %d times, want 1", calls.Load())
	}
	for i := 1; i < clients; i++ {
		if bodies[i] != bodies[0] {
			t.Errorf("client %d body differs: %q vs %q", i, bodies[i], bodies[0])
		}
	}
}

func TestIdempotency_FallbackHeaderAccepted(t *testing.T) {
	var calls atomic.Int32
	h := newIdempotentHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		req.Header.Set(IdempotencyKeyHeaderAlt, "tok-alt")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
	}
	if calls.Load() != 1 {
		t.Errorf("handler ran %d times, want 1", calls.Load())
	}
}

func TestIdempotency_NoTokenPassesThrough(t *testing.T) {
	var calls atomic.Int32
	h := newIdempotentHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
	}
	if calls.Load() != 3 {
		t.Errorf("handler ran %d times, want 3", calls.Load())
	}
}

func TestIdempotency_ReadsNotDeduplicated(t *testing.T) {
	var calls atomic.Int32
	h := newIdempotentHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		req.Header.Set(IdempotencyKeyHeader, "tok-get")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
	}
	if calls.Load() != 2 {
		t.Errorf("GET deduplicated: handler ran %d times, want 2", calls.Load())
	}
}

func TestIdempotency_DistinctPathsDoNotCollide(t *testing.T) {
	var calls atomic.Int32
	h := newIdempotentHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))

	for _, path := range []string{"/api/v1/orders", "/api/v1/guides"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set(IdempotencyKeyHeader, "same-token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
	}
	if calls.Load() != 2 {
		t.Errorf("handler ran %d times, want 2", calls.Load())
	}
}

func TestIdempotency_ServerErrorRetriesExecute(t *testing.T) {
	var calls atomic.Int32
	h := newIdempotentHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		req.Header.Set(IdempotencyKeyHeader, "tok-5xx")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(); code != http.StatusInternalServerError {
		t.Fatalf("first status = %d", code)
	}
	if code := do(); code != http.StatusCreated {
		t.Fatalf("retry status = %d, want 201", code)
	}
	if calls.Load() != 2 {
		t.Errorf("handler ran %d times, want 2", calls.Load())
	}
}

func TestIdempotency_OperationDeadlineReturns504(t *testing.T) {
	gw, err := idempotency.New(10, 30*time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	h := Idempotency(gw, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	req.Header.Set(IdempotencyKeyHeader, "tok-slow")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}
}
