package idempotency

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/traveltrust/trustd/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(t *testing.T, maxEntries int, deadline time.Duration) *Gateway {
	t.Helper()
	g, err := New(maxEntries, deadline, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestNew_RejectsBadParameters(t *testing.T) {
	if _, err := New(0, time.Second, testLogger()); err == nil {
		t.Errorf("expected error for zero max entries")
	}
	if _, err := New(10, 0, testLogger()); err == nil {
		t.Errorf("expected error for zero deadline")
	}
}

func TestExecute_ReplaysStoredOutcomeVerbatim(t *testing.T) {
	g := newTestGateway(t, 10, time.Second)
	key := Key{Method: "POST", Path: "/api/v1/orders", Token: "tok-1"}

	var calls atomic.Int32
	op := func(ctx context.Context) (Result, error) {
		calls.Add(1)
		return Result{Status: http.StatusCreated, Body: []byte(`{"id":"o1"}`), RequestID: "req-1"}, nil
	}

	first, replayed, err := g.Execute(context.Background(), key, op)
	if err != nil {
		t.Fatalf("first execute: %v", err)
	}
	if replayed {
		t.Errorf("first call reported as replay")
	}

	second, replayed, err := g.Execute(context.Background(), key, op)
	if err != nil {
		t.Fatalf("second execute: %v", err)
	}
	if !replayed {
		t.Errorf("second call not reported as replay")
	}
	if calls.Load() != 1 {
		t.Fatalf("operation ran %d times, want 1", calls.Load())
	}
	if second.Status != first.Status || !bytes.Equal(second.Body, first.Body) || second.RequestID != first.RequestID {
		t.Errorf("replay differs: %+v vs %+v", second, first)
	}
}

func TestExecute_EmptyTokenNeverDeduplicates(t *testing.T) {
	g := newTestGateway(t, 10, time.Second)
	key := Key{Method: "POST", Path: "/api/v1/orders", Token: ""}

	var calls atomic.Int32
	op := func(ctx context.Context) (Result, error) {
		calls.Add(1)
		return Result{Status: http.StatusCreated}, nil
	}

	for i := 0; i < 3; i++ {
		if _, _, err := g.Execute(context.Background(), key, op); err != nil {
			t.Fatalf("execute %d: %v", i, err)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("operation ran %d times, want 3", calls.Load())
	}
	if g.Len() != 0 {
		t.Errorf("tokenless results cached: len = %d", g.Len())
	}
}

func TestExecute_ConcurrentDuplicatesExecuteOnce(t *testing.T) {
	g := newTestGateway(t, 10, 5*time.Second)
	key := Key{Method: "POST", Path: "/api/v1/orders", Token: "tok-conc"}

	var calls atomic.Int32
	release := make(chan struct{})
	op := func(ctx context.Context) (Result, error) {
		calls.Add(1)
		<-release
		return Result{Status: http.StatusCreated, Body: []byte(`{"id":"o1"}`)}, nil
	}

	const waiters = 20
	var wg sync.WaitGroup
	results := make([]Result, waiters)
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = g.Execute(context.Background(), key, op)
		}(i)
	}

	// Let all callers pile onto the in-flight execution before it resolves.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("operation ran %d times, want 1", calls.Load())
	}
	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if !bytes.Equal(results[i].Body, results[0].Body) {
			t.Errorf("caller %d got a different body", i)
		}
	}
}

func TestExecute_InstantOperationExecutesOnceUnderHammering(t *testing.T) {
	// An operation that completes immediately leaves almost no in-flight
	// window, so callers that miss the completed store just before the
	// first execution lands must still coalesce to a single run.
	const rounds = 200
	const goroutines = 64

	for round := 0; round < rounds; round++ {
		g := newTestGateway(t, 10, time.Second)
		key := Key{Method: "POST", Path: "/api/v1/orders", Token: fmt.Sprintf("tok-%d", round)}

		var calls atomic.Int32
		op := func(ctx context.Context) (Result, error) {
			calls.Add(1)
			return Result{Status: http.StatusCreated, Body: []byte(`{"id":"o1"}`)}, nil
		}

		start := make(chan struct{})
		var wg sync.WaitGroup
		errs := make([]error, goroutines)
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, _, errs[i] = g.Execute(context.Background(), key, op)
			}(i)
		}
		close(start)
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("round %d caller %d: %v", round, i, err)
			}
		}
		if n := calls.Load(); n != 1 {
			t.Fatalf("round %d: operation ran %d times, want 1", round, n)
		}
	}
}

func TestExecute_DistinctKeysDoNotCollide(t *testing.T) {
	g := newTestGateway(t, 10, time.Second)

	var calls atomic.Int32
	op := func(ctx context.Context) (Result, error) {
		calls.Add(1)
		return Result{Status: http.StatusCreated}, nil
	}

	keys := []Key{
		{Method: "POST", Path: "/api/v1/orders", Token: "tok"},
		{Method: "PUT", Path: "/api/v1/orders", Token: "tok"},
		{Method: "POST", Path: "/api/v1/guides", Token: "tok"},
		{Method: "POST", Path: "/api/v1/orders", Token: "tok-2"},
	}
	for _, k := range keys {
		if _, _, err := g.Execute(context.Background(), k, op); err != nil {
			t.Fatalf("execute %v: %v", k, err)
		}
	}
	if calls.Load() != int32(len(keys)) {
		t.Errorf("operation ran %d times, want %d", calls.Load(), len(keys))
	}
}

func TestExecute_ServerErrorNotCached(t *testing.T) {
	g := newTestGateway(t, 10, time.Second)
	key := Key{Method: "POST", Path: "/api/v1/orders", Token: "tok-5xx"}

	var calls atomic.Int32
	op := func(ctx context.Context) (Result, error) {
		if calls.Add(1) == 1 {
			return Result{Status: http.StatusInternalServerError}, nil
		}
		return Result{Status: http.StatusCreated}, nil
	}

	res, _, err := g.Execute(context.Background(), key, op)
	if err != nil {
		t.Fatalf("first execute: %v", err)
	}
	if res.Status != http.StatusInternalServerError {
		t.Fatalf("first status = %d", res.Status)
	}
	if g.Len() != 0 {
		t.Fatalf("5xx outcome cached")
	}

	res, _, err = g.Execute(context.Background(), key, op)
	if err != nil {
		t.Fatalf("second execute: %v", err)
	}
	if res.Status != http.StatusCreated {
		t.Errorf("retry did not re-execute: status = %d", res.Status)
	}
	if calls.Load() != 2 {
		t.Errorf("operation ran %d times, want 2", calls.Load())
	}
}

func TestExecute_OperationErrorNotCached(t *testing.T) {
	g := newTestGateway(t, 10, time.Second)
	key := Key{Method: "POST", Path: "/api/v1/orders", Token: "tok-err"}

	boom := errors.New("boom")
	var calls atomic.Int32
	op := func(ctx context.Context) (Result, error) {
		if calls.Add(1) == 1 {
			return Result{}, boom
		}
		return Result{Status: http.StatusCreated}, nil
	}

	if _, _, err := g.Execute(context.Background(), key, op); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	res, _, err := g.Execute(context.Background(), key, op)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.Status != http.StatusCreated {
		t.Errorf("retry status = %d", res.Status)
	}
}

func TestExecute_LRUEvictsOldestKey(t *testing.T) {
	const capacity = 1000
	g := newTestGateway(t, capacity, time.Second)

	var calls atomic.Int32
	op := func(ctx context.Context) (Result, error) {
		calls.Add(1)
		return Result{Status: http.StatusCreated}, nil
	}

	for i := 0; i < capacity+1; i++ {
		key := Key{Method: "POST", Path: "/api/v1/orders", Token: fmt.Sprintf("tok-%d", i)}
		if _, _, err := g.Execute(context.Background(), key, op); err != nil {
			t.Fatalf("execute %d: %v", i, err)
		}
	}
	if g.Len() != capacity {
		t.Fatalf("cache len = %d, want %d", g.Len(), capacity)
	}

	// The first key was evicted, so replaying it executes again.
	before := calls.Load()
	evicted := Key{Method: "POST", Path: "/api/v1/orders", Token: "tok-0"}
	if _, replayed, err := g.Execute(context.Background(), evicted, op); err != nil {
		t.Fatalf("re-execute evicted key: %v", err)
	} else if replayed {
		t.Errorf("evicted key reported as replay")
	}
	if calls.Load() != before+1 {
		t.Errorf("evicted key did not re-execute")
	}

	// A recent key is still served from the cache.
	recent := Key{Method: "POST", Path: "/api/v1/orders", Token: fmt.Sprintf("tok-%d", capacity)}
	before = calls.Load()
	if _, replayed, err := g.Execute(context.Background(), recent, op); err != nil {
		t.Fatalf("replay recent key: %v", err)
	} else if !replayed {
		t.Errorf("recent key not replayed")
	}
	if calls.Load() != before {
		t.Errorf("recent key re-executed")
	}
}

func TestExecute_WaiterTimeoutGetsDuplicateInFlight(t *testing.T) {
	g := newTestGateway(t, 10, 5*time.Second)
	key := Key{Method: "POST", Path: "/api/v1/orders", Token: "tok-wait"}

	started := make(chan struct{})
	release := make(chan struct{})
	op := func(ctx context.Context) (Result, error) {
		close(started)
		<-release
		return Result{Status: http.StatusCreated}, nil
	}

	go g.Execute(context.Background(), key, op)
	<-started

	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := g.Execute(waitCtx, key, func(ctx context.Context) (Result, error) {
		t.Fatal("duplicate must not execute")
		return Result{}, nil
	})
	if !errors.Is(err, domain.ErrDuplicateInFlight) {
		t.Fatalf("expected ErrDuplicateInFlight, got %v", err)
	}
	close(release)
}

func TestExecute_OperationDeadlineMapsToDeadlineExceeded(t *testing.T) {
	g := newTestGateway(t, 10, 30*time.Millisecond)
	key := Key{Method: "POST", Path: "/api/v1/orders", Token: "tok-slow"}

	op := func(ctx context.Context) (Result, error) {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(time.Second):
			return Result{Status: http.StatusCreated}, nil
		}
	}

	_, _, err := g.Execute(context.Background(), key, op)
	if !errors.Is(err, domain.ErrDeadlineExceeded) {
		t.Fatalf("expected ErrDeadlineExceeded, got %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("timed-out outcome cached")
	}
}

func TestExecute_DetachedFromCallerCancellation(t *testing.T) {
	g := newTestGateway(t, 10, time.Second)
	key := Key{Method: "POST", Path: "/api/v1/orders", Token: "tok-detach"}

	callerCtx, cancel := context.WithCancel(context.Background())
	cancel() // caller is already gone when the operation starts

	opDone := make(chan struct{})
	var sawCancel atomic.Bool
	go g.Execute(callerCtx, key, func(ctx context.Context) (Result, error) {
		defer close(opDone)
		select {
		case <-ctx.Done():
			sawCancel.Store(true)
		case <-time.After(50 * time.Millisecond):
		}
		return Result{Status: http.StatusCreated}, nil
	})
	<-opDone

	if sawCancel.Load() {
		t.Errorf("operation context inherited caller cancellation")
	}
}
