// Package idempotency deduplicates side-effecting API calls. Each write
// operation is identified by (method, path, caller-supplied token); the
// gateway guarantees at most one execution per key under concurrency and
// replays the recorded outcome to every duplicate.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/traveltrust/trustd/internal/domain"
)

// Key identifies one logical write attempt. The same token against a
// different method or path is a distinct key and never collides.
type Key struct {
	Method string
	Path   string
	Token  string
}

// String renders the cache key for the (method, path, token) triple.
func (k Key) String() string {
	return k.Method + " " + k.Path + " " + k.Token
}

// Result is the observable outcome of one execution. RequestID is fixed the
// first time the key executes and is returned unchanged on every replay.
type Result struct {
	Status    int
	Body      []byte
	RequestID string
}

// Operation runs the underlying domain operation and produces its response.
type Operation func(ctx context.Context) (Result, error)

// outcome carries an execution result through the singleflight group along
// with whether it was served from the completed store instead of running fn.
type outcome struct {
	res      Result
	replayed bool
}

// Gateway coordinates idempotent execution. Completed outcomes live in a
// bounded least-recently-used store; in-flight executions coalesce through a
// singleflight group so unrelated keys never serialize on each other.
type Gateway struct {
	deadline  time.Duration
	group     singleflight.Group
	completed *lru.Cache[string, Result]
	logger    *slog.Logger
}

// New creates a Gateway holding at most maxEntries completed outcomes, with
// the given per-operation execution deadline.
func New(maxEntries int, deadline time.Duration, logger *slog.Logger) (*Gateway, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("idempotency: max entries must be positive, got %d", maxEntries)
	}
	if deadline <= 0 {
		return nil, fmt.Errorf("idempotency: deadline must be positive, got %s", deadline)
	}
	cache, err := lru.New[string, Result](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("idempotency: build cache: %w", err)
	}
	return &Gateway{
		deadline:  deadline,
		completed: cache,
		logger:    logger.With(slog.String("component", "idempotency")),
	}, nil
}

// Execute runs fn at most once for the given key and returns its outcome.
// The boolean reports whether the caller received a stored or coalesced
// result instead of triggering an execution of its own.
//
// A key without a token is executed directly with no deduplication. A key
// whose outcome is already recorded is replayed verbatim without running fn.
// A key whose first execution is still in flight blocks the caller until that
// execution resolves, bounded by the caller's own context: on expiry the
// caller gets ErrDuplicateInFlight (safe to retry) while the execution keeps
// running. The execution itself is detached from the initiating request and
// bounded only by the gateway deadline; exceeding it yields
// ErrDeadlineExceeded for every caller of the key.
//
// Only observable completions are recorded: an execution that errors or
// reports a server-side failure (status >= 500) is not cached, so a later
// retry with the same key executes again.
func (g *Gateway) Execute(ctx context.Context, key Key, fn Operation) (Result, bool, error) {
	if key.Token == "" {
		res, err := fn(ctx)
		return res, false, err
	}

	k := key.String()
	if res, ok := g.completed.Get(k); ok {
		return res, true, nil
	}

	ch := g.group.DoChan(k, func() (any, error) {
		// A caller that missed the completed store before the previous
		// flight for this key finished lands here on a fresh flight. The
		// store is authoritative, so consult it again before running fn;
		// the pre-flight miss alone must never trigger a second execution.
		if res, ok := g.completed.Get(k); ok {
			return outcome{res: res, replayed: true}, nil
		}

		opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.deadline)
		defer cancel()

		res, err := fn(opCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return outcome{}, fmt.Errorf("idempotency: execute %q: %w", k, domain.ErrDeadlineExceeded)
			}
			return outcome{}, err
		}
		if opCtx.Err() != nil {
			return outcome{}, fmt.Errorf("idempotency: execute %q: %w", k, domain.ErrDeadlineExceeded)
		}
		if res.Status < http.StatusInternalServerError {
			g.completed.Add(k, res)
		}
		return outcome{res: res}, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return Result{}, false, r.Err
		}
		out := r.Val.(outcome)
		return out.res, out.replayed || r.Shared, nil
	case <-ctx.Done():
		g.logger.WarnContext(ctx, "duplicate caller gave up waiting",
			slog.String("key", k),
		)
		return Result{}, false, fmt.Errorf("idempotency: waiting on %q: %w", k, domain.ErrDuplicateInFlight)
	}
}

// Len returns the number of completed outcomes currently stored.
func (g *Gateway) Len() int {
	return g.completed.Len()
}
