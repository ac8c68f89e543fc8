// AngelaMos | 2026
// limiter.go

// Package ratelimit implements a fixed-window request counter keyed by caller
// identifier. With the in-process store it is a single-instance
// approximation; counts are not shared across replicas or restarts. Stores
// that implement kv.Counter count atomically and are shared.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/carterperez-dev/househelp-api/internal/kv"
)

const keyPrefix = "ratelimit:"

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left in the current window.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

type window struct {
	Count   int   `json:"count"`
	ResetAt int64 `json:"reset_at"`
}

type Limiter struct {
	store kv.Store
	now   func() time.Time
	mu    sync.Mutex
}

func New(store kv.Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// WithClock replaces the limiter's time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) Now() time.Time {
	return l.now()
}

// Check counts one request against key. A window opens on the first request
// after the previous one's reset; once max is reached further requests are
// refused. Refused requests do not extend the window.
func (l *Limiter) Check(
	ctx context.Context,
	key string,
	maxRequests int,
	windowSize time.Duration,
) (Result, error) {
	if maxRequests <= 0 || windowSize <= 0 {
		return Result{}, fmt.Errorf("ratelimit: invalid limit %d per %s", maxRequests, windowSize)
	}

	if counter, ok := l.store.(kv.Counter); ok {
		return l.checkShared(ctx, counter, keyPrefix+key, maxRequests, windowSize)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	storeKey := keyPrefix + key

	w, err := l.load(ctx, storeKey)
	if err != nil {
		return Result{}, err
	}

	if w == nil || now.UnixNano() >= w.ResetAt {
		w = &window{Count: 0, ResetAt: now.Add(windowSize).UnixNano()}
	}

	resetAt := time.Unix(0, w.ResetAt)

	if w.Count >= maxRequests {
		return Result{
			Allowed:   false,
			Limit:     maxRequests,
			Remaining: 0,
			ResetAt:   resetAt,
		}, nil
	}

	w.Count++
	if err := l.save(ctx, storeKey, w, resetAt.Sub(now)); err != nil {
		return Result{}, err
	}

	return Result{
		Allowed:   true,
		Limit:     maxRequests,
		Remaining: maxRequests - w.Count,
		ResetAt:   resetAt,
	}, nil
}

func (l *Limiter) checkShared(
	ctx context.Context,
	counter kv.Counter,
	key string,
	maxRequests int,
	windowSize time.Duration,
) (Result, error) {
	count, ttl, err := counter.Increment(ctx, key, windowSize)
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit count: %w", err)
	}

	res := Result{Limit: maxRequests, ResetAt: l.now().Add(ttl)}
	if count > int64(maxRequests) {
		return res, nil
	}

	res.Allowed = true
	res.Remaining = maxRequests - int(count)
	return res, nil
}

// Reset clears the window for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Delete(ctx, keyPrefix+key); err != nil {
		return fmt.Errorf("ratelimit reset: %w", err)
	}
	return nil
}

func (l *Limiter) load(ctx context.Context, key string) (*window, error) {
	raw, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("ratelimit load: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var w window
	if err := json.Unmarshal(raw, &w); err != nil {
		// A corrupt record restarts the window.
		return nil, nil //nolint:nilerr // treat as absent
	}
	return &w, nil
}

func (l *Limiter) save(
	ctx context.Context,
	key string,
	w *window,
	ttl time.Duration,
) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("ratelimit encode: %w", err)
	}
	if err := l.store.Set(ctx, key, raw, ttl); err != nil {
		return fmt.Errorf("ratelimit save: %w", err)
	}
	return nil
}
