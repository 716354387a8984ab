package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultWindow      = time.Minute
	DefaultMaxRequests = 3
)

// Store keeps the per-key request timestamps inside the trailing window.
// Consume must apply the admission check and the append as one atomic step
// per key. count is the number of retained timestamps after the call and
// oldest is the earliest retained timestamp (zero when the window is
// empty).
type Store interface {
	Consume(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (admitted bool, count int, oldest time.Time, err error)
}

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	ResetAfter time.Duration
}

// Limiter enforces a sliding-window request cap per actor key. It is
// advisory: a store failure admits the request and is only logged.
type Limiter struct {
	store  Store
	window time.Duration
	limit  int
	logger *zap.Logger
	now    func() time.Time
}

func NewLimiter(store Store, window time.Duration, limit int, logger *zap.Logger) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultMaxRequests
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Limiter{
		store:  store,
		window: window,
		limit:  limit,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the limiter's time source, for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Consume admits or denies one request for the actor key. On denial,
// RetryAfter is the time until the oldest retained request exits the
// window: always positive and never beyond the window itself.
func (l *Limiter) Consume(ctx context.Context, key string) (Decision, error) {
	if strings.TrimSpace(key) == "" {
		return Decision{}, fmt.Errorf("rate limit key is required")
	}
	if l.store == nil {
		return Decision{Allowed: true, Remaining: l.limit}, nil
	}

	now := l.now()
	admitted, count, oldest, err := l.store.Consume(ctx, key, now, l.window, l.limit)
	if err != nil {
		l.logger.Warn("rate limit store failed, admitting request", zap.String("key", key), zap.Error(err))
		return Decision{Allowed: true, Remaining: l.limit}, nil
	}

	d := Decision{
		Allowed:   admitted,
		Remaining: l.limit - count,
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !oldest.IsZero() {
		d.ResetAfter = clampToWindow(oldest.Add(l.window).Sub(now), l.window)
	}
	if !admitted {
		d.RetryAfter = clampToWindow(oldest.Add(l.window).Sub(now), l.window)
	}

	return d, nil
}

func clampToWindow(d, window time.Duration) time.Duration {
	if d <= 0 {
		return time.Millisecond
	}
	if d > window {
		return window
	}
	return d
}

// UserKey and IPKey derive the actor identity the window is tracked under.
func UserKey(userID string) string {
	return "user:" + userID
}

func IPKey(addr string) string {
	if strings.TrimSpace(addr) == "" {
		addr = "anon"
	}
	return "ip:" + addr
}
