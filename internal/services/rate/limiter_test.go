package rate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redrepo "github.com/samson623/sports-buddy/internal/repo/redis"
)

func fixedClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}

func TestLimiterSlidingWindow(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	limiter := NewLimiter(store, time.Minute, 3, zap.NewNop()).WithClock(fixedClock(&now))

	ctx := context.Background()
	key := IPKey("203.0.113.7")

	for i := 0; i < 3; i++ {
		d, err := limiter.Consume(ctx, key)
		if err != nil {
			t.Fatalf("consume #%d: %v", i+1, err)
		}
		if !d.Allowed {
			t.Fatalf("expected request #%d admitted", i+1)
		}
		now = now.Add(10 * time.Second)
	}

	// 4th request 30s into the window must be denied.
	d, err := limiter.Consume(ctx, key)
	if err != nil {
		t.Fatalf("consume #4: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected 4th request in window denied")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("retry-after out of bounds: %s", d.RetryAfter)
	}
	// Oldest entry was 30s ago, so it exits the window in 30s.
	if d.RetryAfter != 30*time.Second {
		t.Fatalf("unexpected retry-after: %s", d.RetryAfter)
	}

	// Once the oldest timestamp slides out, one slot opens even though the
	// window never fully emptied. A fixed window would re-admit a burst
	// here; the sliding window admits exactly one.
	now = now.Add(31 * time.Second)
	d, err = limiter.Consume(ctx, key)
	if err != nil {
		t.Fatalf("consume after slide: %v", err)
	}
	if !d.Allowed {
		t.Fatal("expected one slot after oldest entry expired")
	}

	d, err = limiter.Consume(ctx, key)
	if err != nil {
		t.Fatalf("consume refill probe: %v", err)
	}
	if d.Allowed {
		t.Fatal("sliding window must not re-admit a full burst at the boundary")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	limiter := NewLimiter(store, time.Minute, 1, zap.NewNop()).WithClock(fixedClock(&now))

	ctx := context.Background()
	if d, _ := limiter.Consume(ctx, UserKey("u1")); !d.Allowed {
		t.Fatal("first request for u1 must be admitted")
	}
	if d, _ := limiter.Consume(ctx, UserKey("u2")); !d.Allowed {
		t.Fatal("u2 must not share u1's window")
	}
	if d, _ := limiter.Consume(ctx, UserKey("u1")); d.Allowed {
		t.Fatal("second request for u1 must be denied")
	}
}

func TestLimiterFailsOpenOnStoreError(t *testing.T) {
	limiter := NewLimiter(failingStore{}, time.Minute, 3, zap.NewNop())

	d, err := limiter.Consume(context.Background(), UserKey("u1"))
	if err != nil {
		t.Fatalf("expected fail-open, got error: %v", err)
	}
	if !d.Allowed {
		t.Fatal("store failure must admit the request")
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, _, _, err := store.Consume(ctx, "ip:a", now, time.Minute, 3); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, _, _, err := store.Consume(ctx, "ip:b", now.Add(50*time.Second), time.Minute, 3); err != nil {
		t.Fatalf("consume: %v", err)
	}

	removed := store.Sweep(now.Add(70*time.Second), time.Minute)
	if removed != 1 {
		t.Fatalf("expected 1 key swept, got %d", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 key retained, got %d", store.Len())
	}
}

func TestLimiterWithRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	limiter := NewLimiter(redrepo.NewRateRepo(client), time.Minute, 3, zap.NewNop()).WithClock(fixedClock(&now))

	ctx := context.Background()
	key := UserKey("42")

	for i := 0; i < 3; i++ {
		d, err := limiter.Consume(ctx, key)
		if err != nil {
			t.Fatalf("consume #%d: %v", i+1, err)
		}
		if !d.Allowed {
			t.Fatalf("expected request #%d admitted", i+1)
		}
		now = now.Add(time.Second)
	}

	d, err := limiter.Consume(ctx, key)
	if err != nil {
		t.Fatalf("consume #4: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected 4th request denied")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("retry-after out of bounds: %s", d.RetryAfter)
	}

	now = now.Add(2 * time.Minute)
	d, err = limiter.Consume(ctx, key)
	if err != nil {
		t.Fatalf("consume after window: %v", err)
	}
	if !d.Allowed {
		t.Fatal("expected admission after the window elapsed")
	}
}

func TestRedisStoreConcurrentAdmissions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	store := redrepo.NewRateRepo(client)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	const callers = 20
	var wg sync.WaitGroup
	var admitted atomic.Int64
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, _, _, err := store.Consume(ctx, "user:42", now, time.Minute, 3)
			if err != nil {
				t.Errorf("consume: %v", err)
				return
			}
			if ok {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	// All callers hit the same instant; the window must still only
	// admit its limit.
	if got := admitted.Load(); got != 3 {
		t.Fatalf("admitted %d of %d concurrent requests (limit 3)", got, callers)
	}
}

type failingStore struct{}

func (failingStore) Consume(context.Context, string, time.Time, time.Duration, int) (bool, int, time.Time, error) {
	return false, 0, time.Time{}, context.DeadlineExceeded
}
