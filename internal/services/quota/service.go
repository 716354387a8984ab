package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/samson623/sports-buddy/internal/domain/model"
	"github.com/samson623/sports-buddy/internal/domain/tier"
	pgrepo "github.com/samson623/sports-buddy/internal/repo/postgres"
)

var (
	ErrValidation = errors.New("validation error")

	// ErrLimitReached rejects a request whose daily allowance is spent.
	// Callers surface the embedded tier/limit/used metadata.
	ErrLimitReached = errors.New("daily question limit reached")
)

type LimitReachedError struct {
	Tier  tier.Tier
	Limit int
	Used  int
}

func (e LimitReachedError) Error() string {
	return fmt.Sprintf("%s tier limit (%d/day) reached", e.Tier, e.Limit)
}

func (e LimitReachedError) Is(target error) bool {
	return target == ErrLimitReached
}

// ProfileStore is the durable per-user quota row. ConsumeQuota must apply
// used+1 and the reset stamp atomically, guarded by the limit.
type ProfileStore interface {
	GetQuota(ctx context.Context, userID string) (model.QuotaProfile, error)
	ResetQuota(ctx context.Context, userID string, at time.Time) error
	ConsumeQuota(ctx context.Context, userID string, limit int, at time.Time) (int, error)
}

type Config struct {
	Period    time.Duration
	FreeLimit int
	PlusLimit int
	ProLimit  int
}

type Snapshot struct {
	Tier  tier.Tier
	Used  int
	Limit int
}

func (s Snapshot) Remaining() int {
	if r := s.Limit - s.Used; r > 0 {
		return r
	}
	return 0
}

// Tracker enforces the per-user daily answer allowance. Anonymous actors
// have no profile row and bypass it entirely.
type Tracker struct {
	profiles ProfileStore
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

func NewTracker(profiles ProfileStore, cfg Config, logger *zap.Logger) *Tracker {
	if cfg.Period <= 0 {
		cfg.Period = 24 * time.Hour
	}
	if cfg.FreeLimit <= 0 {
		cfg.FreeLimit = tier.DailyQuota(tier.Free)
	}
	if cfg.PlusLimit <= 0 {
		cfg.PlusLimit = tier.DailyQuota(tier.Plus)
	}
	if cfg.ProLimit <= 0 {
		cfg.ProLimit = tier.DailyQuota(tier.Pro)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Tracker{
		profiles: profiles,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the tracker's time source, for tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	if now != nil {
		t.now = now
	}
	return t
}

func (t *Tracker) Limit(tr tier.Tier) int {
	switch tr {
	case tier.Pro:
		return t.cfg.ProLimit
	case tier.Plus:
		return t.cfg.PlusLimit
	default:
		return t.cfg.FreeLimit
	}
}

// Admit checks the user's allowance before any answer work is done. A
// profile whose reset marker is older than the quota period is reset
// first, so a stale counter can never deny a request.
func (t *Tracker) Admit(ctx context.Context, userID string) (Snapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return Snapshot{}, ErrValidation
	}
	if t.profiles == nil {
		return Snapshot{}, fmt.Errorf("profile store is not configured")
	}

	profile, err := t.profiles.GetQuota(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			// No profile row yet: treat as a fresh free-tier user.
			return Snapshot{Tier: tier.Free, Used: 0, Limit: t.cfg.FreeLimit}, nil
		}
		return Snapshot{}, fmt.Errorf("load quota profile: %w", err)
	}

	tr := tier.Parse(profile.Tier)
	now := t.now()
	used := profile.QuotaUsed

	if now.Sub(profile.QuotaResetAt) > t.cfg.Period {
		if err := t.profiles.ResetQuota(ctx, userID, now); err != nil {
			return Snapshot{}, fmt.Errorf("reset quota: %w", err)
		}
		used = 0
	}

	limit := t.Limit(tr)
	if used >= limit {
		return Snapshot{}, LimitReachedError{Tier: tr, Limit: limit, Used: used}
	}

	return Snapshot{Tier: tr, Used: used, Limit: limit}, nil
}

// Commit records one answered question after the answer is produced. The
// store applies the increment and the reset stamp as one update; losing
// the race to a concurrent request from the same user surfaces as
// LimitReachedError.
func (t *Tracker) Commit(ctx context.Context, userID string, tr tier.Tier) (Snapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return Snapshot{}, ErrValidation
	}
	if t.profiles == nil {
		return Snapshot{}, fmt.Errorf("profile store is not configured")
	}

	limit := t.Limit(tr)
	used, err := t.profiles.ConsumeQuota(ctx, userID, limit, t.now())
	if err != nil {
		if errors.Is(err, pgrepo.ErrQuotaConsumed) {
			// Either a concurrent request spent the last slot, or the user
			// has no profile row at all. The latter is not a quota event.
			if _, getErr := t.profiles.GetQuota(ctx, userID); getErr != nil {
				if errors.Is(getErr, pgrepo.ErrProfileNotFound) {
					t.logger.Debug("quota commit skipped, no profile row", zap.String("user_id", userID))
					return Snapshot{Tier: tr, Used: 1, Limit: limit}, nil
				}
				return Snapshot{}, fmt.Errorf("commit quota: %w", getErr)
			}
			return Snapshot{}, LimitReachedError{Tier: tr, Limit: limit, Used: limit}
		}
		return Snapshot{}, fmt.Errorf("commit quota: %w", err)
	}

	return Snapshot{Tier: tr, Used: used, Limit: limit}, nil
}
