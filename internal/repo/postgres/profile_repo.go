package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samson623/sports-buddy/internal/domain/model"
)

var (
	ErrProfileNotFound = errors.New("user profile not found")

	// ErrQuotaConsumed signals the conditional increment found the counter
	// already at the limit.
	ErrQuotaConsumed = errors.New("daily question quota consumed")
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) GetQuota(ctx context.Context, userID string) (model.QuotaProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return model.QuotaProfile{}, fmt.Errorf("user id is required")
	}
	if r.pool == nil {
		return model.QuotaProfile{}, ErrProfileNotFound
	}

	var p model.QuotaProfile
	err := r.pool.QueryRow(ctx, `
SELECT id, tier, qna_quota_used, qna_quota_reset_at,
	COALESCE(weekly_analysis_used, 0),
	COALESCE(weekly_analysis_reset_at, 'epoch'::timestamptz)
FROM user_profiles
WHERE id = $1
`, userID).Scan(&p.UserID, &p.Tier, &p.QuotaUsed, &p.QuotaResetAt, &p.WeeklyAnalysisUsed, &p.WeeklyAnalysisReset)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.QuotaProfile{}, ErrProfileNotFound
		}
		return model.QuotaProfile{}, fmt.Errorf("get quota profile: %w", err)
	}

	return p, nil
}

// ResetQuota zeroes the daily counter and restamps the reset marker in one
// statement so the two can never diverge.
func (r *ProfileRepo) ResetQuota(ctx context.Context, userID string, at time.Time) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	if r.pool == nil {
		return nil
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE user_profiles
SET qna_quota_used = 0, qna_quota_reset_at = $2, updated_at = NOW()
WHERE id = $1
`, userID, at); err != nil {
		return fmt.Errorf("reset quota: %w", err)
	}

	return nil
}

// ConsumeQuota applies the post-answer increment atomically: used+1 and a
// fresh reset stamp, guarded by the tier limit so concurrent requests from
// the same user cannot push the counter past it.
func (r *ProfileRepo) ConsumeQuota(ctx context.Context, userID string, limit int, at time.Time) (int, error) {
	if strings.TrimSpace(userID) == "" || limit <= 0 {
		return 0, fmt.Errorf("invalid quota consume payload")
	}
	if r.pool == nil {
		return 1, nil
	}

	var used int
	err := r.pool.QueryRow(ctx, `
UPDATE user_profiles
SET qna_quota_used = qna_quota_used + 1,
	qna_quota_reset_at = $3,
	updated_at = NOW()
WHERE id = $1 AND qna_quota_used < $2
RETURNING qna_quota_used
`, userID, limit, at).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrQuotaConsumed
		}
		return 0, fmt.Errorf("consume question quota: %w", err)
	}

	return used, nil
}

// ResetWeeklyAnalysis and ConsumeWeeklyAnalysis mirror the daily pair for
// the pre-game analysis allowance.
func (r *ProfileRepo) ResetWeeklyAnalysis(ctx context.Context, userID string, at time.Time) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	if r.pool == nil {
		return nil
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE user_profiles
SET weekly_analysis_used = 0, weekly_analysis_reset_at = $2, updated_at = NOW()
WHERE id = $1
`, userID, at); err != nil {
		return fmt.Errorf("reset weekly analysis quota: %w", err)
	}

	return nil
}

func (r *ProfileRepo) ConsumeWeeklyAnalysis(ctx context.Context, userID string, limit int) (int, error) {
	if strings.TrimSpace(userID) == "" || limit <= 0 {
		return 0, fmt.Errorf("invalid analysis consume payload")
	}
	if r.pool == nil {
		return 1, nil
	}

	var used int
	err := r.pool.QueryRow(ctx, `
UPDATE user_profiles
SET weekly_analysis_used = weekly_analysis_used + 1, updated_at = NOW()
WHERE id = $1 AND weekly_analysis_used < $2
RETURNING weekly_analysis_used
`, userID, limit).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrQuotaConsumed
		}
		return 0, fmt.Errorf("consume weekly analysis quota: %w", err)
	}

	return used, nil
}
