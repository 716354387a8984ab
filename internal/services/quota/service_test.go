package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samson623/sports-buddy/internal/domain/model"
	"github.com/samson623/sports-buddy/internal/domain/tier"
	pgrepo "github.com/samson623/sports-buddy/internal/repo/postgres"
)

type fakeProfileStore struct {
	profile    model.QuotaProfile
	missing    bool
	resetCalls int
	resetAt    time.Time
}

func (f *fakeProfileStore) GetQuota(_ context.Context, _ string) (model.QuotaProfile, error) {
	if f.missing {
		return model.QuotaProfile{}, pgrepo.ErrProfileNotFound
	}
	return f.profile, nil
}

func (f *fakeProfileStore) ResetQuota(_ context.Context, _ string, at time.Time) error {
	f.resetCalls++
	f.resetAt = at
	f.profile.QuotaUsed = 0
	f.profile.QuotaResetAt = at
	return nil
}

func (f *fakeProfileStore) ConsumeQuota(_ context.Context, _ string, limit int, at time.Time) (int, error) {
	if f.missing || f.profile.QuotaUsed >= limit {
		return 0, pgrepo.ErrQuotaConsumed
	}
	f.profile.QuotaUsed++
	f.profile.QuotaResetAt = at
	return f.profile.QuotaUsed, nil
}

func newTracker(store ProfileStore, at *time.Time) *Tracker {
	return NewTracker(store, Config{}, nil).WithClock(func() time.Time { return *at })
}

func TestAdmitRejectsWhenLimitReached(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	store := &fakeProfileStore{profile: model.QuotaProfile{
		UserID:       "u1",
		Tier:         "free",
		QuotaUsed:    10,
		QuotaResetAt: now.Add(-time.Hour),
	}}

	_, err := newTracker(store, &now).Admit(context.Background(), "u1")
	if !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}

	var lre LimitReachedError
	if !errors.As(err, &lre) {
		t.Fatalf("expected LimitReachedError, got %T", err)
	}
	if lre.Tier != tier.Free || lre.Limit != 10 || lre.Used != 10 {
		t.Fatalf("unexpected limit metadata: %+v", lre)
	}
	if store.resetCalls != 0 {
		t.Fatal("reset must not run while the window is active")
	}
}

func TestAdmitResetsStaleWindowBeforeCheck(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	store := &fakeProfileStore{profile: model.QuotaProfile{
		UserID:       "u1",
		Tier:         "free",
		QuotaUsed:    10,
		QuotaResetAt: now.Add(-25 * time.Hour),
	}}

	snap, err := newTracker(store, &now).Admit(context.Background(), "u1")
	if err != nil {
		t.Fatalf("admit after stale window: %v", err)
	}
	if snap.Used != 0 {
		t.Fatalf("expected used reset to 0, got %d", snap.Used)
	}
	if store.resetCalls != 1 || !store.resetAt.Equal(now) {
		t.Fatalf("expected one reset stamped at now, got %d at %s", store.resetCalls, store.resetAt)
	}
}

func TestAdmitKeepsWindowAtExactBoundary(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	store := &fakeProfileStore{profile: model.QuotaProfile{
		UserID:       "u1",
		Tier:         "plus",
		QuotaUsed:    5,
		QuotaResetAt: now.Add(-24 * time.Hour),
	}}

	snap, err := newTracker(store, &now).Admit(context.Background(), "u1")
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	// Reset requires strictly more than the period to have elapsed.
	if store.resetCalls != 0 || snap.Used != 5 {
		t.Fatalf("unexpected reset at boundary: calls=%d used=%d", store.resetCalls, snap.Used)
	}
	if snap.Tier != tier.Plus || snap.Limit != 100 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestAdmitTreatsMissingProfileAsFreshFreeUser(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	store := &fakeProfileStore{missing: true}

	snap, err := newTracker(store, &now).Admit(context.Background(), "u1")
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if snap.Tier != tier.Free || snap.Used != 0 || snap.Limit != 10 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestCommitIncrementsAndStamps(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	store := &fakeProfileStore{profile: model.QuotaProfile{
		UserID:       "u1",
		Tier:         "free",
		QuotaUsed:    3,
		QuotaResetAt: now.Add(-time.Hour),
	}}

	snap, err := newTracker(store, &now).Commit(context.Background(), "u1", tier.Free)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if snap.Used != 4 || snap.Remaining() != 6 {
		t.Fatalf("unexpected snapshot after commit: %+v", snap)
	}
	if !store.profile.QuotaResetAt.Equal(now) {
		t.Fatal("commit must restamp reset_at with the increment")
	}
}

func TestCommitLosingRaceReportsLimit(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	store := &fakeProfileStore{profile: model.QuotaProfile{
		UserID:       "u1",
		Tier:         "free",
		QuotaUsed:    10,
		QuotaResetAt: now.Add(-time.Hour),
	}}

	_, err := newTracker(store, &now).Commit(context.Background(), "u1", tier.Free)
	if !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
}

func TestCommitWithoutProfileRowIsNoop(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	store := &fakeProfileStore{missing: true}

	snap, err := newTracker(store, &now).Commit(context.Background(), "u1", tier.Free)
	if err != nil {
		t.Fatalf("commit without profile: %v", err)
	}
	if snap.Used != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
