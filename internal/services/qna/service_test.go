package qna

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/samson623/sports-buddy/internal/config"
	"github.com/samson623/sports-buddy/internal/domain/model"
	"github.com/samson623/sports-buddy/internal/domain/tier"
	pgrepo "github.com/samson623/sports-buddy/internal/repo/postgres"
	"github.com/samson623/sports-buddy/internal/services/quota"
	"github.com/samson623/sports-buddy/internal/services/rate"
)

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]model.QuotaProfile
}

func (f *fakeProfileStore) GetQuota(_ context.Context, userID string) (model.QuotaProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return model.QuotaProfile{}, pgrepo.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfileStore) ResetQuota(_ context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return pgrepo.ErrProfileNotFound
	}
	p.QuotaUsed = 0
	p.QuotaResetAt = at
	f.profiles[userID] = p
	return nil
}

func (f *fakeProfileStore) ConsumeQuota(_ context.Context, userID string, limit int, at time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok || p.QuotaUsed >= limit {
		return 0, pgrepo.ErrQuotaConsumed
	}
	p.QuotaUsed++
	p.QuotaResetAt = at
	f.profiles[userID] = p
	return p.QuotaUsed, nil
}

func (f *fakeProfileStore) used(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID].QuotaUsed
}

type fakeLogStore struct {
	mu      sync.Mutex
	records []model.QALogRecord
	written chan model.QALogRecord
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{written: make(chan model.QALogRecord, 8)}
}

func (f *fakeLogStore) Insert(_ context.Context, rec model.QALogRecord) error {
	f.mu.Lock()
	f.records = append(f.records, rec)
	f.mu.Unlock()
	f.written <- rec
	return nil
}

func (f *fakeLogStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type serviceFixture struct {
	svc      *Service
	profiles *fakeProfileStore
	logs     *fakeLogStore
	clock    time.Time
}

func newServiceFixture(t *testing.T, fb *Fallback) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		profiles: &fakeProfileStore{profiles: map[string]model.QuotaProfile{}},
		logs:     newFakeLogStore(),
		clock:    time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }

	router, data := routerFixture()
	store := &fakeTeamStore{teams: []model.Team{
		{ID: "sf", Sport: "nfl", Abbreviation: "SF", FullName: "San Francisco 49ers"},
		{ID: "kc", Sport: "nfl", Abbreviation: "KC", FullName: "Kansas City Chiefs"},
	}}
	contexts := NewContextBuilder(store, data, data, data, data, zap.NewNop())

	limiter := rate.NewLimiter(rate.NewMemoryStore(), time.Minute, 3, zap.NewNop()).WithClock(now)
	quotas := quota.NewTracker(f.profiles, quota.Config{Period: 24 * time.Hour}, zap.NewNop()).WithClock(now)

	if fb == nil {
		fb = NewFallback(config.OpenAIConfig{Timeout: time.Second}, zap.NewNop())
	}

	f.svc = NewService(limiter, quotas, router, contexts, fb, f.logs, Config{}, zap.NewNop()).WithClock(now)
	return f
}

func (f *serviceFixture) addProfile(userID, tierName string, used int, resetAt time.Time) {
	f.profiles.mu.Lock()
	defer f.profiles.mu.Unlock()
	f.profiles.profiles[userID] = model.QuotaProfile{
		UserID:       userID,
		Tier:         tierName,
		QuotaUsed:    used,
		QuotaResetAt: resetAt,
	}
}

func (f *serviceFixture) waitForLog(t *testing.T) model.QALogRecord {
	t.Helper()
	select {
	case rec := <-f.logs.written:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("no interaction log record written")
		return model.QALogRecord{}
	}
}

func TestAskRoutedQuestion(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.addProfile("u1", "free", 0, f.clock)

	res, err := f.svc.Ask(context.Background(), Actor{UserID: "u1"}, "Who is starting QB for 49ers?", "")
	require.NoError(t, err)
	assert.Equal(t, "Starting QB: Brock Purdy.", res.Answer)
	assert.True(t, res.RoutedToDB)
	assert.Nil(t, res.InputTokens)
	assert.Nil(t, res.OutputTokens)
	assert.Equal(t, tier.Free, res.Tier)

	require.NotNil(t, res.Quota)
	assert.Equal(t, 1, res.Quota.Used)
	assert.Equal(t, 10, res.Quota.Limit)
	assert.Equal(t, 9, res.Quota.Remaining())

	rec := f.waitForLog(t)
	require.NotNil(t, rec.UserID)
	assert.Equal(t, "u1", *rec.UserID)
	assert.Equal(t, "Who is starting QB for 49ers?", rec.Question)
	assert.Equal(t, "Starting QB: Brock Purdy.", rec.Answer)
	assert.True(t, rec.RoutedToDB)
	assert.Nil(t, rec.InputTokens)
	assert.Equal(t, 1, f.profiles.used("u1"))
}

func TestAskFallbackQuestion(t *testing.T) {
	stub := &completionStub{answer: "Hard to say, but the line favors the Chiefs.", promptTokens: 80, outputTokens: 15}
	f := newServiceFixture(t, newStubFallback(t, stub, 5*time.Second))
	f.addProfile("u1", "plus", 0, f.clock)

	res, err := f.svc.Ask(context.Background(), Actor{UserID: "u1"}, "Will the 49ers cover the spread this week?", "g1")
	require.NoError(t, err)
	assert.False(t, res.RoutedToDB)
	assert.Equal(t, "Hard to say, but the line favors the Chiefs.", res.Answer)
	require.NotNil(t, res.InputTokens)
	assert.Equal(t, 80, *res.InputTokens)
	require.NotNil(t, res.OutputTokens)
	assert.Equal(t, 15, *res.OutputTokens)

	// Plus tier carries a 300-token completion budget.
	assert.Equal(t, float64(300), stub.lastRequest["max_tokens"])

	// The supplied game grounds the request with a briefing message.
	msgs, ok := stub.lastRequest["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	briefing := msgs[1].(map[string]any)
	assert.Contains(t, briefing["content"], "Matchup: Kansas City Chiefs at San Francisco 49ers")

	rec := f.waitForLog(t)
	assert.False(t, rec.RoutedToDB)
	require.NotNil(t, rec.OutputTokens)
	assert.Equal(t, 15, *rec.OutputTokens)
}

func TestAskFallbackWithoutGameHasNoBriefing(t *testing.T) {
	stub := &completionStub{answer: "Probably the favorite.", promptTokens: 20, outputTokens: 8}
	f := newServiceFixture(t, newStubFallback(t, stub, 5*time.Second))
	f.addProfile("u1", "free", 0, f.clock)

	res, err := f.svc.Ask(context.Background(), Actor{UserID: "u1"}, "Will the 49ers cover the spread this week?", "")
	require.NoError(t, err)
	assert.False(t, res.RoutedToDB)

	// No game id, no context block: just the prompt and the question.
	msgs, ok := stub.lastRequest["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)

	// Free tier carries a 200-token completion budget.
	assert.Equal(t, float64(200), stub.lastRequest["max_tokens"])

	f.waitForLog(t)
}

func TestAskMissingQuestion(t *testing.T) {
	f := newServiceFixture(t, nil)

	_, err := f.svc.Ask(context.Background(), Actor{UserID: "u1"}, "   ", "")
	assert.ErrorIs(t, err, ErrMissingQuestion)

	_, err = f.svc.Ask(context.Background(), Actor{UserID: "u1"}, strings.Repeat("x", 501), "")
	assert.ErrorIs(t, err, ErrQuestionTooLong)
	assert.Zero(t, f.logs.count())
}

func TestAskQuestionLengthCountsRunes(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.addProfile("u1", "free", 0, f.clock)

	// 500 characters but well over 500 bytes must be accepted.
	res, err := f.svc.Ask(context.Background(), Actor{UserID: "u1"}, strings.Repeat("é", 500), "")
	require.NoError(t, err)
	assert.Equal(t, UnavailableAnswer, res.Answer)
	f.waitForLog(t)

	_, err = f.svc.Ask(context.Background(), Actor{UserID: "u1"}, strings.Repeat("é", 501), "")
	assert.ErrorIs(t, err, ErrQuestionTooLong)
}

func TestAskRateLimited(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.addProfile("u1", "pro", 0, f.clock)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Ask(context.Background(), Actor{UserID: "u1"}, "Who is starting QB for 49ers?", "")
		require.NoError(t, err)
	}

	_, err := f.svc.Ask(context.Background(), Actor{UserID: "u1"}, "Who is starting QB for 49ers?", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)

	var limited RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Greater(t, limited.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, limited.RetryAfter, time.Minute)

	// The denied request consumed nothing.
	assert.Equal(t, 3, f.profiles.used("u1"))
}

func TestAskQuotaExhausted(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.addProfile("u1", "free", 10, f.clock)

	_, err := f.svc.Ask(context.Background(), Actor{UserID: "u1"}, "Who is starting QB for 49ers?", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, quota.ErrLimitReached)

	var limitErr quota.LimitReachedError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, tier.Free, limitErr.Tier)
	assert.Equal(t, 10, limitErr.Limit)
	assert.Zero(t, f.logs.count())
}

func TestAskStaleQuotaResetsBeforeCheck(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.addProfile("u1", "free", 10, f.clock.Add(-25*time.Hour))

	res, err := f.svc.Ask(context.Background(), Actor{UserID: "u1"}, "Who is starting QB for 49ers?", "")
	require.NoError(t, err)
	require.NotNil(t, res.Quota)
	assert.Equal(t, 1, res.Quota.Used)
}

func TestAskTimeoutLeavesNoSideEffects(t *testing.T) {
	stub := &completionStub{answer: "too slow", delay: 300 * time.Millisecond}
	f := newServiceFixture(t, newStubFallback(t, stub, 50*time.Millisecond))
	f.addProfile("u1", "free", 2, f.clock)

	_, err := f.svc.Ask(context.Background(), Actor{UserID: "u1"}, "Will the 49ers cover the spread this week?", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, f.logs.count())
	assert.Equal(t, 2, f.profiles.used("u1"))
}

func TestAskAnonymousSkipsQuota(t *testing.T) {
	f := newServiceFixture(t, nil)

	res, err := f.svc.Ask(context.Background(), Actor{IPAddr: "203.0.113.9"}, "Who is starting QB for 49ers?", "")
	require.NoError(t, err)
	assert.Equal(t, tier.Anon, res.Tier)
	assert.Nil(t, res.Quota)

	rec := f.waitForLog(t)
	assert.Nil(t, rec.UserID)
}

func TestUsageReportsWithoutConsuming(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.addProfile("u1", "plus", 7, f.clock)

	tr, snap, err := f.svc.Usage(context.Background(), Actor{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, tier.Plus, tr)
	require.NotNil(t, snap)
	assert.Equal(t, 7, snap.Used)
	assert.Equal(t, 100, snap.Limit)
	assert.Equal(t, 7, f.profiles.used("u1"))

	tr, snap, err = f.svc.Usage(context.Background(), Actor{})
	require.NoError(t, err)
	assert.Equal(t, tier.Anon, tr)
	assert.Nil(t, snap)
}
