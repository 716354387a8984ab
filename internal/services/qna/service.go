package qna

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samson623/sports-buddy/internal/domain/model"
	"github.com/samson623/sports-buddy/internal/domain/tier"
	"github.com/samson623/sports-buddy/internal/services/quota"
	"github.com/samson623/sports-buddy/internal/services/rate"
)

var (
	ErrMissingQuestion = errors.New("question is required")
	ErrQuestionTooLong = errors.New("question is too long")
	ErrRateLimited     = errors.New("rate limited")
)

// RateLimitedError carries the retry metadata for a denied request.
// errors.Is(err, ErrRateLimited) matches it.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

type LogStore interface {
	Insert(ctx context.Context, rec model.QALogRecord) error
}

// Actor identifies who is asking. An empty UserID means an anonymous
// request, tracked by IP address and exempt from quota.
type Actor struct {
	UserID string
	IPAddr string
}

// Result is one answered question with the admission state the caller
// reports back. Quota is nil for anonymous actors.
type Result struct {
	Answer       string
	RoutedToDB   bool
	InputTokens  *int
	OutputTokens *int
	Tier         tier.Tier
	Quota        *quota.Snapshot
	Rate         rate.Decision
}

// Config carries the ask pipeline knobs. Zero values fall back to the
// tier table defaults.
type Config struct {
	MaxQuestionLen int
	FreeTokens     int
	PlusTokens     int
	ProTokens      int
}

// Service runs the ask pipeline: rate limit, quota admission, pattern
// routing, generative fallback, interaction log, quota commit.
type Service struct {
	limiter  *rate.Limiter
	quotas   *quota.Tracker
	router   *Router
	contexts *ContextBuilder
	fallback *Fallback
	logs     LogStore

	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewService(
	limiter *rate.Limiter,
	quotas *quota.Tracker,
	router *Router,
	contexts *ContextBuilder,
	fallback *Fallback,
	logs LogStore,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.MaxQuestionLen <= 0 {
		cfg.MaxQuestionLen = 500
	}
	if cfg.FreeTokens <= 0 {
		cfg.FreeTokens = tier.MaxAnswerTokens(tier.Free)
	}
	if cfg.PlusTokens <= 0 {
		cfg.PlusTokens = tier.MaxAnswerTokens(tier.Plus)
	}
	if cfg.ProTokens <= 0 {
		cfg.ProTokens = tier.MaxAnswerTokens(tier.Pro)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		limiter:  limiter,
		quotas:   quotas,
		router:   router,
		contexts: contexts,
		fallback: fallback,
		logs:     logs,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// TokenBudget is the generated-answer completion cap for a tier.
func (s *Service) TokenBudget(tr tier.Tier) int {
	switch tr {
	case tier.Pro:
		return s.cfg.ProTokens
	case tier.Plus:
		return s.cfg.PlusTokens
	default:
		return s.cfg.FreeTokens
	}
}

// WithClock overrides the service's time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Usage reports the actor's current quota standing without consuming
// anything. Anonymous actors get a nil snapshot.
func (s *Service) Usage(ctx context.Context, actor Actor) (tier.Tier, *quota.Snapshot, error) {
	if actor.UserID == "" {
		return tier.Anon, nil, nil
	}
	snap, err := s.quotas.Admit(ctx, actor.UserID)
	if err != nil {
		var limitErr quota.LimitReachedError
		if !errors.As(err, &limitErr) {
			return "", nil, err
		}
		snap = quota.Snapshot{Tier: limitErr.Tier, Used: limitErr.Used, Limit: limitErr.Limit}
	}
	return snap.Tier, &snap, nil
}

// Ask answers one question. gameID is optional; when present the
// generative fallback is grounded on that game's briefing, otherwise it
// runs without context. Hard failures before an answer is produced
// leave no side effects: no log record, no quota increment.
func (s *Service) Ask(ctx context.Context, actor Actor, question, gameID string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrMissingQuestion
	}
	if utf8.RuneCountInString(question) > s.cfg.MaxQuestionLen {
		return nil, ErrQuestionTooLong
	}

	dec, err := s.limiter.Consume(ctx, s.rateKey(actor))
	if err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	if !dec.Allowed {
		return nil, RateLimitedError{RetryAfter: dec.RetryAfter}
	}

	actorTier := tier.Anon
	var admitted quota.Snapshot
	if actor.UserID != "" {
		admitted, err = s.quotas.Admit(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		actorTier = admitted.Tier
	}

	res := &Result{Tier: actorTier, Rate: dec}

	routed, err := s.router.Route(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("route question: %w", err)
	}
	if routed != nil {
		res.Answer = routed.Answer
		res.RoutedToDB = routed.RoutedToDB
	} else {
		var briefing string
		if gameID != "" {
			briefing = s.contexts.BuildForGame(ctx, gameID)
		}
		gen, err := s.fallback.Generate(ctx, question, briefing, s.TokenBudget(actorTier))
		if err != nil {
			return nil, err
		}
		res.Answer = gen.Answer
		res.InputTokens = &gen.InputTokens
		res.OutputTokens = &gen.OutputTokens
	}

	s.logInteraction(ctx, actor, question, res)

	if actor.UserID != "" {
		committed, err := s.quotas.Commit(ctx, actor.UserID, actorTier)
		if err != nil {
			// The answer is already produced; a lost increment race or a
			// store hiccup degrades to the admission snapshot, not a
			// failed request.
			s.logger.Warn("quota commit failed", zap.String("user_id", actor.UserID), zap.Error(err))
			committed = admitted
			committed.Used++
			if committed.Used > committed.Limit {
				committed.Used = committed.Limit
			}
		}
		res.Quota = &committed
	}

	return res, nil
}

// logInteraction appends the record off the request path. The context is
// detached so an already-answered request finishing does not cancel the
// write.
func (s *Service) logInteraction(ctx context.Context, actor Actor, question string, res *Result) {
	rec := model.QALogRecord{
		ID:           uuid.NewString(),
		Question:     question,
		Answer:       res.Answer,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
		RoutedToDB:   res.RoutedToDB,
		CreatedAt:    s.now(),
	}
	if actor.UserID != "" {
		id := actor.UserID
		rec.UserID = &id
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		bg, cancel := context.WithTimeout(bg, 5*time.Second)
		defer cancel()
		if err := s.logs.Insert(bg, rec); err != nil {
			s.logger.Warn("interaction log write failed", zap.String("qa_id", rec.ID), zap.Error(err))
		}
	}()
}

func (s *Service) rateKey(actor Actor) string {
	if actor.UserID != "" {
		return rate.UserKey(actor.UserID)
	}
	return rate.IPKey(actor.IPAddr)
}
