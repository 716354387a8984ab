package analysis

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
	"github.com/samson623/sports-buddy/internal/services/qna"
)

var (
	ErrValidation = errors.New("validation error")

	// ErrTierForbidden rejects free-tier (and anonymous) requests for
	// pre-game analyses.
	ErrTierForbidden = errors.New("analysis requires a plus or pro subscription")

	// ErrWeeklyLimitReached rejects a plus user whose one analysis this
	// week is already spent.
	ErrWeeklyLimitReached = errors.New("weekly analysis limit reached")

	ErrGameNotFound = errors.New("game not found")
)

const plusWeeklyLimit = 1

type ProfileStore interface {
	GetQuota(ctx context.Context, userID string) (model.QuotaProfile, error)
	ResetWeeklyAnalysis(ctx context.Context, userID string, at time.Time) error
	ConsumeWeeklyAnalysis(ctx context.Context, userID string, limit int) (int, error)
}

type AnalysisStore interface {
	GetByGame(ctx context.Context, gameID string) (*model.AnalysisRecord, error)
	Insert(ctx context.Context, gameID, content string, tokenCount int) error
}

type GameStore interface {
	GetByID(ctx context.Context, gameID string) (*model.Game, error)
}

type TeamStore interface {
	GetByID(ctx context.Context, teamID string) (*model.Team, error)
}

// Generator produces the analysis text for a matchup prompt within a
// token budget. The qna fallback satisfies it.
type Generator interface {
	Generate(ctx context.Context, question, briefing string, maxTokens int) (qna.GeneratedAnswer, error)
}

// Briefer renders the structured game context the generator is grounded
// on. The qna context builder satisfies it.
type Briefer interface {
	BuildForGame(ctx context.Context, gameID string) string
}

type Result struct {
	GameID  string
	Content string
	Cached  bool
	Matchup string
}

// Service produces tier-gated pre-game analyses. Results are cached per
// game so concurrent subscribers share one generation.
type Service struct {
	profiles  ProfileStore
	analyses  AnalysisStore
	games     GameStore
	teams     TeamStore
	generator Generator
	briefer   Briefer

	weeklyPeriod time.Duration
	maxTokens    int
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(
	profiles ProfileStore,
	analyses AnalysisStore,
	games GameStore,
	teams TeamStore,
	generator Generator,
	briefer Briefer,
	maxTokens int,
	logger *zap.Logger,
) *Service {
	if maxTokens <= 0 {
		maxTokens = 600
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		profiles:     profiles,
		analyses:     analyses,
		games:        games,
		teams:        teams,
		generator:    generator,
		briefer:      briefer,
		weeklyPeriod: 7 * 24 * time.Hour,
		maxTokens:    maxTokens,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock overrides the service's time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Generate returns the analysis for a game, serving the cached copy when
// one exists. A cache hit spends no allowance.
func (s *Service) Generate(ctx context.Context, userID, gameID string) (*Result, error) {
	if strings.TrimSpace(gameID) == "" {
		return nil, fmt.Errorf("%w: game id is required", ErrValidation)
	}
	if strings.TrimSpace(userID) == "" {
		return nil, ErrTierForbidden
	}

	profile, err := s.profiles.GetQuota(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return nil, ErrTierForbidden
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	tr := tier.Parse(profile.Tier)
	if !tier.CanGenerateAnalysis(tr) {
		return nil, ErrTierForbidden
	}

	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	if game == nil {
		return nil, ErrGameNotFound
	}

	matchup, err := s.matchupLabel(ctx, game)
	if err != nil {
		return nil, err
	}

	if cached, err := s.analyses.GetByGame(ctx, gameID); err != nil {
		s.logger.Warn("analysis cache read failed", zap.String("game_id", gameID), zap.Error(err))
	} else if cached != nil {
		return &Result{GameID: gameID, Content: cached.Content, Cached: true, Matchup: matchup}, nil
	}

	if tr == tier.Plus {
		if err := s.admitPlus(ctx, userID, profile); err != nil {
			return nil, err
		}
	}

	prompt := fmt.Sprintf("Write a pre-game analysis for %s: key players, injury impact, the betting line, and a prediction.", matchup)
	answer, err := s.generator.Generate(ctx, prompt, s.briefer.BuildForGame(ctx, gameID), s.maxTokens)
	if err != nil {
		return nil, err
	}

	if err := s.analyses.Insert(ctx, gameID, answer.Answer, answer.OutputTokens); err != nil {
		// The user still gets the analysis; only reuse is lost.
		s.logger.Warn("analysis cache write failed", zap.String("game_id", gameID), zap.Error(err))
	}

	if tr == tier.Plus {
		if _, err := s.profiles.ConsumeWeeklyAnalysis(ctx, userID, plusWeeklyLimit); err != nil {
			if !errors.Is(err, pgrepo.ErrQuotaConsumed) {
				return nil, fmt.Errorf("consume analysis quota: %w", err)
			}
			// Lost the race to a concurrent request; the analysis is
			// already produced and cached, so serve it anyway.
			s.logger.Warn("weekly analysis counter already spent", zap.String("user_id", userID))
		}
	}

	return &Result{GameID: gameID, Content: answer.Answer, Matchup: matchup}, nil
}

// admitPlus applies the one-per-week allowance, resetting a stale window
// first.
func (s *Service) admitPlus(ctx context.Context, userID string, profile model.QuotaProfile) error {
	now := s.now()
	used := profile.WeeklyAnalysisUsed

	if now.Sub(profile.WeeklyAnalysisReset) > s.weeklyPeriod {
		if err := s.profiles.ResetWeeklyAnalysis(ctx, userID, now); err != nil {
			return fmt.Errorf("reset analysis quota: %w", err)
		}
		used = 0
	}

	if used >= plusWeeklyLimit {
		return ErrWeeklyLimitReached
	}
	return nil
}

func (s *Service) matchupLabel(ctx context.Context, game *model.Game) (string, error) {
	home, err := s.teams.GetByID(ctx, game.HomeTeamID)
	if err != nil {
		return "", fmt.Errorf("load home team: %w", err)
	}
	away, err := s.teams.GetByID(ctx, game.AwayTeamID)
	if err != nil {
		return "", fmt.Errorf("load away team: %w", err)
	}
	if home == nil || away == nil {
		return "", ErrGameNotFound
	}
	return fmt.Sprintf("%s at %s", away.FullName, home.FullName), nil
}
