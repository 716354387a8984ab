package qna

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/samson623/sports-buddy/internal/domain/model"
)

// RoutedAnswer is a deterministic answer produced from structured data,
// bypassing the generative fallback.
type RoutedAnswer struct {
	Answer     string
	RoutedToDB bool
}

type TeamResolver interface {
	Resolve(ctx context.Context, mention string) (*model.Team, error)
}

type DepthChartStore interface {
	Starter(ctx context.Context, teamID, position string) (*model.Player, error)
	Roster(ctx context.Context, teamID string, limit int) ([]model.Player, error)
}

type GameStore interface {
	NextScheduled(ctx context.Context, teamID string) (*model.Game, error)
	MostRecent(ctx context.Context, teamID string) (*model.Game, error)
	GetByID(ctx context.Context, gameID string) (*model.Game, error)
}

type InjuryStore interface {
	ListByTeam(ctx context.Context, teamID string, limit int) ([]model.Injury, error)
	ListByGame(ctx context.Context, gameID string, limit int) ([]model.Injury, error)
}

type OddsStore interface {
	Latest(ctx context.Context, gameID string) (*model.Odds, error)
}

// template is one recognized question shape. pattern captures the team
// mention; answer produces the routed text for the resolved team, or
// ok=false when the structured data cannot answer it.
type template struct {
	name    string
	pattern *regexp.Regexp
	answer  func(ctx context.Context, team *model.Team) (string, bool, error)
}

// Router tries a fixed, ordered list of question templates and answers
// the first match from the data store. Ordering is the tie-break for
// overlapping shapes.
//
// Not-found policy: a matched template whose team mention resolves to
// nothing yields an explicit "couldn't find team" routed answer. A nil
// result (and with it the generative fallback) happens only when no
// template matched, or when the team resolved but the backing rows are
// absent.
type Router struct {
	resolver   TeamResolver
	depthChart DepthChartStore
	games      GameStore
	injuries   InjuryStore
	odds       OddsStore
	templates  []template
}

func NewRouter(resolver TeamResolver, depthChart DepthChartStore, games GameStore, injuries InjuryStore, odds OddsStore) *Router {
	r := &Router{
		resolver:   resolver,
		depthChart: depthChart,
		games:      games,
		injuries:   injuries,
		odds:       odds,
	}
	r.templates = []template{
		{
			name:    "starter_qb",
			pattern: regexp.MustCompile(`(?i)who\s+is\s+(?:the\s+)?starting\s+(?:qb|quarterback)\s+(?:for|of)\s+(?:the\s+)?(\w+)`),
			answer:  r.answerStarterQB,
		},
		{
			name:    "game_time",
			pattern: regexp.MustCompile(`(?i)(?:what\s+time|when)\s+(?:is|do(?:es)?)\s+(?:the\s+)?(\w+)`),
			answer:  r.answerGameTime,
		},
		{
			name:    "injuries",
			pattern: regexp.MustCompile(`(?i)(?:who|which\s+players?)\s+(?:are|is)\s+injured\s+(?:on|for|with)\s+(?:the\s+)?(\w+)`),
			answer:  r.answerInjuries,
		},
		{
			name:    "odds",
			pattern: regexp.MustCompile(`(?i)(?:what|what\s+are|what's)\s+(?:the\s+)?(?:odds|spread|over|under)\s+(?:for|on)\s+(?:the\s+)?(\w+)`),
			answer:  r.answerOdds,
		},
	}
	return r
}

// Route returns nil when the generative fallback should handle the
// question. Routing is deterministic: the same question against unchanged
// data always yields the same answer.
func (r *Router) Route(ctx context.Context, question string) (*RoutedAnswer, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return nil, nil
	}

	for _, tmpl := range r.templates {
		m := tmpl.pattern.FindStringSubmatch(q)
		if m == nil {
			continue
		}

		mention := m[1]
		team, err := r.resolver.Resolve(ctx, mention)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", tmpl.name, err)
		}
		if team == nil {
			return &RoutedAnswer{
				Answer:     fmt.Sprintf("Sorry, I couldn't find a team matching %q.", mention),
				RoutedToDB: true,
			}, nil
		}

		answer, ok, err := tmpl.answer(ctx, team)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", tmpl.name, err)
		}
		if !ok {
			return nil, nil
		}
		return &RoutedAnswer{Answer: answer, RoutedToDB: true}, nil
	}

	return nil, nil
}

func (r *Router) answerStarterQB(ctx context.Context, team *model.Team) (string, bool, error) {
	starter, err := r.depthChart.Starter(ctx, team.ID, "QB")
	if err != nil {
		return "", false, err
	}
	if starter == nil {
		return "", false, nil
	}
	return fmt.Sprintf("Starting QB: %s %s.", starter.FirstName, starter.LastName), true, nil
}

func (r *Router) answerGameTime(ctx context.Context, team *model.Team) (string, bool, error) {
	game, err := r.games.NextScheduled(ctx, team.ID)
	if err != nil {
		return "", false, err
	}
	if game == nil || game.KickoffUTC.IsZero() {
		return "", false, nil
	}
	return fmt.Sprintf("Kickoff: %s.", game.KickoffUTC.Format("Monday, Jan 2 at 3:04 PM MST")), true, nil
}

func (r *Router) answerInjuries(ctx context.Context, team *model.Team) (string, bool, error) {
	injuries, err := r.injuries.ListByTeam(ctx, team.ID, 10)
	if err != nil {
		return "", false, err
	}
	if len(injuries) == 0 {
		return fmt.Sprintf("No reported injuries for %s.", team.FullName), true, nil
	}

	lines := make([]string, 0, len(injuries))
	for _, inj := range injuries {
		desc := inj.Description
		if desc == "" {
			desc = inj.BodyPart
		}
		lines = append(lines, fmt.Sprintf("%s: %s – %s", inj.PlayerName, inj.Status, desc))
	}
	return strings.Join(lines, "\n"), true, nil
}

func (r *Router) answerOdds(ctx context.Context, team *model.Team) (string, bool, error) {
	game, err := r.games.MostRecent(ctx, team.ID)
	if err != nil {
		return "", false, err
	}
	if game == nil {
		return "", false, nil
	}

	odds, err := r.odds.Latest(ctx, game.ID)
	if err != nil {
		return "", false, err
	}
	if odds == nil {
		return "", false, nil
	}

	return fmt.Sprintf("Odds (%s): spread %+.1f, ML home %+d, ML away %+d, total %.1f.",
		odds.Bookmaker, odds.Spread, odds.MoneylineHome, odds.MoneylineAway, odds.Total), true, nil
}
