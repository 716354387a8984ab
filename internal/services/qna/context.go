package qna

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/samson623/sports-buddy/internal/domain/model"
)

const (
	rosterLimit = 15
	injuryLimit = 10
)

type TeamStore interface {
	GetByID(ctx context.Context, teamID string) (*model.Team, error)
}

// ContextBuilder assembles the plain-text game briefing that grounds
// generative answers. Missing rows degrade to "N/A" lines rather than
// failing the request.
type ContextBuilder struct {
	teams      TeamStore
	depthChart DepthChartStore
	games      GameStore
	injuries   InjuryStore
	odds       OddsStore
	logger     *zap.Logger
}

func NewContextBuilder(teams TeamStore, depthChart DepthChartStore, games GameStore, injuries InjuryStore, odds OddsStore, logger *zap.Logger) *ContextBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextBuilder{
		teams:      teams,
		depthChart: depthChart,
		games:      games,
		injuries:   injuries,
		odds:       odds,
		logger:     logger,
	}
}

// BuildForGame renders the briefing for one game: matchup, kickoff,
// rosters, injury report, latest odds. Returns "" when the game or
// either team cannot be loaded; the generative fallback then runs
// without structured grounding.
func (b *ContextBuilder) BuildForGame(ctx context.Context, gameID string) string {
	if strings.TrimSpace(gameID) == "" {
		return ""
	}

	game, err := b.games.GetByID(ctx, gameID)
	if err != nil {
		b.logger.Warn("context: game lookup failed", zap.String("game_id", gameID), zap.Error(err))
		return ""
	}
	if game == nil {
		return ""
	}

	home := b.teamByID(ctx, game.HomeTeamID)
	away := b.teamByID(ctx, game.AwayTeamID)
	if home == nil || away == nil {
		return ""
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "Matchup: %s at %s\n", away.FullName, home.FullName)
	if game.KickoffUTC.IsZero() {
		sb.WriteString("Kickoff: N/A\n")
	} else {
		fmt.Fprintf(&sb, "Kickoff: %s\n", game.KickoffUTC.Format("Monday, Jan 2 2006 at 3:04 PM MST"))
	}
	if game.Venue != "" {
		fmt.Fprintf(&sb, "Venue: %s\n", game.Venue)
	}

	b.writeRoster(ctx, &sb, home)
	b.writeRoster(ctx, &sb, away)
	b.writeGameInjuries(ctx, &sb, game)
	b.writeOdds(ctx, &sb, game)

	return sb.String()
}

func (b *ContextBuilder) writeRoster(ctx context.Context, sb *strings.Builder, team *model.Team) {
	fmt.Fprintf(sb, "\n%s roster:\n", team.FullName)

	players, err := b.depthChart.Roster(ctx, team.ID, rosterLimit)
	if err != nil {
		b.logger.Warn("context: roster lookup failed", zap.String("team_id", team.ID), zap.Error(err))
		players = nil
	}
	if len(players) == 0 {
		sb.WriteString("N/A\n")
		return
	}
	for _, p := range players {
		fmt.Fprintf(sb, "  %s %s (%s)\n", p.FirstName, p.LastName, p.Position)
	}
}

func (b *ContextBuilder) writeGameInjuries(ctx context.Context, sb *strings.Builder, game *model.Game) {
	sb.WriteString("\nInjury report:\n")

	injuries, err := b.injuries.ListByGame(ctx, game.ID, injuryLimit)
	if err != nil {
		b.logger.Warn("context: injury lookup failed", zap.String("game_id", game.ID), zap.Error(err))
		injuries = nil
	}
	if len(injuries) == 0 {
		sb.WriteString("N/A\n")
		return
	}
	for _, inj := range injuries {
		fmt.Fprintf(sb, "  %s: %s (%s)\n", inj.PlayerName, inj.Status, inj.BodyPart)
	}
}

func (b *ContextBuilder) writeOdds(ctx context.Context, sb *strings.Builder, game *model.Game) {
	sb.WriteString("\nLatest odds:\n")

	line, err := b.odds.Latest(ctx, game.ID)
	if err != nil {
		b.logger.Warn("context: odds lookup failed", zap.String("game_id", game.ID), zap.Error(err))
		line = nil
	}
	if line == nil {
		sb.WriteString("N/A\n")
		return
	}
	fmt.Fprintf(sb, "  %s: spread %+.1f, ML home %+d, ML away %+d, total %.1f\n",
		line.Bookmaker, line.Spread, line.MoneylineHome, line.MoneylineAway, line.Total)
}

func (b *ContextBuilder) teamByID(ctx context.Context, id string) *model.Team {
	team, err := b.teams.GetByID(ctx, id)
	if err != nil {
		b.logger.Warn("context: team lookup failed", zap.String("team_id", id), zap.Error(err))
		return nil
	}
	return team
}
