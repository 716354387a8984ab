package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samson623/sports-buddy/internal/domain/model"
)

type GameRepo struct {
	pool *pgxpool.Pool
}

func NewGameRepo(pool *pgxpool.Pool) *GameRepo {
	return &GameRepo{pool: pool}
}

const gameColumns = `
SELECT id, season, week, COALESCE(home_team_id, ''), COALESCE(away_team_id, ''),
	COALESCE(kickoff_utc, 'epoch'::timestamptz), COALESCE(venue, ''), status
FROM games
`

// NextScheduled returns the earliest upcoming scheduled game involving the
// team, or nil when none is on the calendar.
func (r *GameRepo) NextScheduled(ctx context.Context, teamID string) (*model.Game, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, fmt.Errorf("team id is required")
	}
	if r.pool == nil {
		return nil, nil
	}

	row := r.pool.QueryRow(ctx, gameColumns+`
WHERE (home_team_id = $1 OR away_team_id = $1) AND status = 'scheduled'
ORDER BY kickoff_utc ASC
LIMIT 1
`, teamID)

	return scanGame(row)
}

// MostRecent returns the team's latest game regardless of status, used to
// anchor odds lookups.
func (r *GameRepo) MostRecent(ctx context.Context, teamID string) (*model.Game, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, fmt.Errorf("team id is required")
	}
	if r.pool == nil {
		return nil, nil
	}

	row := r.pool.QueryRow(ctx, gameColumns+`
WHERE home_team_id = $1 OR away_team_id = $1
ORDER BY kickoff_utc DESC
LIMIT 1
`, teamID)

	return scanGame(row)
}

func (r *GameRepo) GetByID(ctx context.Context, gameID string) (*model.Game, error) {
	if strings.TrimSpace(gameID) == "" {
		return nil, fmt.Errorf("game id is required")
	}
	if r.pool == nil {
		return nil, nil
	}

	row := r.pool.QueryRow(ctx, gameColumns+`
WHERE id = $1
`, gameID)

	return scanGame(row)
}

func scanGame(row pgx.Row) (*model.Game, error) {
	var g model.Game
	err := row.Scan(&g.ID, &g.Season, &g.Week, &g.HomeTeamID, &g.AwayTeamID, &g.KickoffUTC, &g.Venue, &g.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find game: %w", err)
	}
	return &g, nil
}
