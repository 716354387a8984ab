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

type DepthChartRepo struct {
	pool *pgxpool.Pool
}

func NewDepthChartRepo(pool *pgxpool.Pool) *DepthChartRepo {
	return &DepthChartRepo{pool: pool}
}

// Starter returns the rank-1 depth chart player for a team position, or
// nil when the chart has no entry for that slot.
func (r *DepthChartRepo) Starter(ctx context.Context, teamID, position string) (*model.Player, error) {
	if strings.TrimSpace(teamID) == "" || strings.TrimSpace(position) == "" {
		return nil, fmt.Errorf("invalid depth chart lookup payload")
	}
	if r.pool == nil {
		return nil, nil
	}

	var p model.Player
	err := r.pool.QueryRow(ctx, `
SELECT p.id, COALESCE(p.team_id, ''), p.first_name, p.last_name,
	COALESCE(p.position, ''), COALESCE(p.jersey_number, 0)
FROM depth_chart dc
JOIN players p ON p.id = dc.player_id
WHERE dc.team_id = $1 AND dc.position = $2 AND dc.rank = 1
ORDER BY dc.valid_from DESC
LIMIT 1
`, teamID, position).Scan(&p.ID, &p.TeamID, &p.FirstName, &p.LastName, &p.Position, &p.JerseyNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find depth chart starter: %w", err)
	}

	return &p, nil
}

// Roster returns up to limit players for a team, for fallback context
// assembly.
func (r *DepthChartRepo) Roster(ctx context.Context, teamID string, limit int) ([]model.Player, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, fmt.Errorf("team id is required")
	}
	if limit <= 0 {
		limit = 15
	}
	if r.pool == nil {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, COALESCE(team_id, ''), first_name, last_name,
	COALESCE(position, ''), COALESCE(jersey_number, 0)
FROM players
WHERE team_id = $1 AND status = 'active'
ORDER BY last_name, first_name
LIMIT $2
`, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.TeamID, &p.FirstName, &p.LastName, &p.Position, &p.JerseyNumber); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster rows: %w", err)
	}

	return players, nil
}
