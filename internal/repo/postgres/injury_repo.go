package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samson623/sports-buddy/internal/domain/model"
)

type InjuryRepo struct {
	pool *pgxpool.Pool
}

func NewInjuryRepo(pool *pgxpool.Pool) *InjuryRepo {
	return &InjuryRepo{pool: pool}
}

// ListByTeam returns current injury designations for a team's players,
// most recently reported first.
func (r *InjuryRepo) ListByTeam(ctx context.Context, teamID string, limit int) ([]model.Injury, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, fmt.Errorf("team id is required")
	}
	if limit <= 0 {
		limit = 10
	}
	if r.pool == nil {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT i.player_id, COALESCE(i.game_id, ''),
	p.first_name || ' ' || p.last_name,
	COALESCE(i.injury_status, ''), COALESCE(i.body_part, ''),
	COALESCE(i.description, ''), i.reported_at
FROM injuries i
JOIN players p ON p.id = i.player_id
WHERE p.team_id = $1
	AND i.injury_status IN ('out', 'doubtful', 'questionable')
ORDER BY i.reported_at DESC
LIMIT $2
`, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("list team injuries: %w", err)
	}
	defer rows.Close()

	return collectInjuries(rows)
}

// ListByGame returns injury designations attached to a game, for fallback
// context assembly.
func (r *InjuryRepo) ListByGame(ctx context.Context, gameID string, limit int) ([]model.Injury, error) {
	if strings.TrimSpace(gameID) == "" {
		return nil, fmt.Errorf("game id is required")
	}
	if limit <= 0 {
		limit = 10
	}
	if r.pool == nil {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT i.player_id, COALESCE(i.game_id, ''),
	p.first_name || ' ' || p.last_name,
	COALESCE(i.injury_status, ''), COALESCE(i.body_part, ''),
	COALESCE(i.description, ''), i.reported_at
FROM injuries i
JOIN players p ON p.id = i.player_id
WHERE i.game_id = $1
ORDER BY i.reported_at DESC
LIMIT $2
`, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("list game injuries: %w", err)
	}
	defer rows.Close()

	return collectInjuries(rows)
}

func collectInjuries(rows pgx.Rows) ([]model.Injury, error) {
	var injuries []model.Injury
	for rows.Next() {
		var inj model.Injury
		if err := rows.Scan(&inj.PlayerID, &inj.GameID, &inj.PlayerName, &inj.Status, &inj.BodyPart, &inj.Description, &inj.ReportedAt); err != nil {
			return nil, fmt.Errorf("scan injury row: %w", err)
		}
		injuries = append(injuries, inj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate injury rows: %w", err)
	}
	return injuries, nil
}
