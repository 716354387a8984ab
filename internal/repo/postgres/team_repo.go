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

type TeamRepo struct {
	pool *pgxpool.Pool
}

func NewTeamRepo(pool *pgxpool.Pool) *TeamRepo {
	return &TeamRepo{pool: pool}
}

// FindByName returns the first team whose full name contains the given
// text, case-insensitively. Store order decides ties.
func (r *TeamRepo) FindByName(ctx context.Context, name string) (*model.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("team name is required")
	}
	if r.pool == nil {
		return nil, nil
	}

	row := r.pool.QueryRow(ctx, `
SELECT id, sport, abbreviation, full_name,
	COALESCE(city, ''), COALESCE(conference, ''), COALESCE(division, '')
FROM teams
WHERE full_name ILIKE '%' || $1 || '%'
ORDER BY full_name
LIMIT 1
`, name)

	return scanTeam(row)
}

// FindByAbbreviation matches the team abbreviation case-insensitively.
func (r *TeamRepo) FindByAbbreviation(ctx context.Context, abbrev string) (*model.Team, error) {
	abbrev = strings.TrimSpace(abbrev)
	if abbrev == "" {
		return nil, fmt.Errorf("team abbreviation is required")
	}
	if r.pool == nil {
		return nil, nil
	}

	row := r.pool.QueryRow(ctx, `
SELECT id, sport, abbreviation, full_name,
	COALESCE(city, ''), COALESCE(conference, ''), COALESCE(division, '')
FROM teams
WHERE abbreviation ILIKE $1
ORDER BY abbreviation
LIMIT 1
`, abbrev)

	return scanTeam(row)
}

func (r *TeamRepo) GetByID(ctx context.Context, teamID string) (*model.Team, error) {
	if teamID == "" {
		return nil, fmt.Errorf("team id is required")
	}
	if r.pool == nil {
		return nil, nil
	}

	row := r.pool.QueryRow(ctx, `
SELECT id, sport, abbreviation, full_name,
	COALESCE(city, ''), COALESCE(conference, ''), COALESCE(division, '')
FROM teams
WHERE id = $1
`, teamID)

	return scanTeam(row)
}

func scanTeam(row pgx.Row) (*model.Team, error) {
	var t model.Team
	err := row.Scan(&t.ID, &t.Sport, &t.Abbreviation, &t.FullName, &t.City, &t.Conference, &t.Division)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find team: %w", err)
	}
	return &t, nil
}
