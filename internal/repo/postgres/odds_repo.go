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

type OddsRepo struct {
	pool *pgxpool.Pool
}

func NewOddsRepo(pool *pgxpool.Pool) *OddsRepo {
	return &OddsRepo{pool: pool}
}

// Latest returns the most recently retrieved odds row for a game, or nil
// when no bookmaker line has been captured yet.
func (r *OddsRepo) Latest(ctx context.Context, gameID string) (*model.Odds, error) {
	if strings.TrimSpace(gameID) == "" {
		return nil, fmt.Errorf("game id is required")
	}
	if r.pool == nil {
		return nil, nil
	}

	var o model.Odds
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(game_id, ''), bookmaker, COALESCE(spread, 0),
	COALESCE(moneyline_home, 0), COALESCE(moneyline_away, 0),
	COALESCE(total, 0), retrieved_at
FROM odds
WHERE game_id = $1
ORDER BY retrieved_at DESC
LIMIT 1
`, gameID).Scan(&o.GameID, &o.Bookmaker, &o.Spread, &o.MoneylineHome, &o.MoneylineAway, &o.Total, &o.RetrievedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find latest odds: %w", err)
	}

	return &o, nil
}
