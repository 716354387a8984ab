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

type AnalysisRepo struct {
	pool *pgxpool.Pool
}

func NewAnalysisRepo(pool *pgxpool.Pool) *AnalysisRepo {
	return &AnalysisRepo{pool: pool}
}

func (r *AnalysisRepo) GetByGame(ctx context.Context, gameID string) (*model.AnalysisRecord, error) {
	if strings.TrimSpace(gameID) == "" {
		return nil, fmt.Errorf("game id is required")
	}
	if r.pool == nil {
		return nil, nil
	}

	var rec model.AnalysisRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, COALESCE(game_id, ''), content, COALESCE(token_count, 0), generated_at
FROM ai_analyses
WHERE game_id = $1
ORDER BY generated_at DESC
LIMIT 1
`, gameID).Scan(&rec.ID, &rec.GameID, &rec.Content, &rec.TokenCount, &rec.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached analysis: %w", err)
	}

	return &rec, nil
}

func (r *AnalysisRepo) Insert(ctx context.Context, gameID, content string, tokenCount int) error {
	if strings.TrimSpace(gameID) == "" || strings.TrimSpace(content) == "" {
		return fmt.Errorf("invalid analysis payload")
	}
	if r.pool == nil {
		return nil
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO ai_analyses (game_id, content, token_count)
VALUES ($1, $2, $3)
`, gameID, content, tokenCount); err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	return nil
}
