package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samson623/sports-buddy/internal/domain/model"
)

// QALogRepo appends interaction records. The table is append-only: this
// subsystem never updates or deletes rows, the archiver only reads them.
type QALogRepo struct {
	pool *pgxpool.Pool
}

func NewQALogRepo(pool *pgxpool.Pool) *QALogRepo {
	return &QALogRepo{pool: pool}
}

func (r *QALogRepo) Insert(ctx context.Context, rec model.QALogRecord) error {
	if strings.TrimSpace(rec.Question) == "" {
		return fmt.Errorf("qa log question is required")
	}
	if r.pool == nil {
		return nil
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO qa_logs (user_id, question, answer, input_tokens, output_tokens, routed_to_db)
VALUES ($1, $2, $3, $4, $5, $6)
`, rec.UserID, rec.Question, rec.Answer, rec.InputTokens, rec.OutputTokens, rec.RoutedToDB); err != nil {
		return fmt.Errorf("insert qa log: %w", err)
	}

	return nil
}

// ListBetween returns records created in [from, to), oldest first, for the
// archival job.
func (r *QALogRepo) ListBetween(ctx context.Context, from, to time.Time, limit int) ([]model.QALogRecord, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("invalid archive range")
	}
	if limit <= 0 {
		limit = 10000
	}
	if r.pool == nil {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, question, COALESCE(answer, ''), input_tokens, output_tokens, routed_to_db, created_at
FROM qa_logs
WHERE created_at >= $1 AND created_at < $2
ORDER BY created_at ASC
LIMIT $3
`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("list qa logs: %w", err)
	}
	defer rows.Close()

	var records []model.QALogRecord
	for rows.Next() {
		var rec model.QALogRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Question, &rec.Answer, &rec.InputTokens, &rec.OutputTokens, &rec.RoutedToDB, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan qa log row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate qa log rows: %w", err)
	}

	return records, nil
}
