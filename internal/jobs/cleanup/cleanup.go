package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samson623/sports-buddy/internal/domain/model"
)

const archiveBatchLimit = 10000

type logLister interface {
	ListBetween(ctx context.Context, from, to time.Time, limit int) ([]model.QALogRecord, error)
}

type archiveStore interface {
	EnsureBucket(ctx context.Context) error
	PutArchive(ctx context.Context, key string, body io.Reader, size int64) error
}

type rateSweeper interface {
	Sweep(now time.Time, window time.Duration) int
}

// Job evicts fully-expired rate-limiter keys and archives the previous
// UTC day's interaction log to object storage as JSONL.
type Job struct {
	logs       logLister
	storage    archiveStore
	sweeper    rateSweeper
	rateWindow time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func New() *Job {
	return &Job{
		rateWindow: time.Minute,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
}

func NewQALogArchiveJob(
	logs logLister,
	storage archiveStore,
	sweeper rateSweeper,
	rateWindow time.Duration,
	logger *zap.Logger,
) *Job {
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		logs:       logs,
		storage:    storage,
		sweeper:    sweeper,
		rateWindow: rateWindow,
		now:        time.Now,
		logger:     logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	now := j.now()

	if j.sweeper != nil {
		if evicted := j.sweeper.Sweep(now, j.rateWindow); evicted > 0 {
			j.logger.Debug("rate limiter keys evicted", zap.Int("evicted", evicted))
		}
	}

	// Without a log store or archive bucket the job degrades to the
	// in-memory sweep alone.
	if j.logs == nil || j.storage == nil {
		return nil
	}

	dayEnd := now.UTC().Truncate(24 * time.Hour)
	dayStart := dayEnd.Add(-24 * time.Hour)

	records, err := j.logs.ListBetween(ctx, dayStart, dayEnd, archiveBatchLimit)
	if err != nil {
		return fmt.Errorf("list interaction logs: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	body, err := encodeJSONL(records)
	if err != nil {
		return fmt.Errorf("encode interaction log archive: %w", err)
	}

	if err := j.storage.EnsureBucket(ctx); err != nil {
		return err
	}

	key := fmt.Sprintf("qa-logs/%s-%s.jsonl", dayStart.Format("2006-01-02"), uuid.NewString())
	if err := j.storage.PutArchive(ctx, key, bytes.NewReader(body), int64(len(body))); err != nil {
		return err
	}

	j.logger.Info("interaction log archive written",
		zap.String("object_key", key),
		zap.Int("records", len(records)),
	)
	return nil
}

func encodeJSONL(records []model.QALogRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
