package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

const runsSchema = `
CREATE TABLE IF NOT EXISTS monitoring_runs (
	run_id          TEXT PRIMARY KEY,
	status          TEXT NOT NULL,
	total           INTEGER NOT NULL DEFAULT 0,
	ok              INTEGER NOT NULL DEFAULT 0,
	no_availability INTEGER NOT NULL DEFAULT 0,
	errors          INTEGER NOT NULL DEFAULT 0,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ,
	report_path     TEXT NOT NULL DEFAULT '',
	errors_sample   JSONB NOT NULL DEFAULT '[]'::jsonb
);
`

const upsertRunSQL = `
INSERT INTO monitoring_runs (
	run_id, status, total, ok, no_availability, errors,
	started_at, finished_at, report_path, errors_sample
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (run_id) DO UPDATE SET
	status = EXCLUDED.status,
	total = EXCLUDED.total,
	ok = EXCLUDED.ok,
	no_availability = EXCLUDED.no_availability,
	errors = EXCLUDED.errors,
	finished_at = EXCLUDED.finished_at,
	report_path = EXCLUDED.report_path,
	errors_sample = EXCLUDED.errors_sample`

const selectRunColumns = `
SELECT run_id, status, total, ok, no_availability, errors,
	started_at, finished_at, report_path, errors_sample
FROM monitoring_runs`

// PostgresRunRepository manages run lifecycle rows.
type PostgresRunRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRunRepository(pool *pgxpool.Pool) *PostgresRunRepository {
	return &PostgresRunRepository{pool: pool}
}

// EnsureSchema creates the runs table when missing.
func (r *PostgresRunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, runsSchema); err != nil {
		return fmt.Errorf("ensure runs schema: %w", err)
	}
	return nil
}

func (r *PostgresRunRepository) CreateRun(ctx context.Context, run model.RunSummary) error {
	if err := r.upsert(ctx, run); err != nil {
		return fmt.Errorf("create run %s: %w", run.RunID, err)
	}
	return nil
}

func (r *PostgresRunRepository) UpdateRun(ctx context.Context, run model.RunSummary) error {
	if err := r.upsert(ctx, run); err != nil {
		return fmt.Errorf("update run %s: %w", run.RunID, err)
	}
	return nil
}

func (r *PostgresRunRepository) upsert(ctx context.Context, run model.RunSummary) error {
	if run.RunID == "" {
		return errors.New("runId is required")
	}
	samples := run.ErrorSample
	if samples == nil {
		samples = []model.ErrorSample{}
	}
	encoded, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("encode error sample: %w", err)
	}
	var finishedAt *time.Time
	if !run.FinishedAt.IsZero() {
		finishedAt = &run.FinishedAt
	}
	_, err = r.pool.Exec(ctx, upsertRunSQL,
		run.RunID, run.Status,
		run.Stats.Total, run.Stats.OK, run.Stats.NoAvailability, run.Stats.Errors,
		run.StartedAt, finishedAt, run.ReportPath, string(encoded),
	)
	return err
}

func (r *PostgresRunRepository) GetRun(ctx context.Context, runID string) (model.RunSummary, error) {
	row := r.pool.QueryRow(ctx, selectRunColumns+` WHERE run_id = $1`, runID)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RunSummary{}, ErrRunNotFound
	}
	if err != nil {
		return model.RunSummary{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (r *PostgresRunRepository) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	rows, err := r.pool.Query(ctx, selectRunColumns+` ORDER BY started_at DESC LIMIT $1`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (model.RunSummary, error) {
	var (
		run        model.RunSummary
		finishedAt *time.Time
		samples    []byte
	)
	if err := row.Scan(
		&run.RunID, &run.Status,
		&run.Stats.Total, &run.Stats.OK, &run.Stats.NoAvailability, &run.Stats.Errors,
		&run.StartedAt, &finishedAt, &run.ReportPath, &samples,
	); err != nil {
		return model.RunSummary{}, err
	}
	if finishedAt != nil {
		run.FinishedAt = finishedAt.UTC()
	}
	run.StartedAt = run.StartedAt.UTC()
	if len(samples) > 0 {
		if err := json.Unmarshal(samples, &run.ErrorSample); err != nil {
			return model.RunSummary{}, fmt.Errorf("decode error sample: %w", err)
		}
	}
	return run, nil
}
