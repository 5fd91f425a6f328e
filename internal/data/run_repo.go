package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cobrix/billing-jobs/internal/domain/model"
	apperrors "github.com/cobrix/billing-jobs/internal/errors"
)

// ErrRunNotFound is returned when a job run is not found.
var ErrRunNotFound = errors.New("job run not found")

// RunRepoConfig holds configuration options for the run ledger repository.
type RunRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// RunRepo is the Postgres-backed run ledger. Every job execution leaves one
// row here; a row transitions RUNNING to a terminal status exactly once.
type RunRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewRunRepo creates a new RunRepo with the given database connection and configuration.
func NewRunRepo(db *sql.DB, cfg RunRepoConfig) *RunRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &RunRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const runColumns = `
  id,
  job_name,
  source,
  status,
  started_at,
  finished_at,
  duration_ms,
  target_date_ar,
  adapter,
  counters,
  error_message,
  error_stack,
  metadata,
  created_at
`

// Start inserts a RUNNING run and returns it.
func (r *RunRepo) Start(ctx context.Context, params model.StartRunParams) (*model.JobRun, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	meta, err := marshalJSONMap(params.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal run metadata: %w", err)
	}

	id := uuid.NewString()
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO job_runs (id, job_name, source, status, started_at, target_date_ar, adapter, counters, metadata)
		VALUES ($1, $2, $3, 'RUNNING', $4, $5, $6, '{}'::jsonb, $7)
		RETURNING `+runColumns,
		id,
		params.JobName,
		params.Source,
		params.StartedAt.UTC(),
		params.TargetDateAR,
		params.Adapter,
		meta,
	)

	run, scanErr := scanRunFromRow(row)
	if scanErr != nil {
		return nil, fmt.Errorf("insert job run: %w", apperrors.MapDBError(scanErr))
	}
	return run, nil
}

// Finish applies the terminal state to a RUNNING run. The WHERE guard makes
// the RUNNING to terminal transition happen at most once; a second finish
// returns model.ErrRunFinalized without touching the row.
func (r *RunRepo) Finish(ctx context.Context, params model.FinishRunParams) (*model.JobRun, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	counters, err := marshalCounters(params.Counters)
	if err != nil {
		return nil, fmt.Errorf("marshal run counters: %w", err)
	}
	meta, err := marshalJSONMap(params.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal run metadata: %w", err)
	}

	row := r.DB.QueryRowContext(ctx, `
		UPDATE job_runs
		SET status = $2,
		    finished_at = $3,
		    duration_ms = $4,
		    counters = $5,
		    error_message = $6,
		    error_stack = $7,
		    metadata = COALESCE($8, metadata)
		WHERE id = $1 AND status = 'RUNNING'
		RETURNING `+runColumns,
		params.RunID,
		params.Status,
		params.FinishedAt.UTC(),
		params.DurationMS,
		counters,
		params.ErrorMessage,
		params.ErrorStack,
		meta,
	)

	run, scanErr := scanRunFromRow(row)
	if scanErr == nil {
		return run, nil
	}
	if !errors.Is(scanErr, sql.ErrNoRows) {
		return nil, fmt.Errorf("finish job run: %w", apperrors.MapDBError(scanErr))
	}

	// No RUNNING row matched: either the run is unknown or already terminal.
	var status model.RunStatus
	checkErr := r.DB.QueryRowContext(ctx, `SELECT status FROM job_runs WHERE id = $1`, params.RunID).Scan(&status)
	if errors.Is(checkErr, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if checkErr != nil {
		return nil, fmt.Errorf("check job run status: %w", checkErr)
	}
	if r.logger != nil {
		r.logger.WarnContext(ctx, "finish on finalized run ignored",
			"run_id", params.RunID,
			"existing_status", status,
			"requested_status", params.Status,
		)
	}
	return nil, model.ErrRunFinalized
}

// ListRecent returns the most recently started runs, newest first.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]model.JobRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM job_runs
		ORDER BY started_at DESC, created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	defer rows.Close()

	var runs []model.JobRun
	for rows.Next() {
		run, scanErr := scanRunFromRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan run row: %w", scanErr)
		}
		runs = append(runs, *run)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate run rows: %w", rowsErr)
	}
	return runs, nil
}

type runRowScanner interface {
	Scan(dest ...any) error
}

type runRowData struct {
	counters, metadata                        []byte
	targetDate, adapter, errMessage, errStack sql.NullString
	finishedAt                                sql.NullTime
	durationMS                                sql.NullInt64
}

func (d *runRowData) scanInto(scanner runRowScanner, run *model.JobRun) error {
	return scanner.Scan(
		&run.ID,
		&run.JobName,
		&run.Source,
		&run.Status,
		&run.StartedAt,
		&d.finishedAt,
		&d.durationMS,
		&d.targetDate,
		&d.adapter,
		&d.counters,
		&d.errMessage,
		&d.errStack,
		&d.metadata,
		&run.CreatedAt,
	)
}

func (d *runRowData) apply(run *model.JobRun) error {
	run.TargetDateAR = cloneNullableString(d.targetDate)
	run.Adapter = cloneNullableString(d.adapter)
	run.ErrorMessage = cloneNullableString(d.errMessage)
	run.ErrorStack = cloneNullableString(d.errStack)
	run.FinishedAt = cloneNullableTime(d.finishedAt)
	run.DurationMS = cloneNullableInt64(d.durationMS)

	if len(d.counters) > 0 {
		if err := json.Unmarshal(d.counters, &run.Counters); err != nil {
			return fmt.Errorf("decode run counters: %w", err)
		}
	}
	if len(d.metadata) > 0 {
		if err := json.Unmarshal(d.metadata, &run.Metadata); err != nil {
			return fmt.Errorf("decode run metadata: %w", err)
		}
	}
	return nil
}

func scanRunFromRow(scanner runRowScanner) (*model.JobRun, error) {
	run := &model.JobRun{}
	var data runRowData
	if err := data.scanInto(scanner, run); err != nil {
		return nil, err
	}
	if err := data.apply(run); err != nil {
		return nil, err
	}
	return run, nil
}

// marshalCounters encodes counters to JSONB, defaulting to an empty object so
// the column stays NOT NULL.
func marshalCounters(c model.Counters) ([]byte, error) {
	if c == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(c)
}

// marshalJSONMap encodes metadata to JSONB, keeping nil as SQL NULL so
// COALESCE can preserve an earlier value.
func marshalJSONMap(m model.Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func cloneNullableInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
