package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cobrix/billing-jobs/internal/core"
	apperrors "github.com/cobrix/billing-jobs/internal/errors"
)

// OverviewRepo answers the aggregate queries behind the operator overview.
// It reads the billing schema maintained by the engines (debit_attempts,
// charges, presentment_batches, reconciliation_rows, fallback_intents,
// review_cases) plus this layer's own job_runs table. All queries are
// read-only single statements.
type OverviewRepo struct {
	DB *sql.DB
}

// NewOverviewRepo creates a new OverviewRepo with the given database connection.
func NewOverviewRepo(db *sql.DB) *OverviewRepo {
	return &OverviewRepo{DB: db}
}

// AttemptStats returns gauge counts over debit attempts, including the
// staleness detectors for attempts stuck past their SLA.
func (r *OverviewRepo) AttemptStats(ctx context.Context, w core.OverviewWindows) (*core.AttemptStats, error) {
	var s core.AttemptStats
	err := r.DB.QueryRowContext(ctx, `
	  SELECT
	    count(*) FILTER (WHERE status = 'pending')    AS pending,
	    count(*) FILTER (WHERE status = 'processing') AS processing,
	    count(*) FILTER (WHERE status = 'processing' AND updated_at < $1) AS stale_processing,
	    count(*) FILTER (WHERE status = 'pending'    AND created_at < $2) AS stale_pending
	  FROM debit_attempts
	  WHERE status IN ('pending', 'processing')
	`, w.ProcessingStaleBefore.UTC(), w.PendingStaleBefore.UTC()).Scan(
		&s.Pending,
		&s.Processing,
		&s.StaleProcessing,
		&s.StalePending,
	)
	if err != nil {
		return nil, fmt.Errorf("attempt stats: %w", apperrors.MapDBError(err))
	}
	return &s, nil
}

// ChargeStats returns today's charge outcomes plus the overdue and escalated gauges.
func (r *OverviewRepo) ChargeStats(ctx context.Context, w core.OverviewWindows) (*core.ChargeStats, error) {
	var s core.ChargeStats
	err := r.DB.QueryRowContext(ctx, `
	  SELECT
	    count(*) FILTER (WHERE paid_at >= $1 AND paid_at < $2)         AS paid_today,
	    count(*) FILTER (WHERE rejected_at >= $1 AND rejected_at < $2) AS rejected_today,
	    count(*) FILTER (WHERE status NOT IN ('paid', 'canceled') AND due_date < $3::date) AS overdue,
	    count(*) FILTER (WHERE status = 'escalated')                   AS escalated
	  FROM charges
	`, w.DayStart.UTC(), w.DayEnd.UTC(), w.Today).Scan(
		&s.PaidToday,
		&s.RejectedToday,
		&s.Overdue,
		&s.Escalated,
	)
	if err != nil {
		return nil, fmt.Errorf("charge stats: %w", apperrors.MapDBError(err))
	}
	return &s, nil
}

// BatchStats returns today's presentment batch throughput.
func (r *OverviewRepo) BatchStats(ctx context.Context, w core.OverviewWindows) (*core.BatchStats, error) {
	var s core.BatchStats
	err := r.DB.QueryRowContext(ctx, `
	  SELECT
	    (SELECT count(*) FROM presentment_batches
	      WHERE exported_at >= $1 AND exported_at < $2) AS exported_today,
	    (SELECT count(*) FROM reconciliation_rows
	      WHERE applied_at >= $1 AND applied_at < $2)   AS rows_reconciled_today
	`, w.DayStart.UTC(), w.DayEnd.UTC()).Scan(
		&s.ExportedToday,
		&s.RowsReconciledToday,
	)
	if err != nil {
		return nil, fmt.Errorf("batch stats: %w", apperrors.MapDBError(err))
	}
	return &s, nil
}

// FallbackStats returns fallback channel gauges and the 30-day recovery inputs.
func (r *OverviewRepo) FallbackStats(ctx context.Context, w core.OverviewWindows) (*core.FallbackStats, error) {
	var s core.FallbackStats
	err := r.DB.QueryRowContext(ctx, `
	  SELECT
	    count(*) FILTER (WHERE status = 'pending') AS pending,
	    count(*) FILTER (WHERE status = 'pending' AND expires_at > $1 AND expires_at <= $2) AS expiring,
	    count(*) FILTER (WHERE created_at >= $3)   AS created_30d,
	    count(*) FILTER (WHERE status = 'paid' AND paid_at >= $3) AS paid_30d
	  FROM fallback_intents
	`, w.Now.UTC(), w.FallbackExpiryDeadline.UTC(), w.Last30dStart.UTC()).Scan(
		&s.Pending,
		&s.Expiring24h,
		&s.Created30d,
		&s.PaidViaFallback30d,
	)
	if err != nil {
		return nil, fmt.Errorf("fallback stats: %w", apperrors.MapDBError(err))
	}
	return &s, nil
}

// PaidByChannel returns settled charge counts per collection channel. Direct
// debit settlements count under 'debit'; fallback settlements count under
// their lowercased provider.
func (r *OverviewRepo) PaidByChannel(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `
	  SELECT channel, count(*)
	  FROM (
	    SELECT 'debit'::text AS channel, paid_at
	    FROM debit_attempts
	    WHERE status = 'paid'
	    UNION ALL
	    SELECT lower(provider) AS channel, paid_at
	    FROM fallback_intents
	    WHERE status = 'paid'
	  ) settled
	  WHERE paid_at >= $1 AND paid_at < $2
	  GROUP BY channel
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("paid by channel: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	byChannel := make(map[string]int64)
	for rows.Next() {
		var channel string
		var count int64
		if scanErr := rows.Scan(&channel, &count); scanErr != nil {
			return nil, fmt.Errorf("scan channel row: %w", scanErr)
		}
		byChannel[channel] = count
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate channel rows: %w", rowsErr)
	}
	return byChannel, nil
}

// ReviewStats returns manual review pressure indicators.
func (r *OverviewRepo) ReviewStats(ctx context.Context, w core.OverviewWindows) (*core.ReviewStats, error) {
	var s core.ReviewStats
	err := r.DB.QueryRowContext(ctx, `
	  SELECT
	    count(*) FILTER (WHERE status = 'open') AS open_cases,
	    count(*) FILTER (WHERE case_type = 'late_duplicate' AND opened_at >= $1) AS late_duplicates
	  FROM review_cases
	`, w.Last30dStart.UTC()).Scan(
		&s.OpenCases,
		&s.LateDuplicates30d,
	)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", apperrors.MapDBError(err))
	}
	return &s, nil
}

// JobsFailedSince counts FAILED job runs that started after since.
func (r *OverviewRepo) JobsFailedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.DB.QueryRowContext(ctx, `
	  SELECT count(*)
	  FROM job_runs
	  WHERE status = 'FAILED' AND started_at >= $1
	`, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("jobs failed since: %w", apperrors.MapDBError(err))
	}
	return count, nil
}
