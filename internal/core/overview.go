package core

import (
	"context"
	"time"
)

// OverviewWindows carries the time boundaries the aggregator computed for one
// snapshot. All instants are absolute; the store applies them verbatim so the
// local-calendar-day semantics live in one place.
type OverviewWindows struct {
	Now time.Time
	// Today is the local calendar date (YYYY-MM-DD) the day window covers.
	Today                  string
	DayStart               time.Time
	DayEnd                 time.Time
	Last24hStart           time.Time
	Last30dStart           time.Time
	ProcessingStaleBefore  time.Time
	PendingStaleBefore     time.Time
	FallbackExpiryDeadline time.Time
}

// AttemptStats holds gauge counts over debit attempts.
type AttemptStats struct {
	Pending         int64 `json:"pending"`
	Processing      int64 `json:"processing"`
	StaleProcessing int64 `json:"stale_processing"`
	StalePending    int64 `json:"stale_pending"`
}

// ChargeStats holds charge outcomes for the current local day plus standing gauges.
type ChargeStats struct {
	PaidToday     int64 `json:"paid_today"`
	RejectedToday int64 `json:"rejected_today"`
	Overdue       int64 `json:"overdue"`
	Escalated     int64 `json:"escalated"`
}

// BatchStats holds presentment batch throughput for the current local day.
type BatchStats struct {
	ExportedToday       int64 `json:"exported_today"`
	RowsReconciledToday int64 `json:"rows_reconciled_today"`
}

// FallbackStats holds fallback channel gauges and 30-day recovery inputs.
type FallbackStats struct {
	Pending            int64 `json:"pending"`
	Expiring24h        int64 `json:"expiring_24h"`
	Created30d         int64 `json:"created_30d"`
	PaidViaFallback30d int64 `json:"paid_via_fallback_30d"`
}

// ReviewStats holds manual review pressure indicators.
type ReviewStats struct {
	OpenCases         int64 `json:"open_cases"`
	LateDuplicates30d int64 `json:"late_duplicates_30d"`
}

// OverviewStore answers the aggregate queries behind the operator overview.
// Each method maps to one read-only statement against the billing schema.
type OverviewStore interface {
	AttemptStats(ctx context.Context, w OverviewWindows) (*AttemptStats, error)
	ChargeStats(ctx context.Context, w OverviewWindows) (*ChargeStats, error)
	BatchStats(ctx context.Context, w OverviewWindows) (*BatchStats, error)
	FallbackStats(ctx context.Context, w OverviewWindows) (*FallbackStats, error)
	// PaidByChannel returns settled charge counts keyed by collection channel
	// for the given window.
	PaidByChannel(ctx context.Context, from, to time.Time) (map[string]int64, error)
	ReviewStats(ctx context.Context, w OverviewWindows) (*ReviewStats, error)
	// JobsFailedSince counts FAILED job runs that started after since.
	JobsFailedSince(ctx context.Context, since time.Time) (int64, error)
}
