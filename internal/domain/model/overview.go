package model

import "time"

// OverviewSnapshot is the operational read model shown to billing operators.
// Day-scoped figures use the configured timezone's calendar day, and the
// 30-day figures use a rolling window ending now.
type OverviewSnapshot struct {
	GeneratedAt time.Time `json:"generated_at"`

	PendingAttempts    int64 `json:"pending_attempts"`
	ProcessingAttempts int64 `json:"processing_attempts"`
	PaidToday          int64 `json:"paid_today"`
	RejectedToday      int64 `json:"rejected_today"`
	OverdueCharges     int64 `json:"overdue_charges"`

	BatchesExportedToday int64 `json:"batches_exported_today"`
	RowsReconciledToday  int64 `json:"rows_reconciled_today"`

	FallbackPending     int64 `json:"fallback_pending"`
	FallbackExpiring24h int64 `json:"fallback_expiring_24h"`
	FallbackCreated30d  int64 `json:"fallback_created_30d"`
	PaidViaFallback30d  int64 `json:"paid_via_fallback_30d"`
	// RecoveryRate30d is the percentage of fallback intents created in the
	// last 30 days that ended paid, rounded to two decimals. Zero when no
	// intents were created.
	RecoveryRate30d float64 `json:"recovery_rate_30d"`

	PaidByChannel30d map[string]int64 `json:"paid_by_channel_30d"`

	JobsFailed24h              int64 `json:"jobs_failed_24h"`
	StaleProcessingAttempts    int64 `json:"stale_processing_attempts"`
	StalePendingAttempts       int64 `json:"stale_pending_attempts"`
	OpenReviewCases            int64 `json:"open_review_cases"`
	EscalatedCharges           int64 `json:"escalated_charges"`
	LateDuplicateDetections30d int64 `json:"late_duplicate_detections_30d"`

	RecentRuns []JobRun `json:"recent_runs"`
}
