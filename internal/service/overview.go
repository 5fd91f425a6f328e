package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cobrix/billing-jobs/internal/core"
	"github.com/cobrix/billing-jobs/internal/data"
	"github.com/cobrix/billing-jobs/internal/domain/billing"
	"github.com/cobrix/billing-jobs/internal/domain/model"
)

// OverviewConfig carries the window thresholds for the overview snapshot.
type OverviewConfig struct {
	StaleProcessingHours int
	StalePendingHours    int
	RecentRuns           int
}

// OverviewOptions groups dependencies for OverviewService.
type OverviewOptions struct {
	Store        core.OverviewStore // Required: aggregate read model
	Ledger       core.RunLedger     // Required: recent run history
	Calendar     *billing.Calendar
	Config       OverviewConfig
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
}

// OverviewService computes the point-in-time pipeline health snapshot. Every
// day-scoped figure uses the billing timezone's calendar day, never a naive
// UTC day or rolling 24 hours, so the numbers line up with what operators
// see on bank statements.
type OverviewService struct {
	store        core.OverviewStore
	ledger       core.RunLedger
	calendar     *billing.Calendar
	config       OverviewConfig
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// NewOverviewService constructs an OverviewService.
func NewOverviewService(opts OverviewOptions) (*OverviewService, error) {
	if opts.Store == nil {
		return nil, errors.New("OverviewStore is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("RunLedger is required")
	}
	if opts.Calendar == nil {
		opts.Calendar = billing.NewCalendar(nil, nil)
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.Config.StaleProcessingHours < 1 {
		opts.Config.StaleProcessingHours = 6
	}
	if opts.Config.StalePendingHours < 1 {
		opts.Config.StalePendingHours = 24
	}
	if opts.Config.RecentRuns < 1 {
		opts.Config.RecentRuns = 20
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "overview")
	}

	return &OverviewService{
		store:        opts.Store,
		ledger:       opts.Ledger,
		calendar:     opts.Calendar,
		config:       opts.Config,
		timeProvider: opts.TimeProvider,
		logger:       logger,
	}, nil
}

// Snapshot computes the overview. The store queries are independent reads,
// so they fan out concurrently; any store failure fails the whole snapshot
// rather than returning a half-filled one.
func (s *OverviewService) Snapshot(ctx context.Context) (*model.OverviewSnapshot, error) {
	windows, err := s.windows()
	if err != nil {
		return nil, err
	}

	var (
		attempts  *core.AttemptStats
		charges   *core.ChargeStats
		batches   *core.BatchStats
		fallback  *core.FallbackStats
		review    *core.ReviewStats
		byChannel map[string]int64
		failed24h int64
		recent    []model.JobRun
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		attempts, err = s.store.AttemptStats(gctx, windows)
		return err
	})
	g.Go(func() (err error) {
		charges, err = s.store.ChargeStats(gctx, windows)
		return err
	})
	g.Go(func() (err error) {
		batches, err = s.store.BatchStats(gctx, windows)
		return err
	})
	g.Go(func() (err error) {
		fallback, err = s.store.FallbackStats(gctx, windows)
		return err
	})
	g.Go(func() (err error) {
		review, err = s.store.ReviewStats(gctx, windows)
		return err
	})
	g.Go(func() (err error) {
		byChannel, err = s.store.PaidByChannel(gctx, windows.Last30dStart, windows.Now)
		return err
	})
	g.Go(func() (err error) {
		failed24h, err = s.store.JobsFailedSince(gctx, windows.Last24hStart)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.ledger.ListRecent(gctx, s.config.RecentRuns)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("overview snapshot: %w", err)
	}

	snapshot := &model.OverviewSnapshot{
		GeneratedAt: windows.Now,

		PendingAttempts:    attempts.Pending,
		ProcessingAttempts: attempts.Processing,
		PaidToday:          charges.PaidToday,
		RejectedToday:      charges.RejectedToday,
		OverdueCharges:     charges.Overdue,

		BatchesExportedToday: batches.ExportedToday,
		RowsReconciledToday:  batches.RowsReconciledToday,

		FallbackPending:     fallback.Pending,
		FallbackExpiring24h: fallback.Expiring24h,
		FallbackCreated30d:  fallback.Created30d,
		PaidViaFallback30d:  fallback.PaidViaFallback30d,
		RecoveryRate30d:     recoveryRate(fallback.PaidViaFallback30d, fallback.Created30d),

		PaidByChannel30d: byChannel,

		JobsFailed24h:              failed24h,
		StaleProcessingAttempts:    attempts.StaleProcessing,
		StalePendingAttempts:       attempts.StalePending,
		OpenReviewCases:            review.OpenCases,
		EscalatedCharges:           charges.Escalated,
		LateDuplicateDetections30d: review.LateDuplicates30d,

		RecentRuns: recent,
	}
	return snapshot, nil
}

// windows derives every boundary the stores need from one reading of the
// clock, keeping the snapshot internally consistent.
func (s *OverviewService) windows() (core.OverviewWindows, error) {
	now := s.timeProvider.Now()
	today := s.calendar.LocalDate(now)
	dayStart, dayEnd, err := s.calendar.DayBounds(today)
	if err != nil {
		return core.OverviewWindows{}, err
	}

	return core.OverviewWindows{
		Now:                    now,
		Today:                  today,
		DayStart:               dayStart,
		DayEnd:                 dayEnd,
		Last24hStart:           now.Add(-24 * time.Hour),
		Last30dStart:           now.AddDate(0, 0, -30),
		ProcessingStaleBefore:  now.Add(-time.Duration(s.config.StaleProcessingHours) * time.Hour),
		PendingStaleBefore:     now.Add(-time.Duration(s.config.StalePendingHours) * time.Hour),
		FallbackExpiryDeadline: now.Add(24 * time.Hour),
	}, nil
}

// recoveryRate is the percentage of fallback intents created in the window
// that ended paid, rounded to two decimals. Zero when nothing was created.
func recoveryRate(paid, created int64) float64 {
	if created == 0 {
		return 0
	}
	return math.Round(100*float64(paid)/float64(created)*100) / 100
}

// Gauges flattens a snapshot into named gauge values for metric export.
func Gauges(snap *model.OverviewSnapshot) map[string]float64 {
	if snap == nil {
		return nil
	}
	gauges := map[string]float64{
		"pending_attempts":          float64(snap.PendingAttempts),
		"processing_attempts":       float64(snap.ProcessingAttempts),
		"paid_today":                float64(snap.PaidToday),
		"rejected_today":            float64(snap.RejectedToday),
		"overdue_charges":           float64(snap.OverdueCharges),
		"batches_exported_today":    float64(snap.BatchesExportedToday),
		"rows_reconciled_today":     float64(snap.RowsReconciledToday),
		"fallback_pending":          float64(snap.FallbackPending),
		"fallback_expiring_24h":     float64(snap.FallbackExpiring24h),
		"recovery_rate_30d":         snap.RecoveryRate30d,
		"jobs_failed_24h":           float64(snap.JobsFailed24h),
		"stale_processing_attempts": float64(snap.StaleProcessingAttempts),
		"stale_pending_attempts":    float64(snap.StalePendingAttempts),
		"open_review_cases":         float64(snap.OpenReviewCases),
		"escalated_charges":         float64(snap.EscalatedCharges),
	}
	for channel, count := range snap.PaidByChannel30d {
		gauges["paid_30d."+channel] = float64(count)
	}
	return gauges
}
