// Package overview provides the periodic publisher that exports pipeline
// health snapshots to logs and metrics.
package overview

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cobrix/billing-jobs/internal/domain/model"
	"github.com/cobrix/billing-jobs/internal/observability/metrics"
	"github.com/cobrix/billing-jobs/internal/observability/statsd"
	"github.com/cobrix/billing-jobs/internal/service"
)

// Snapshotter computes the pipeline health snapshot. *service.OverviewService
// satisfies this; tests substitute stubs.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*model.OverviewSnapshot, error)
}

// Publisher periodically takes an overview snapshot and publishes it as a
// structured log line plus a gauge set. A failed snapshot is logged and the
// loop keeps going; the next interval gets a fresh read.
type Publisher struct {
	snapshots Snapshotter
	interval  time.Duration
	logger    *slog.Logger
	metrics   statsd.Sink
}

// PublisherOptions holds the dependencies for creating a Publisher.
type PublisherOptions struct {
	Snapshots Snapshotter // Required
	Interval  time.Duration
	Logger    *slog.Logger
	Metrics   statsd.Sink
}

// NewPublisher creates an overview publisher with the given options.
func NewPublisher(opts PublisherOptions) (*Publisher, error) {
	if opts.Snapshots == nil {
		return nil, errors.New("overview service is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		snapshots: opts.Snapshots,
		interval:  opts.Interval,
		logger:    logger.With("component", "overview_publisher"),
		metrics:   opts.Metrics,
	}, nil
}

// Run publishes snapshots until the context is cancelled. The first snapshot
// fires immediately so a fresh deploy reports health without waiting out a
// full interval.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "overview publisher started", "interval", p.interval.String())

	p.publish(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "overview publisher stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			p.publish(ctx)
		}
	}
}

func (p *Publisher) publish(ctx context.Context) {
	snap, err := p.snapshots.Snapshot(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "overview snapshot failed", "error", err)
		return
	}

	metrics.EmitOverviewGauges(p.metrics, service.Gauges(snap))

	p.logger.InfoContext(ctx, "overview snapshot",
		"pending_attempts", snap.PendingAttempts,
		"processing_attempts", snap.ProcessingAttempts,
		"paid_today", snap.PaidToday,
		"rejected_today", snap.RejectedToday,
		"overdue_charges", snap.OverdueCharges,
		"batches_exported_today", snap.BatchesExportedToday,
		"fallback_pending", snap.FallbackPending,
		"recovery_rate_30d", snap.RecoveryRate30d,
		"jobs_failed_24h", snap.JobsFailed24h,
		"stale_processing_attempts", snap.StaleProcessingAttempts,
	)
}
