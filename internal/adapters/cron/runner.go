// Package cron provides the ticker loop that drives the scheduled billing
// pass.
package cron

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/cobrix/billing-jobs/internal/service"
)

// Ticker runs one scheduled billing pass. *service.CronTickService satisfies
// this; tests substitute stubs.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) (*service.TickReport, error)
}

// Runner fires the billing tick at a fixed interval until its context is
// cancelled. A failing tick is logged and the loop keeps going; per-run
// locks and the idempotent engines make the next tick safe regardless of
// how the previous one ended.
type Runner struct {
	tick     Ticker
	interval time.Duration
	logger   *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Tick     Ticker // Required
	Interval time.Duration
	Logger   *slog.Logger
}

// NewRunner creates a cron runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Tick == nil {
		return nil, errors.New("tick service is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		tick:     opts.Tick,
		interval: opts.Interval,
		logger:   logger.With("component", "cron_runner"),
	}, nil
}

// Run starts the tick loop and blocks until the context is cancelled.
// Context cancellation is the normal stop path and returns nil.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "cron runner started", "interval", r.interval.String())

	// Stagger startup so multiple instances do not tick in lockstep
	r.waitWithJitter(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// First pass right after the jitter instead of waiting a full interval
	if ctx.Err() == nil {
		r.runOnce(ctx, time.Now())
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "cron runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case now := <-ticker.C:
			r.runOnce(ctx, now)
		}
	}
}

// waitWithJitter sleeps a random duration up to 10% of the interval.
func (r *Runner) waitWithJitter(ctx context.Context) {
	maxJitter := int64(r.interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		r.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

func (r *Runner) runOnce(ctx context.Context, now time.Time) {
	report, err := r.tick.Tick(ctx, now)
	if err != nil {
		r.logger.ErrorContext(ctx, "cron tick finished with failures", "error", err)
		return
	}
	r.logReport(ctx, report)
}

func (r *Runner) logReport(ctx context.Context, report *service.TickReport) {
	if report == nil || !report.Enabled {
		return
	}
	r.logger.InfoContext(ctx, "cron tick completed",
		"target_date_ar", report.TargetDateAR,
		"run_anchor", resultStatus(report.RunAnchor),
		"prepare_batch", resultStatus(report.PrepareBatch),
		"export_batch", resultStatus(report.ExportBatch),
		"reconcile_batch", resultStatus(report.ReconcileBatch),
		"fallback_create", resultStatus(report.FallbackCreate),
		"fallback_status_sync", resultStatus(report.FallbackStatusSync),
	)
}

func resultStatus(result *service.JobResult) string {
	if result == nil {
		return "skipped"
	}
	return string(result.Status)
}
