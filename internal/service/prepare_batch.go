package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cobrix/billing-jobs/internal/core"
	"github.com/cobrix/billing-jobs/internal/domain/billing"
	"github.com/cobrix/billing-jobs/internal/domain/model"
)

// PrepareBatchJobConfig carries the presentment defaults for batch preparation.
type PrepareBatchJobConfig struct {
	// DefaultAdapter is used when the caller does not name one.
	DefaultAdapter string
	// CutoffHour closes the cron window at this local hour; negative disables.
	CutoffHour int
}

// PrepareBatchJobOptions groups dependencies for PrepareBatchJob.
type PrepareBatchJobOptions struct {
	Envelope *Envelope        // Required: execution envelope
	Engine   core.BatchEngine // Required: presentment batch engine
	Calendar *billing.Calendar
	Config   PrepareBatchJobConfig
	Logger   *slog.Logger
}

// PrepareBatchJob assembles the outbound presentment batch for one adapter
// and date. Cron-sourced runs respect the business calendar and the cutoff
// hour; operators bypass both with Force.
type PrepareBatchJob struct {
	envelope *Envelope
	engine   core.BatchEngine
	calendar *billing.Calendar
	config   PrepareBatchJobConfig
	logger   *slog.Logger
}

// NewPrepareBatchJob constructs a PrepareBatchJob.
func NewPrepareBatchJob(opts PrepareBatchJobOptions) (*PrepareBatchJob, error) {
	if opts.Envelope == nil {
		return nil, errors.New("Envelope is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("BatchEngine is required")
	}
	if opts.Calendar == nil {
		opts.Calendar = billing.NewCalendar(nil, nil)
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "prepare_batch_job")
	}

	return &PrepareBatchJob{
		envelope: opts.Envelope,
		engine:   opts.Engine,
		calendar: opts.Calendar,
		config:   opts.Config,
		logger:   logger,
	}, nil
}

// PrepareBatchRunParams describes one batch preparation invocation.
type PrepareBatchRunParams struct {
	// TargetDateAR defaults to today in the billing timezone.
	TargetDateAR string
	// Adapter defaults to the configured presentment adapter.
	Adapter string
	Source  model.RunSource
	// Force bypasses the business-day and cutoff gates.
	Force bool
	// DryRun computes the batch without persisting it.
	DryRun bool
}

// Run executes the prepare job under the envelope.
func (j *PrepareBatchJob) Run(ctx context.Context, params PrepareBatchRunParams) (*JobResult, error) {
	if !params.Source.Valid() {
		return nil, fmt.Errorf("invalid run source: %q", params.Source)
	}

	targetDate := params.TargetDateAR
	if targetDate == "" {
		targetDate = j.calendar.LocalDate(j.envelope.Now())
	}
	if _, err := j.calendar.ParseDate(targetDate); err != nil {
		return nil, err
	}

	adapter := params.Adapter
	if adapter == "" {
		adapter = j.config.DefaultAdapter
	}
	if adapter == "" {
		return nil, errors.New("presentment adapter is required")
	}

	return j.envelope.Execute(ctx, RunRequest{
		JobName:      model.JobPrepareBatch,
		Source:       params.Source,
		LockKey:      billing.PrepareBatchLockKey(adapter, targetDate),
		TargetDateAR: &targetDate,
		Adapter:      &adapter,
	}, func(ctx context.Context) (*Outcome, error) {
		if gated, outcome, err := j.cronGate(params, targetDate); err != nil || gated {
			return outcome, err
		}

		result, err := j.engine.PreparePresentmentBatch(ctx, model.PrepareBatchParams{
			TargetDateAR: targetDate,
			Adapter:      adapter,
			DryRun:       params.DryRun,
		})
		if err != nil {
			return nil, fmt.Errorf("prepare presentment batch: %w", err)
		}
		return prepareOutcome(result), nil
	})
}

// cronGate applies the presentment window checks for cron-sourced runs.
func (j *PrepareBatchJob) cronGate(params PrepareBatchRunParams, targetDate string) (bool, *Outcome, error) {
	if params.Source != model.SourceCron || params.Force {
		return false, nil, nil
	}

	decision, err := j.calendar.PresentmentWindow(j.envelope.Now(), targetDate, j.config.CutoffHour)
	if err != nil {
		return false, nil, err
	}
	if decision.Open {
		return false, nil, nil
	}
	return true, &Outcome{
		Status: model.RunStatusNoOp,
		Reason: string(decision.Reason),
	}, nil
}

func prepareOutcome(result *model.PrepareBatchResult) *Outcome {
	counters := model.Counters{
		"charges_included": result.ChargesIncluded,
		"amount_total":     result.AmountTotal,
	}
	var meta model.Metadata
	if result.BatchID != nil {
		meta = model.Metadata{"batch_id": *result.BatchID}
	}

	switch {
	case result.DryRun:
		return &Outcome{Status: model.RunStatusNoOp, Reason: "dry_run", Counters: counters, Metadata: meta}
	case result.AlreadyPrepared:
		return &Outcome{Status: model.RunStatusNoOp, Reason: "already_prepared", Counters: counters, Metadata: meta}
	case result.ChargesIncluded == 0:
		return &Outcome{Status: model.RunStatusNoOp, Reason: "empty_batch", Counters: counters}
	default:
		return &Outcome{Status: model.RunStatusSuccess, Counters: counters, Metadata: meta}
	}
}
