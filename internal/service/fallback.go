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

// FallbackJobConfig carries the fallback channel settings shared by the
// create and sync jobs.
type FallbackJobConfig struct {
	Provider model.FallbackProvider
	// Enabled gates fallback creation entirely. A disabled feature skips
	// before the envelope, so no run row is recorded.
	Enabled bool
}

// FallbackCreateJobOptions groups dependencies for FallbackCreateJob.
type FallbackCreateJobOptions struct {
	Envelope *Envelope           // Required: execution envelope
	Engine   core.FallbackEngine // Required: fallback channel engine
	Calendar *billing.Calendar
	Config   FallbackJobConfig
	Logger   *slog.Logger
}

// FallbackCreateJob escalates charges whose direct-debit collection is
// exhausted to the alternate payment channel.
type FallbackCreateJob struct {
	envelope *Envelope
	engine   core.FallbackEngine
	calendar *billing.Calendar
	config   FallbackJobConfig
	logger   *slog.Logger
}

// NewFallbackCreateJob constructs a FallbackCreateJob.
func NewFallbackCreateJob(opts FallbackCreateJobOptions) (*FallbackCreateJob, error) {
	if opts.Envelope == nil {
		return nil, errors.New("Envelope is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("FallbackEngine is required")
	}
	if opts.Calendar == nil {
		opts.Calendar = billing.NewCalendar(nil, nil)
	}
	if !opts.Config.Provider.Valid() {
		opts.Config.Provider = model.ProviderCIGQR
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "fallback_create_job")
	}

	return &FallbackCreateJob{
		envelope: opts.Envelope,
		engine:   opts.Engine,
		calendar: opts.Calendar,
		config:   opts.Config,
		logger:   logger,
	}, nil
}

// FallbackCreateRunParams describes one fallback creation invocation.
type FallbackCreateRunParams struct {
	// ChargeID narrows the pass to a single charge under a per-charge lock;
	// otherwise the engine sweeps eligible charges for the target date.
	ChargeID *string
	// TargetDateAR defaults to today in the billing timezone.
	TargetDateAR string
	Source       model.RunSource
}

// Run executes the fallback creation job under the envelope.
func (j *FallbackCreateJob) Run(ctx context.Context, params FallbackCreateRunParams) (*JobResult, error) {
	if !params.Source.Valid() {
		return nil, fmt.Errorf("invalid run source: %q", params.Source)
	}

	if !j.config.Enabled {
		return &JobResult{
			Status: model.RunStatusNoOp,
			Reason: "fallback_disabled",
			NoOp:   true,
		}, nil
	}

	targetDate := params.TargetDateAR
	if targetDate == "" {
		targetDate = j.calendar.LocalDate(j.envelope.Now())
	}
	if _, err := j.calendar.ParseDate(targetDate); err != nil {
		return nil, err
	}

	lockKey := billing.FallbackCreateSweepLockKey(targetDate)
	if params.ChargeID != nil {
		if *params.ChargeID == "" {
			return nil, errors.New("charge id cannot be empty")
		}
		lockKey = billing.FallbackCreateChargeLockKey(*params.ChargeID)
	}

	return j.envelope.Execute(ctx, RunRequest{
		JobName:      model.JobFallbackCreate,
		Source:       params.Source,
		LockKey:      lockKey,
		TargetDateAR: &targetDate,
	}, func(ctx context.Context) (*Outcome, error) {
		result, err := j.engine.CreateFallbackForEligibleCharges(ctx, model.FallbackCreateParams{
			ChargeID:     params.ChargeID,
			TargetDateAR: targetDate,
			Provider:     j.config.Provider,
		})
		if err != nil {
			return nil, fmt.Errorf("create fallback intents: %w", err)
		}
		return fallbackCreateOutcome(result), nil
	})
}

func fallbackCreateOutcome(result *model.FallbackCreateResult) *Outcome {
	outcome := &Outcome{
		Counters: model.Counters{
			"considered": result.Considered,
			"created":    result.Created,
		},
	}
	if len(result.Skipped) > 0 {
		outcome.Metadata = model.Metadata{
			"skip_reasons":  truncateSamples(result.Skipped),
			"skipped_total": len(result.Skipped),
		}
	}

	switch {
	case result.Created > 0:
		outcome.Status = model.RunStatusSuccess
	case result.Considered > 0:
		outcome.Status = model.RunStatusNoOp
		outcome.Reason = "no_eligible_charges"
	default:
		outcome.Status = model.RunStatusNoOp
		outcome.Reason = "nothing_to_do"
	}
	return outcome
}

// FallbackSyncJobOptions groups dependencies for FallbackStatusSyncJob.
type FallbackSyncJobOptions struct {
	Envelope *Envelope           // Required: execution envelope
	Engine   core.FallbackEngine // Required: fallback channel engine
	Calendar *billing.Calendar
	Provider model.FallbackProvider
	Logger   *slog.Logger
}

// FallbackStatusSyncJob polls the fallback provider and applies intent
// status transitions (pending to paid, expired or failed). Cron-sourced runs
// honor per-agency auto-sync opt-outs; manual and system runs always sync.
type FallbackStatusSyncJob struct {
	envelope *Envelope
	engine   core.FallbackEngine
	calendar *billing.Calendar
	provider model.FallbackProvider
	logger   *slog.Logger
}

// NewFallbackStatusSyncJob constructs a FallbackStatusSyncJob.
func NewFallbackStatusSyncJob(opts FallbackSyncJobOptions) (*FallbackStatusSyncJob, error) {
	if opts.Envelope == nil {
		return nil, errors.New("Envelope is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("FallbackEngine is required")
	}
	if opts.Calendar == nil {
		opts.Calendar = billing.NewCalendar(nil, nil)
	}
	if !opts.Provider.Valid() {
		opts.Provider = model.ProviderCIGQR
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "fallback_sync_job")
	}

	return &FallbackStatusSyncJob{
		envelope: opts.Envelope,
		engine:   opts.Engine,
		calendar: opts.Calendar,
		provider: opts.Provider,
		logger:   logger,
	}, nil
}

// FallbackSyncRunParams describes one status sync invocation.
type FallbackSyncRunParams struct {
	// IntentID narrows the pass to a single intent under a per-intent lock;
	// otherwise the pass covers the provider for the target date.
	IntentID *string
	// TargetDateAR defaults to today in the billing timezone.
	TargetDateAR string
	Source       model.RunSource
}

// Run executes the status sync job under the envelope.
func (j *FallbackStatusSyncJob) Run(ctx context.Context, params FallbackSyncRunParams) (*JobResult, error) {
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

	lockKey := billing.FallbackSyncSweepLockKey(string(j.provider), targetDate)
	if params.IntentID != nil {
		if *params.IntentID == "" {
			return nil, errors.New("intent id cannot be empty")
		}
		lockKey = billing.FallbackSyncIntentLockKey(*params.IntentID)
	}

	return j.envelope.Execute(ctx, RunRequest{
		JobName:      model.JobFallbackStatusSync,
		Source:       params.Source,
		LockKey:      lockKey,
		TargetDateAR: &targetDate,
	}, func(ctx context.Context) (*Outcome, error) {
		result, err := j.engine.SyncFallbackStatuses(ctx, model.FallbackSyncParams{
			IntentID:     params.IntentID,
			Provider:     j.provider,
			TargetDateAR: targetDate,
			// Scheduled ticks honor the per-agency auto-sync opt-out;
			// operator-triggered syncs always run.
			OnlyAutoSyncEnabled: params.Source == model.SourceCron,
		})
		if err != nil {
			return nil, fmt.Errorf("sync fallback statuses: %w", err)
		}
		return fallbackSyncOutcome(result), nil
	})
}

func fallbackSyncOutcome(result *model.FallbackSyncResult) *Outcome {
	outcome := &Outcome{
		Counters: model.Counters{
			"checked":      result.Checked,
			"updated":      result.Updated,
			"expired":      result.Expired,
			"errors_count": int64(len(result.Errors)),
		},
	}
	if len(result.Errors) > 0 {
		outcome.Metadata = model.Metadata{
			"sync_errors": truncateSamples(result.Errors),
		}
	}

	if result.Checked == 0 {
		outcome.Status = model.RunStatusNoOp
		outcome.Reason = "nothing_to_sync"
		return outcome
	}
	switch {
	case len(result.Errors) > 0 && result.Updated > 0:
		outcome.Status = model.RunStatusPartial
	case len(result.Errors) > 0:
		outcome.Status = model.RunStatusFailed
		outcome.Reason = "all_syncs_failed"
	default:
		outcome.Status = model.RunStatusSuccess
	}
	return outcome
}
