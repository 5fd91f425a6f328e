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

// ExportBatchJobOptions groups dependencies for ExportBatchJob.
type ExportBatchJobOptions struct {
	Envelope *Envelope        // Required: execution envelope
	Engine   core.BatchEngine // Required: presentment batch engine
	Calendar *billing.Calendar
	Config   PrepareBatchJobConfig
	Logger   *slog.Logger
}

// ExportBatchJob ships prepared presentment batches to the bank channel. It
// runs in two modes: an explicit batch ID exports that one batch under its
// own lock with no window gating, while the bulk mode sweeps every pending
// prepared batch for an adapter and date under the cron window rules.
type ExportBatchJob struct {
	envelope *Envelope
	engine   core.BatchEngine
	calendar *billing.Calendar
	config   PrepareBatchJobConfig
	logger   *slog.Logger
}

// NewExportBatchJob constructs an ExportBatchJob.
func NewExportBatchJob(opts ExportBatchJobOptions) (*ExportBatchJob, error) {
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
		logger = opts.Logger.With("component", "export_batch_job")
	}

	return &ExportBatchJob{
		envelope: opts.Envelope,
		engine:   opts.Engine,
		calendar: opts.Calendar,
		config:   opts.Config,
		logger:   logger,
	}, nil
}

// ExportBatchRunParams describes one export invocation.
type ExportBatchRunParams struct {
	// BatchID selects single-batch mode and skips window gating entirely.
	BatchID *string
	// TargetDateAR defaults to today; bulk mode only.
	TargetDateAR string
	// Adapter defaults to the configured presentment adapter; bulk mode only.
	Adapter string
	Source  model.RunSource
	// Force bypasses the business-day and cutoff gates in bulk mode.
	Force bool
}

// Run executes the export job under the envelope.
func (j *ExportBatchJob) Run(ctx context.Context, params ExportBatchRunParams) (*JobResult, error) {
	if !params.Source.Valid() {
		return nil, fmt.Errorf("invalid run source: %q", params.Source)
	}

	if params.BatchID != nil {
		if *params.BatchID == "" {
			return nil, errors.New("batch id cannot be empty")
		}
		return j.runSingle(ctx, params, *params.BatchID)
	}
	return j.runBulk(ctx, params)
}

func (j *ExportBatchJob) runSingle(ctx context.Context, params ExportBatchRunParams, batchID string) (*JobResult, error) {
	return j.envelope.Execute(ctx, RunRequest{
		JobName:  model.JobExportBatch,
		Source:   params.Source,
		LockKey:  billing.ExportBatchLockKey(batchID),
		Metadata: model.Metadata{"batch_id": batchID},
	}, func(ctx context.Context) (*Outcome, error) {
		result, err := j.engine.ExportPresentmentBatch(ctx, batchID)
		if err != nil {
			return nil, fmt.Errorf("export presentment batch %s: %w", batchID, err)
		}

		var meta model.Metadata
		if result.FileRef != nil {
			meta = model.Metadata{"file_ref": *result.FileRef}
		}
		if result.AlreadyExported {
			return &Outcome{
				Status:   model.RunStatusNoOp,
				Reason:   "already_exported",
				Counters: model.Counters{"already_exported": 1},
				Metadata: meta,
			}, nil
		}
		return &Outcome{
			Status:   model.RunStatusSuccess,
			Counters: model.Counters{"exported": 1},
			Metadata: meta,
		}, nil
	})
}

func (j *ExportBatchJob) runBulk(ctx context.Context, params ExportBatchRunParams) (*JobResult, error) {
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
		JobName:      model.JobExportBatch,
		Source:       params.Source,
		LockKey:      billing.BulkExportLockKey(adapter, targetDate),
		TargetDateAR: &targetDate,
		Adapter:      &adapter,
	}, func(ctx context.Context) (*Outcome, error) {
		if params.Source == model.SourceCron && !params.Force {
			decision, err := j.calendar.PresentmentWindow(j.envelope.Now(), targetDate, j.config.CutoffHour)
			if err != nil {
				return nil, err
			}
			if !decision.Open {
				return &Outcome{Status: model.RunStatusNoOp, Reason: string(decision.Reason)}, nil
			}
		}

		result, err := j.engine.ExportPendingPreparedBatches(ctx, model.BulkExportParams{
			Adapter:      adapter,
			TargetDateAR: targetDate,
		})
		if err != nil {
			return nil, fmt.Errorf("export pending prepared batches: %w", err)
		}
		return bulkExportOutcome(result), nil
	})
}

func bulkExportOutcome(result *model.BulkExportResult) *Outcome {
	outcome := &Outcome{
		Counters: model.Counters{
			"considered":       result.Considered,
			"exported":         result.Exported,
			"already_exported": result.AlreadyExported,
			"errors_count":     int64(len(result.Errors)),
		},
	}
	if len(result.Errors) > 0 {
		outcome.Metadata = model.Metadata{
			"export_errors": truncateSamples(result.Errors),
		}
	}

	if result.Considered == 0 {
		outcome.Status = model.RunStatusNoOp
		outcome.Reason = "no_pending_batches"
		return outcome
	}
	outcome.Status = statusFromProgress(int64(len(result.Errors)), result.Exported)
	if outcome.Status == model.RunStatusNoOp {
		// Everything considered was already exported by an earlier run.
		outcome.Reason = "already_exported"
	}
	if outcome.Status == model.RunStatusFailed {
		outcome.Reason = "all_exports_failed"
	}
	return outcome
}
