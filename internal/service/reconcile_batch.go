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

// ReconcileBatchJobOptions groups dependencies for ReconcileBatchJob.
type ReconcileBatchJobOptions struct {
	Envelope *Envelope        // Required: execution envelope
	Engine   core.BatchEngine // Required: response import engine
	Logger   *slog.Logger
}

// ReconcileBatchJob imports a bank response file against its outbound batch.
// The lock key carries the file's content hash, so replaying the identical
// file contends on the same key and lands on the engine's idempotent
// already-imported path, while a different file for the same batch proceeds
// independently.
type ReconcileBatchJob struct {
	envelope *Envelope
	engine   core.BatchEngine
	logger   *slog.Logger
}

// NewReconcileBatchJob constructs a ReconcileBatchJob.
func NewReconcileBatchJob(opts ReconcileBatchJobOptions) (*ReconcileBatchJob, error) {
	if opts.Envelope == nil {
		return nil, errors.New("Envelope is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("BatchEngine is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reconcile_batch_job")
	}

	return &ReconcileBatchJob{
		envelope: opts.Envelope,
		engine:   opts.Engine,
		logger:   logger,
	}, nil
}

// ReconcileRunParams describes one response file import.
type ReconcileRunParams struct {
	OutboundBatchID *string
	FileBytes       []byte
	FileName        string
	Source          model.RunSource
}

// Run executes the reconcile job. An invocation with no batch or no file is
// an expected skip: cron ticks fire this stage whether or not an inbound
// file was staged, so the skip returns without recording a run.
func (j *ReconcileBatchJob) Run(ctx context.Context, params ReconcileRunParams) (*JobResult, error) {
	if !params.Source.Valid() {
		return nil, fmt.Errorf("invalid run source: %q", params.Source)
	}

	if params.OutboundBatchID == nil || *params.OutboundBatchID == "" || len(params.FileBytes) == 0 {
		return &JobResult{
			Status: model.RunStatusNoOp,
			Reason: "missing_inbound_file_or_batch",
			NoOp:   true,
		}, nil
	}

	batchID := *params.OutboundBatchID
	fileHash := billing.FileHash(params.FileBytes)

	return j.envelope.Execute(ctx, RunRequest{
		JobName: model.JobReconcileBatch,
		Source:  params.Source,
		LockKey: billing.ReconcileLockKey(batchID, fileHash),
		Metadata: model.Metadata{
			"outbound_batch_id": batchID,
			"file_name":         params.FileName,
			"file_hash":         fileHash,
		},
	}, func(ctx context.Context) (*Outcome, error) {
		result, err := j.engine.ImportResponseBatch(ctx, model.ImportResponseParams{
			OutboundBatchID: batchID,
			FileName:        params.FileName,
			FileBytes:       params.FileBytes,
			FileHash:        fileHash,
		})
		if err != nil {
			return nil, fmt.Errorf("import response batch %s: %w", batchID, err)
		}
		return reconcileOutcome(result), nil
	})
}

// reconcileOutcome maps an import result to a terminal status. This job has
// no PARTIAL: rejected rows are settlement outcomes the bank reported, not
// processing failures.
func reconcileOutcome(result *model.ImportResponseResult) *Outcome {
	counters := model.Counters{
		"rows_total":       result.RowsTotal,
		"rows_applied":     result.RowsApplied,
		"rows_rejected":    result.RowsRejected,
		"charges_paid":     result.ChargesPaid,
		"charges_rejected": result.ChargesRejected,
	}

	switch {
	case result.AlreadyImported:
		return &Outcome{Status: model.RunStatusNoOp, Reason: "already_imported", Counters: counters}
	case result.RowsTotal == 0:
		return &Outcome{Status: model.RunStatusNoOp, Reason: "empty_file", Counters: counters}
	default:
		return &Outcome{Status: model.RunStatusSuccess, Counters: counters}
	}
}
