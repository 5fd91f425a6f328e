package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrix/billing-jobs/internal/data"
	"github.com/cobrix/billing-jobs/internal/domain/billing"
	"github.com/cobrix/billing-jobs/internal/domain/model"
	"github.com/cobrix/billing-jobs/internal/testutil"
)

type stubBatchEngine struct {
	prepareResult *model.PrepareBatchResult
	prepareErr    error
	prepareCalls  int
	lastPrepare   model.PrepareBatchParams

	exportResult *model.ExportBatchResult
	exportErr    error
	exportCalls  int

	bulkResult *model.BulkExportResult
	bulkErr    error
	bulkCalls  int

	importResult *model.ImportResponseResult
	importErr    error
	importCalls  int
	lastImport   model.ImportResponseParams
}

func (e *stubBatchEngine) PreparePresentmentBatch(_ context.Context, params model.PrepareBatchParams) (*model.PrepareBatchResult, error) {
	e.prepareCalls++
	e.lastPrepare = params
	if e.prepareErr != nil {
		return nil, e.prepareErr
	}
	return e.prepareResult, nil
}

func (e *stubBatchEngine) ExportPresentmentBatch(_ context.Context, _ string) (*model.ExportBatchResult, error) {
	e.exportCalls++
	if e.exportErr != nil {
		return nil, e.exportErr
	}
	return e.exportResult, nil
}

func (e *stubBatchEngine) ExportPendingPreparedBatches(_ context.Context, _ model.BulkExportParams) (*model.BulkExportResult, error) {
	e.bulkCalls++
	if e.bulkErr != nil {
		return nil, e.bulkErr
	}
	return e.bulkResult, nil
}

func (e *stubBatchEngine) ImportResponseBatch(_ context.Context, params model.ImportResponseParams) (*model.ImportResponseResult, error) {
	e.importCalls++
	e.lastImport = params
	if e.importErr != nil {
		return nil, e.importErr
	}
	return e.importResult, nil
}

// newPrepareJob pins the clock to a Tuesday morning in Buenos Aires.
func newPrepareJob(t *testing.T, engine *stubBatchEngine, cutoffHour int) (*PrepareBatchJob, *memLedger) {
	t.Helper()
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	require.NoError(t, err)

	ledger := newMemLedger()
	env, err := NewEnvelope(EnvelopeOptions{
		Locks:        newMemLocks(),
		Ledger:       ledger,
		TimeProvider: data.NewFixedTimeProvider(time.Date(2025, 7, 8, 10, 0, 0, 0, loc)),
	})
	require.NoError(t, err)

	job, err := NewPrepareBatchJob(PrepareBatchJobOptions{
		Envelope: env,
		Engine:   engine,
		Calendar: billing.NewCalendar(loc, []string{"2025-07-09"}),
		Config: PrepareBatchJobConfig{
			DefaultAdapter: "galicia",
			CutoffHour:     cutoffHour,
		},
	})
	require.NoError(t, err)
	return job, ledger
}

func TestPrepareBatchJob_CronGates(t *testing.T) {
	t.Run("non-business day", func(t *testing.T) {
		engine := &stubBatchEngine{}
		job, _ := newPrepareJob(t, engine, 18)

		result, err := job.Run(context.Background(), PrepareBatchRunParams{
			TargetDateAR: "2025-07-12", // Saturday
			Source:       model.SourceCron,
		})
		require.NoError(t, err)

		assert.Equal(t, model.RunStatusNoOp, result.Status)
		assert.Equal(t, "non_business_day", result.Reason)
		assert.Zero(t, engine.prepareCalls)
	})

	t.Run("holiday", func(t *testing.T) {
		engine := &stubBatchEngine{}
		job, _ := newPrepareJob(t, engine, 18)

		result, err := job.Run(context.Background(), PrepareBatchRunParams{
			TargetDateAR: "2025-07-09",
			Source:       model.SourceCron,
		})
		require.NoError(t, err)
		assert.Equal(t, "non_business_day", result.Reason)
		assert.Zero(t, engine.prepareCalls)
	})

	t.Run("past cutoff", func(t *testing.T) {
		engine := &stubBatchEngine{}
		job, _ := newPrepareJob(t, engine, 9) // clock is 10:00 local

		result, err := job.Run(context.Background(), PrepareBatchRunParams{
			TargetDateAR: "2025-07-08",
			Source:       model.SourceCron,
		})
		require.NoError(t, err)
		assert.Equal(t, "deferred_to_next_window", result.Reason)
		assert.Zero(t, engine.prepareCalls)
	})

	t.Run("force bypasses gates", func(t *testing.T) {
		engine := &stubBatchEngine{prepareResult: &model.PrepareBatchResult{
			BatchID:         testutil.StringPtr("batch-1"),
			ChargesIncluded: 4,
			AmountTotal:     100000,
		}}
		job, _ := newPrepareJob(t, engine, 18)

		result, err := job.Run(context.Background(), PrepareBatchRunParams{
			TargetDateAR: "2025-07-12", // Saturday, but forced
			Source:       model.SourceCron,
			Force:        true,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusSuccess, result.Status)
		assert.Equal(t, 1, engine.prepareCalls)
	})

	t.Run("manual source bypasses gates", func(t *testing.T) {
		engine := &stubBatchEngine{prepareResult: &model.PrepareBatchResult{ChargesIncluded: 1}}
		job, _ := newPrepareJob(t, engine, 18)

		result, err := job.Run(context.Background(), PrepareBatchRunParams{
			TargetDateAR: "2025-07-12",
			Source:       model.SourceManual,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusSuccess, result.Status)
		assert.Equal(t, 1, engine.prepareCalls)
	})
}

func TestPrepareBatchJob_Outcomes(t *testing.T) {
	t.Run("success carries batch id and counters", func(t *testing.T) {
		engine := &stubBatchEngine{prepareResult: &model.PrepareBatchResult{
			BatchID:         testutil.StringPtr("batch-7"),
			ChargesIncluded: 12,
			AmountTotal:     345600,
		}}
		job, ledger := newPrepareJob(t, engine, 18)

		result, err := job.Run(context.Background(), PrepareBatchRunParams{
			TargetDateAR: "2025-07-08",
			Source:       model.SourceCron,
		})
		require.NoError(t, err)

		assert.Equal(t, model.RunStatusSuccess, result.Status)
		assert.Equal(t, int64(12), result.Counters["charges_included"])
		assert.Equal(t, int64(345600), result.Counters["amount_total"])
		assert.Equal(t, "batch-7", result.Metadata["batch_id"])

		run := ledger.lastRun()
		require.NotNil(t, run.Adapter)
		assert.Equal(t, "galicia", *run.Adapter)
	})

	t.Run("already prepared", func(t *testing.T) {
		engine := &stubBatchEngine{prepareResult: &model.PrepareBatchResult{
			BatchID:         testutil.StringPtr("batch-7"),
			ChargesIncluded: 12,
			AlreadyPrepared: true,
		}}
		job, _ := newPrepareJob(t, engine, 18)

		result, err := job.Run(context.Background(), PrepareBatchRunParams{
			TargetDateAR: "2025-07-08",
			Source:       model.SourceCron,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusNoOp, result.Status)
		assert.Equal(t, "already_prepared", result.Reason)
	})

	t.Run("empty batch", func(t *testing.T) {
		engine := &stubBatchEngine{prepareResult: &model.PrepareBatchResult{}}
		job, _ := newPrepareJob(t, engine, 18)

		result, err := job.Run(context.Background(), PrepareBatchRunParams{
			TargetDateAR: "2025-07-08",
			Source:       model.SourceCron,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusNoOp, result.Status)
		assert.Equal(t, "empty_batch", result.Reason)
	})

	t.Run("dry run reports counters without persisting", func(t *testing.T) {
		engine := &stubBatchEngine{prepareResult: &model.PrepareBatchResult{
			ChargesIncluded: 9,
			AmountTotal:     90000,
			DryRun:          true,
		}}
		job, _ := newPrepareJob(t, engine, 18)

		result, err := job.Run(context.Background(), PrepareBatchRunParams{
			TargetDateAR: "2025-07-08",
			Source:       model.SourceManual,
			DryRun:       true,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusNoOp, result.Status)
		assert.Equal(t, "dry_run", result.Reason)
		assert.Equal(t, int64(9), result.Counters["charges_included"])
		assert.True(t, engine.lastPrepare.DryRun)
	})
}
