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

func newExportJob(t *testing.T, engine *stubBatchEngine) (*ExportBatchJob, *memLocks) {
	t.Helper()
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	require.NoError(t, err)

	locks := newMemLocks()
	env, err := NewEnvelope(EnvelopeOptions{
		Locks:        locks,
		Ledger:       newMemLedger(),
		TimeProvider: data.NewFixedTimeProvider(time.Date(2025, 7, 8, 10, 0, 0, 0, loc)),
	})
	require.NoError(t, err)

	job, err := NewExportBatchJob(ExportBatchJobOptions{
		Envelope: env,
		Engine:   engine,
		Calendar: billing.NewCalendar(loc, nil),
		Config: PrepareBatchJobConfig{
			DefaultAdapter: "galicia",
			CutoffHour:     18,
		},
	})
	require.NoError(t, err)
	return job, locks
}

func TestExportBatchJob_Single(t *testing.T) {
	t.Run("exports one batch", func(t *testing.T) {
		engine := &stubBatchEngine{exportResult: &model.ExportBatchResult{
			Exported: true,
			FileRef:  testutil.StringPtr("out/galicia/20250708.txt"),
		}}
		job, locks := newExportJob(t, engine)

		result, err := job.Run(context.Background(), ExportBatchRunParams{
			BatchID: testutil.StringPtr("batch-9"),
			Source:  model.SourceManual,
		})
		require.NoError(t, err)

		assert.Equal(t, model.RunStatusSuccess, result.Status)
		assert.Equal(t, int64(1), result.Counters["exported"])
		assert.Equal(t, "out/galicia/20250708.txt", result.Metadata["file_ref"])
		assert.Equal(t, 1, engine.exportCalls)
		assert.Zero(t, engine.bulkCalls)

		acquires, releases := locks.balance()
		assert.Equal(t, 1, acquires)
		assert.Equal(t, 1, releases)
	})

	t.Run("replay is a no-op", func(t *testing.T) {
		engine := &stubBatchEngine{exportResult: &model.ExportBatchResult{
			AlreadyExported: true,
			FileRef:         testutil.StringPtr("out/galicia/20250708.txt"),
		}}
		job, _ := newExportJob(t, engine)

		result, err := job.Run(context.Background(), ExportBatchRunParams{
			BatchID: testutil.StringPtr("batch-9"),
			Source:  model.SourceManual,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusNoOp, result.Status)
		assert.Equal(t, "already_exported", result.Reason)
		assert.Equal(t, int64(1), result.Counters["already_exported"])
	})

	t.Run("single mode ignores window gating", func(t *testing.T) {
		engine := &stubBatchEngine{exportResult: &model.ExportBatchResult{Exported: true}}
		job, _ := newExportJob(t, engine)

		// A Saturday would gate bulk cron exports but not an explicit batch.
		result, err := job.Run(context.Background(), ExportBatchRunParams{
			BatchID:      testutil.StringPtr("batch-9"),
			TargetDateAR: "2025-07-12",
			Source:       model.SourceCron,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusSuccess, result.Status)
	})

	t.Run("empty batch id is rejected", func(t *testing.T) {
		job, _ := newExportJob(t, &stubBatchEngine{})
		_, err := job.Run(context.Background(), ExportBatchRunParams{
			BatchID: testutil.StringPtr(""),
			Source:  model.SourceManual,
		})
		assert.Error(t, err)
	})
}

func TestExportBatchJob_Bulk(t *testing.T) {
	run := func(t *testing.T, engine *stubBatchEngine) *JobResult {
		t.Helper()
		job, _ := newExportJob(t, engine)
		result, err := job.Run(context.Background(), ExportBatchRunParams{
			TargetDateAR: "2025-07-08",
			Source:       model.SourceCron,
		})
		require.NoError(t, err)
		return result
	}

	t.Run("no pending batches", func(t *testing.T) {
		result := run(t, &stubBatchEngine{bulkResult: &model.BulkExportResult{}})
		assert.Equal(t, model.RunStatusNoOp, result.Status)
		assert.Equal(t, "no_pending_batches", result.Reason)
	})

	t.Run("all exported", func(t *testing.T) {
		result := run(t, &stubBatchEngine{bulkResult: &model.BulkExportResult{
			Considered: 3,
			Exported:   3,
		}})
		assert.Equal(t, model.RunStatusSuccess, result.Status)
		assert.Equal(t, int64(3), result.Counters["exported"])
	})

	t.Run("partial progress", func(t *testing.T) {
		result := run(t, &stubBatchEngine{bulkResult: &model.BulkExportResult{
			Considered: 3,
			Exported:   2,
			Errors:     []model.BatchError{{BatchID: "batch-3", Message: "channel timeout"}},
		}})
		assert.Equal(t, model.RunStatusPartial, result.Status)
		assert.Equal(t, int64(1), result.Counters["errors_count"])
		assert.NotNil(t, result.Metadata["export_errors"])
	})

	t.Run("every export failed", func(t *testing.T) {
		result := run(t, &stubBatchEngine{bulkResult: &model.BulkExportResult{
			Considered: 2,
			Errors: []model.BatchError{
				{BatchID: "batch-1", Message: "channel timeout"},
				{BatchID: "batch-2", Message: "channel timeout"},
			},
		}})
		assert.Equal(t, model.RunStatusFailed, result.Status)
		assert.Equal(t, "all_exports_failed", result.Reason)
	})

	t.Run("everything already shipped", func(t *testing.T) {
		result := run(t, &stubBatchEngine{bulkResult: &model.BulkExportResult{
			Considered:      2,
			AlreadyExported: 2,
		}})
		assert.Equal(t, model.RunStatusNoOp, result.Status)
		assert.Equal(t, "already_exported", result.Reason)
	})

	t.Run("weekend cron sweep is gated", func(t *testing.T) {
		engine := &stubBatchEngine{bulkResult: &model.BulkExportResult{Considered: 1, Exported: 1}}
		job, _ := newExportJob(t, engine)

		result, err := job.Run(context.Background(), ExportBatchRunParams{
			TargetDateAR: "2025-07-12",
			Source:       model.SourceCron,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusNoOp, result.Status)
		assert.Equal(t, "non_business_day", result.Reason)
		assert.Zero(t, engine.bulkCalls)
	})

	t.Run("force bypasses the gate", func(t *testing.T) {
		engine := &stubBatchEngine{bulkResult: &model.BulkExportResult{Considered: 1, Exported: 1}}
		job, _ := newExportJob(t, engine)

		result, err := job.Run(context.Background(), ExportBatchRunParams{
			TargetDateAR: "2025-07-12",
			Source:       model.SourceCron,
			Force:        true,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusSuccess, result.Status)
		assert.Equal(t, 1, engine.bulkCalls)
	})
}
