package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cobrix/billing-jobs/internal/data"
	"github.com/cobrix/billing-jobs/internal/domain/model"
	"github.com/cobrix/billing-jobs/internal/mocks"
)

// Verifies the exact call sequence against the lock and ledger ports: the
// RUNNING row exists before the lock is taken, the row is finalized while the
// lock is still held, and the lock release is the last thing that happens.
func TestEnvelope_Execute_PortCallOrdering(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockRunLedger(ctrl)
	locks := mocks.NewMockLockService(ctrl)

	startedAt := time.Date(2025, 7, 8, 10, 0, 0, 0, time.UTC)
	running := &model.JobRun{
		ID:        "run-1",
		JobName:   model.JobRunAnchor,
		Source:    model.SourceManual,
		Status:    model.RunStatusRunning,
		StartedAt: startedAt,
	}
	finished := &model.JobRun{
		ID:      "run-1",
		JobName: model.JobRunAnchor,
		Status:  model.RunStatusSuccess,
	}

	ttl := 3 * time.Minute
	gomock.InOrder(
		ledger.EXPECT().
			Start(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, params model.StartRunParams) (*model.JobRun, error) {
				assert.Equal(t, model.JobRunAnchor, params.JobName)
				assert.Equal(t, model.SourceManual, params.Source)
				assert.Equal(t, startedAt, params.StartedAt)
				return running, nil
			}),
		locks.EXPECT().
			Acquire(gomock.Any(), "billing:run_anchor:2025-07-08", "run-1", ttl).
			Return(true, nil),
		ledger.EXPECT().
			Finish(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, params model.FinishRunParams) (*model.JobRun, error) {
				assert.Equal(t, "run-1", params.RunID)
				assert.Equal(t, model.RunStatusSuccess, params.Status)
				return finished, nil
			}),
		locks.EXPECT().
			Release(gomock.Any(), "billing:run_anchor:2025-07-08", "run-1").
			Return(nil),
	)

	env, err := NewEnvelope(EnvelopeOptions{
		Locks:        locks,
		Ledger:       ledger,
		TimeProvider: data.NewFixedTimeProvider(startedAt),
	})
	require.NoError(t, err)

	req := testRequest()
	req.LockTTL = ttl
	result, err := env.Execute(context.Background(), req, func(_ context.Context) (*Outcome, error) {
		return &Outcome{Status: model.RunStatusSuccess}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSuccess, result.Status)
	assert.Same(t, finished, result.Run)
}

// The default TTL applies when the request leaves LockTTL unset.
func TestEnvelope_Execute_DefaultLockTTLApplied(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockRunLedger(ctrl)
	locks := mocks.NewMockLockService(ctrl)

	startedAt := time.Date(2025, 7, 8, 10, 0, 0, 0, time.UTC)
	running := &model.JobRun{ID: "run-2", Status: model.RunStatusRunning, StartedAt: startedAt}

	ledger.EXPECT().Start(gomock.Any(), gomock.Any()).Return(running, nil)
	locks.EXPECT().
		Acquire(gomock.Any(), gomock.Any(), "run-2", 4*time.Minute).
		Return(false, nil)
	ledger.EXPECT().
		Finish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params model.FinishRunParams) (*model.JobRun, error) {
			assert.Equal(t, model.RunStatusSkippedLocked, params.Status)
			return &model.JobRun{ID: "run-2", Status: model.RunStatusSkippedLocked}, nil
		})

	env, err := NewEnvelope(EnvelopeOptions{
		Locks:          locks,
		Ledger:         ledger,
		TimeProvider:   data.NewFixedTimeProvider(startedAt),
		DefaultLockTTL: 4 * time.Minute,
	})
	require.NoError(t, err)

	result, err := env.Execute(context.Background(), testRequest(), func(_ context.Context) (*Outcome, error) {
		t.Fatal("callback must not run when the lock is contended")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, result.SkippedLocked)
}
