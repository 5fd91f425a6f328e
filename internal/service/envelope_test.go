package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrix/billing-jobs/internal/data"
	"github.com/cobrix/billing-jobs/internal/domain/model"
)

func newTestEnvelope(t *testing.T, ledger *memLedger, locks *memLocks) *Envelope {
	t.Helper()
	env, err := NewEnvelope(EnvelopeOptions{
		Locks:        locks,
		Ledger:       ledger,
		TimeProvider: data.NewFixedTimeProvider(time.Date(2025, 7, 8, 10, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	return env
}

func testRequest() RunRequest {
	date := "2025-07-08"
	return RunRequest{
		JobName:      model.JobRunAnchor,
		Source:       model.SourceManual,
		LockKey:      "billing:run_anchor:2025-07-08",
		TargetDateAR: &date,
	}
}

func TestEnvelope_Execute_Success(t *testing.T) {
	ledger := newMemLedger()
	locks := newMemLocks()
	env := newTestEnvelope(t, ledger, locks)

	result, err := env.Execute(context.Background(), testRequest(), func(_ context.Context) (*Outcome, error) {
		return &Outcome{
			Status:   model.RunStatusSuccess,
			Counters: model.Counters{"charges_created": 3},
		}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusSuccess, result.Status)
	assert.False(t, result.NoOp)
	assert.False(t, result.SkippedLocked)
	require.NotNil(t, result.Run)
	assert.Equal(t, model.RunStatusSuccess, result.Run.Status)
	assert.Equal(t, int64(3), result.Run.Counters["charges_created"])

	acquires, releases := locks.balance()
	assert.Equal(t, 1, acquires)
	assert.Equal(t, 1, releases)
	assert.Zero(t, locks.heldKeys())
}

func TestEnvelope_Execute_SkippedLocked(t *testing.T) {
	ledger := newMemLedger()
	locks := newMemLocks()
	env := newTestEnvelope(t, ledger, locks)

	// Another run already holds the key.
	held, err := locks.Acquire(context.Background(), testRequest().LockKey, "other-run", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	invoked := false
	result, err := env.Execute(context.Background(), testRequest(), func(_ context.Context) (*Outcome, error) {
		invoked = true
		return &Outcome{Status: model.RunStatusSuccess}, nil
	})
	require.NoError(t, err)

	assert.False(t, invoked, "business callback must not run under contention")
	assert.Equal(t, model.RunStatusSkippedLocked, result.Status)
	assert.True(t, result.SkippedLocked)
	assert.True(t, result.NoOp)
	require.NotNil(t, result.Run)
	assert.Equal(t, model.RunStatusSkippedLocked, result.Run.Status)
	assert.Equal(t, int64(1), result.Run.Counters["skipped_locked"])

	// The loser never held the lock, so nothing to release.
	_, releases := locks.balance()
	assert.Zero(t, releases)
}

func TestEnvelope_Execute_CallbackError(t *testing.T) {
	ledger := newMemLedger()
	locks := newMemLocks()
	env := newTestEnvelope(t, ledger, locks)

	boom := errors.New("gateway unreachable")
	result, err := env.Execute(context.Background(), testRequest(), func(_ context.Context) (*Outcome, error) {
		return nil, boom
	})
	require.Error(t, err)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, model.RunStatusFailed, result.Status)
	require.NotNil(t, result.Run)
	assert.Equal(t, model.RunStatusFailed, result.Run.Status)
	assert.Equal(t, int64(1), result.Run.Counters["errors_count"])
	require.NotNil(t, result.Run.ErrorMessage)
	assert.Contains(t, *result.Run.ErrorMessage, "gateway unreachable")
	assert.Nil(t, result.Run.ErrorStack, "plain errors carry no stack")

	assert.Zero(t, locks.heldKeys(), "lock released on failure")
}

func TestEnvelope_Execute_PanicReleasesLock(t *testing.T) {
	ledger := newMemLedger()
	locks := newMemLocks()
	env := newTestEnvelope(t, ledger, locks)

	result, err := env.Execute(context.Background(), testRequest(), func(_ context.Context) (*Outcome, error) {
		panic("bad pointer")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	assert.Equal(t, model.RunStatusFailed, result.Status)
	require.NotNil(t, result.Run)
	require.NotNil(t, result.Run.ErrorStack, "panics capture the stack")
	assert.Zero(t, locks.heldKeys(), "lock released on panic")
}

func TestEnvelope_Execute_LockReusableAfterAnyOutcome(t *testing.T) {
	ledger := newMemLedger()
	locks := newMemLocks()
	env := newTestEnvelope(t, ledger, locks)

	outcomes := []func(context.Context) (*Outcome, error){
		func(_ context.Context) (*Outcome, error) { return &Outcome{Status: model.RunStatusSuccess}, nil },
		func(_ context.Context) (*Outcome, error) { return &Outcome{Status: model.RunStatusNoOp}, nil },
		func(_ context.Context) (*Outcome, error) { return nil, errors.New("boom") },
		func(_ context.Context) (*Outcome, error) { panic("boom") },
	}
	for _, fn := range outcomes {
		_, _ = env.Execute(context.Background(), testRequest(), fn)
		assert.Zero(t, locks.heldKeys(), "no lock leaked")
	}

	// A clean follow-up run must win the lock again.
	result, err := env.Execute(context.Background(), testRequest(), func(_ context.Context) (*Outcome, error) {
		return &Outcome{Status: model.RunStatusSuccess}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSuccess, result.Status)
}

func TestEnvelope_Execute_AcquireErrorIsFailed(t *testing.T) {
	ledger := newMemLedger()
	locks := newMemLocks()
	locks.acquireErr = errors.New("store down")
	env := newTestEnvelope(t, ledger, locks)

	result, err := env.Execute(context.Background(), testRequest(), func(_ context.Context) (*Outcome, error) {
		t.Fatal("callback must not run when acquire errors")
		return nil, nil
	})
	require.Error(t, err)

	assert.Equal(t, model.RunStatusFailed, result.Status)
	assert.False(t, result.SkippedLocked, "backend failure is not contention")
	require.NotNil(t, result.Run)
	assert.Equal(t, "lock_acquire_failed", result.Run.Metadata["reason"])
}

func TestEnvelope_Execute_LedgerUnavailable(t *testing.T) {
	ledger := newMemLedger()
	ledger.startErr = errors.New("ledger down")
	locks := newMemLocks()
	env := newTestEnvelope(t, ledger, locks)

	result, err := env.Execute(context.Background(), testRequest(), func(_ context.Context) (*Outcome, error) {
		t.Fatal("callback must not run without a run row")
		return nil, nil
	})
	require.Error(t, err)
	assert.Equal(t, model.RunStatusFailed, result.Status)
	assert.Nil(t, result.Run)

	acquires, _ := locks.balance()
	assert.Zero(t, acquires, "no lock taken without a run row")
}

func TestEnvelope_Execute_DurationNonNegative(t *testing.T) {
	ledger := newMemLedger()
	locks := newMemLocks()
	env := newTestEnvelope(t, ledger, locks)

	result, err := env.Execute(context.Background(), testRequest(), func(_ context.Context) (*Outcome, error) {
		return &Outcome{Status: model.RunStatusSuccess}, nil
	})
	require.NoError(t, err)

	run := result.Run
	require.NotNil(t, run.FinishedAt)
	require.NotNil(t, run.DurationMS)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
	assert.GreaterOrEqual(t, *run.DurationMS, int64(0))
}

func TestEnvelope_Execute_NilOutcomeIsFailed(t *testing.T) {
	ledger := newMemLedger()
	locks := newMemLocks()
	env := newTestEnvelope(t, ledger, locks)

	result, err := env.Execute(context.Background(), testRequest(), func(_ context.Context) (*Outcome, error) {
		return nil, nil
	})
	require.Error(t, err)
	assert.Equal(t, model.RunStatusFailed, result.Status)
	assert.Zero(t, locks.heldKeys())
}

func TestEnvelope_Execute_RunImmutableOnceTerminal(t *testing.T) {
	ledger := newMemLedger()
	locks := newMemLocks()
	env := newTestEnvelope(t, ledger, locks)

	result, err := env.Execute(context.Background(), testRequest(), func(_ context.Context) (*Outcome, error) {
		return &Outcome{Status: model.RunStatusSuccess}, nil
	})
	require.NoError(t, err)

	_, finErr := ledger.Finish(context.Background(), model.FinishRunParams{
		RunID:      result.Run.ID,
		Status:     model.RunStatusFailed,
		FinishedAt: time.Now(),
	})
	require.ErrorIs(t, finErr, model.ErrRunFinalized)
}
