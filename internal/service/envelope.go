// Package service provides the orchestration layer for billing engine jobs.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cobrix/billing-jobs/internal/core"
	"github.com/cobrix/billing-jobs/internal/data"
	"github.com/cobrix/billing-jobs/internal/domain/model"
	obserrors "github.com/cobrix/billing-jobs/internal/observability/errors"
	"github.com/cobrix/billing-jobs/internal/observability/metrics"
	"github.com/cobrix/billing-jobs/internal/observability/notify"
	"github.com/cobrix/billing-jobs/internal/observability/statsd"
)

// Outcome is what a job callback reports back to the envelope. Status is one
// of SUCCESS, PARTIAL, NO_OP or FAILED; Err carries the failure cause when the
// callback classified the run as FAILED itself.
type Outcome struct {
	Status   model.RunStatus
	Counters model.Counters
	Metadata model.Metadata
	Reason   string
	Err      error
}

// JobResult is the envelope's aggregate view of one execution. Run is nil only
// when the ledger itself was unavailable.
type JobResult struct {
	Run           *model.JobRun
	Status        model.RunStatus
	Counters      model.Counters
	Metadata      model.Metadata
	Reason        string
	NoOp          bool
	SkippedLocked bool
}

// JobFunc is the business callback executed under the lock.
type JobFunc func(ctx context.Context) (*Outcome, error)

// RunRequest describes one job execution to wrap.
type RunRequest struct {
	JobName      model.JobName
	Source       model.RunSource
	LockKey      string
	LockTTL      time.Duration // zero means the envelope default
	TargetDateAR *string
	Adapter      *string
	Metadata     model.Metadata
}

// FailureNotifier receives FAILED run notifications. Implemented by
// failurenotifier.Service; nil disables notifications.
type FailureNotifier interface {
	NotifyRunFailure(ctx context.Context, payload notify.RunFailurePayload)
}

// EnvelopeOptions groups dependencies for the execution envelope.
type EnvelopeOptions struct {
	Locks          core.LockService // Required: distributed lock backend
	Ledger         core.RunLedger   // Required: run recording
	TimeProvider   data.TimeProvider
	Logger         *slog.Logger
	Metrics        statsd.Sink
	Notifier       FailureNotifier
	DefaultLockTTL time.Duration
}

// Envelope wraps every billing job in the same execution discipline: record a
// RUNNING row, take the distributed lock, run the callback, classify the
// result, always release the lock, finalize the row exactly once.
//
// Lock contention is the normal overlap control between replicas and manual
// triggers, so a contended run finalizes SKIPPED_LOCKED without touching the
// engine and without an error.
type Envelope struct {
	locks          core.LockService
	ledger         core.RunLedger
	timeProvider   data.TimeProvider
	logger         *slog.Logger
	metrics        statsd.Sink
	notifier       FailureNotifier
	defaultLockTTL time.Duration
}

// NewEnvelope constructs the execution envelope.
func NewEnvelope(opts EnvelopeOptions) (*Envelope, error) {
	if opts.Locks == nil {
		return nil, errors.New("LockService is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("RunLedger is required")
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.DefaultLockTTL <= 0 {
		opts.DefaultLockTTL = 10 * time.Minute
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_envelope")
	}

	return &Envelope{
		locks:          opts.Locks,
		ledger:         opts.Ledger,
		timeProvider:   opts.TimeProvider,
		logger:         logger,
		metrics:        opts.Metrics,
		notifier:       opts.Notifier,
		defaultLockTTL: opts.DefaultLockTTL,
	}, nil
}

// Now exposes the envelope's clock so jobs derive default dates and gating
// decisions from the same time source the run records use.
func (e *Envelope) Now() time.Time {
	return e.timeProvider.Now()
}

// Execute runs one job under the envelope. The returned JobResult is non-nil
// on every path; the error reports infrastructure or callback failures, never
// lock contention.
func (e *Envelope) Execute(ctx context.Context, req RunRequest, fn JobFunc) (*JobResult, error) {
	startedAt := e.timeProvider.Now()

	run, err := e.ledger.Start(ctx, model.StartRunParams{
		JobName:      req.JobName,
		Source:       req.Source,
		StartedAt:    startedAt,
		TargetDateAR: req.TargetDateAR,
		Adapter:      req.Adapter,
		Metadata:     req.Metadata,
	})
	if err != nil {
		// No row exists, so nothing to finalize and no lock was taken.
		return &JobResult{
			Status: model.RunStatusFailed,
			Reason: "run_ledger_unavailable",
		}, fmt.Errorf("start %s run: %w", req.JobName, err)
	}

	ttl := req.LockTTL
	if ttl <= 0 {
		ttl = e.defaultLockTTL
	}

	acquired, acqErr := e.locks.Acquire(ctx, req.LockKey, run.ID, ttl)
	if acqErr != nil {
		result, finErr := e.finalize(ctx, finalizeParams{
			Run:          run,
			Source:       req.Source,
			StartedAt:    startedAt,
			Status:       model.RunStatusFailed,
			Counters:     model.Counters{"errors_count": 1},
			Reason:       "lock_acquire_failed",
			Err:          acqErr,
			ErrorMessage: acqErr.Error(),
		})
		if finErr != nil {
			e.logFinalizeError(ctx, run, finErr)
		}
		return result, fmt.Errorf("acquire lock %s: %w", req.LockKey, acqErr)
	}
	if !acquired {
		result, finErr := e.finalize(ctx, finalizeParams{
			Run:       run,
			Source:    req.Source,
			StartedAt: startedAt,
			Status:    model.RunStatusSkippedLocked,
			Counters:  model.Counters{"skipped_locked": 1},
			Reason:    "skipped_locked",
		})
		result.SkippedLocked = true
		result.NoOp = true
		if finErr != nil {
			e.logFinalizeError(ctx, run, finErr)
			return result, finErr
		}
		e.logInfo(ctx, "job run skipped, lock held elsewhere",
			"job", req.JobName,
			"run_id", run.ID,
			"lock_key", req.LockKey,
		)
		return result, nil
	}

	defer func() {
		// Release must run even when the job consumed the whole deadline.
		releaseCtx := context.WithoutCancel(ctx)
		if relErr := e.locks.Release(releaseCtx, req.LockKey, run.ID); relErr != nil {
			e.logError(ctx, "job lock release failed",
				"job", req.JobName,
				"run_id", run.ID,
				"lock_key", req.LockKey,
				"error", relErr,
			)
		}
	}()

	outcome, stack, cbErr := e.invoke(ctx, fn)

	params := finalizeParams{
		Run:       run,
		Source:    req.Source,
		StartedAt: startedAt,
	}
	switch {
	case cbErr != nil:
		params.Status = model.RunStatusFailed
		params.Counters = model.Counters{"errors_count": 1}
		params.Err = cbErr
		params.ErrorMessage = cbErr.Error()
		params.ErrorStack = stack
	case outcome == nil:
		cbErr = fmt.Errorf("%s callback returned no outcome", req.JobName)
		params.Status = model.RunStatusFailed
		params.Counters = model.Counters{"errors_count": 1}
		params.Err = cbErr
		params.ErrorMessage = cbErr.Error()
	default:
		params.Status = outcome.Status
		params.Counters = outcome.Counters
		params.Metadata = outcome.Metadata
		params.Reason = outcome.Reason
		if outcome.Status == model.RunStatusFailed {
			if params.Counters == nil {
				params.Counters = model.Counters{}
			}
			if _, ok := params.Counters["errors_count"]; !ok {
				params.Counters["errors_count"] = 1
			}
			switch {
			case outcome.Err != nil:
				params.Err = outcome.Err
				params.ErrorMessage = outcome.Err.Error()
			case outcome.Reason != "":
				params.ErrorMessage = outcome.Reason
			}
		}
	}

	result, finErr := e.finalize(ctx, params)
	if finErr != nil {
		// The business effect already happened; surface the ledger error
		// instead of hiding it behind the business outcome.
		e.logFinalizeError(ctx, run, finErr)
		if cbErr == nil {
			return result, finErr
		}
	}
	if cbErr != nil {
		return result, fmt.Errorf("%s run %s: %w", req.JobName, run.ID, cbErr)
	}
	return result, nil
}

// invoke runs the callback with panic containment. A panic is reported as an
// error plus the captured stack; plain errors carry no stack.
func (e *Envelope) invoke(ctx context.Context, fn JobFunc) (outcome *Outcome, stack []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = nil
			stack = debug.Stack()
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	outcome, err = fn(ctx)
	return outcome, nil, err
}

type finalizeParams struct {
	Run          *model.JobRun
	Source       model.RunSource
	StartedAt    time.Time
	Status       model.RunStatus
	Counters     model.Counters
	Metadata     model.Metadata
	Reason       string
	Err          error
	ErrorMessage string
	ErrorStack   []byte
}

// finalize writes the terminal row, emits lifecycle metrics and fans out
// failure notifications. It always returns a usable JobResult.
func (e *Envelope) finalize(ctx context.Context, params finalizeParams) (*JobResult, error) {
	duration := e.timeProvider.Now().Sub(params.StartedAt)
	if duration < 0 {
		duration = 0
	}

	meta := params.Metadata
	if params.Reason != "" {
		meta = make(model.Metadata, len(params.Metadata)+1)
		for k, v := range params.Metadata {
			meta[k] = v
		}
		meta["reason"] = params.Reason
	}

	finish := model.FinishRunParams{
		RunID:      params.Run.ID,
		Status:     params.Status,
		FinishedAt: e.timeProvider.Now(),
		DurationMS: duration.Milliseconds(),
		Counters:   params.Counters,
		Metadata:   meta,
	}
	if params.ErrorMessage != "" {
		msg := params.ErrorMessage
		finish.ErrorMessage = &msg
	}
	if len(params.ErrorStack) > 0 {
		stack := string(params.ErrorStack)
		finish.ErrorStack = &stack
	}

	// The row must finalize even when the caller's deadline is spent.
	finishCtx := context.WithoutCancel(ctx)
	finished, err := e.ledger.Finish(finishCtx, finish)

	result := &JobResult{
		Run:      finished,
		Status:   params.Status,
		Counters: params.Counters,
		Metadata: params.Metadata,
		Reason:   params.Reason,
		NoOp:     params.Status == model.RunStatusNoOp,
	}
	if result.Run == nil {
		result.Run = params.Run
	}

	metrics.EmitJobRun(e.metrics, metrics.JobRunMetric{
		Job:      string(params.Run.JobName),
		Source:   string(params.Source),
		Status:   params.Status,
		Duration: duration,
		Err:      params.Err,
	})

	if params.Status == model.RunStatusFailed && e.notifier != nil {
		e.notifier.NotifyRunFailure(ctx, notify.RunFailurePayload{
			RunID:        params.Run.ID,
			JobName:      string(params.Run.JobName),
			Source:       string(params.Source),
			TargetDateAR: derefString(params.Run.TargetDateAR),
			Adapter:      derefString(params.Run.Adapter),
			Error:        params.ErrorMessage,
			ErrorClass:   obserrors.Classify(params.Err),
			Severity:     notify.SeverityCritical,
			OccurredAt:   e.timeProvider.Now(),
		})
	}

	if err != nil {
		return result, fmt.Errorf("finish run %s: %w", params.Run.ID, err)
	}
	return result, nil
}

func (e *Envelope) logFinalizeError(ctx context.Context, run *model.JobRun, err error) {
	e.logError(ctx, "job run finalize failed",
		"job", run.JobName,
		"run_id", run.ID,
		"error", err,
	)
}

func (e *Envelope) logInfo(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.InfoContext(ctx, msg, args...)
	}
}

func (e *Envelope) logError(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.ErrorContext(ctx, msg, args...)
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
