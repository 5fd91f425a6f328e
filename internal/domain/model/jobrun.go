// Package model defines the core data types and structures used throughout the billing job system.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobName identifies one of the orchestrated billing jobs.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobName string

// RunStatus represents the lifecycle status of a job run.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type RunStatus string

// RunSource identifies what triggered a job run.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type RunSource string

const (
	// JobRunAnchor is the daily anchor run that opens billing cycles and creates charges.
	JobRunAnchor JobName = "run_anchor"
	// JobPrepareBatch builds the outbound presentment batch for an adapter and date.
	JobPrepareBatch JobName = "prepare_batch"
	// JobExportBatch exports prepared presentment batches to the bank channel.
	JobExportBatch JobName = "export_batch"
	// JobReconcileBatch imports a bank response file and applies its outcomes.
	JobReconcileBatch JobName = "reconcile_batch"
	// JobFallbackCreate creates fallback payment intents for eligible rejected charges.
	JobFallbackCreate JobName = "fallback_create"
	// JobFallbackStatusSync polls the fallback provider and applies status changes.
	JobFallbackStatusSync JobName = "fallback_status_sync"

	// RunStatusRunning indicates a run is currently executing.
	RunStatusRunning RunStatus = "RUNNING"
	// RunStatusSuccess indicates a run completed with progress and no errors.
	RunStatusSuccess RunStatus = "SUCCESS"
	// RunStatusPartial indicates a run made progress but some items errored.
	RunStatusPartial RunStatus = "PARTIAL"
	// RunStatusNoOp indicates a run had nothing to do or was gated out.
	RunStatusNoOp RunStatus = "NO_OP"
	// RunStatusFailed indicates a run errored without making progress.
	RunStatusFailed RunStatus = "FAILED"
	// RunStatusSkippedLocked indicates another holder owned the job lock.
	RunStatusSkippedLocked RunStatus = "SKIPPED_LOCKED"

	// SourceCron marks runs triggered by the scheduled tick.
	SourceCron RunSource = "CRON"
	// SourceManual marks runs triggered by an operator.
	SourceManual RunSource = "MANUAL"
	// SourceSystem marks runs triggered by another internal process.
	SourceSystem RunSource = "SYSTEM"
)

// ErrRunFinalized is returned when finishing a run that already reached a terminal status.
var ErrRunFinalized = errors.New("job run already finalized")

// Valid returns true if the JobName is one of the orchestrated jobs.
func (n JobName) Valid() bool {
	switch n {
	case JobRunAnchor, JobPrepareBatch, JobExportBatch, JobReconcileBatch,
		JobFallbackCreate, JobFallbackStatusSync:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler for JobName to allow env parsing.
func (n *JobName) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jn := JobName(v)
	if jn.Valid() {
		*n = jn
		return nil
	}
	return fmt.Errorf("invalid JobName: %q", v)
}

// Valid returns true if the RunStatus is a known status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusSuccess, RunStatusPartial, RunStatusNoOp,
		RunStatusFailed, RunStatusSkippedLocked:
		return true
	}
	return false
}

// Terminal returns true once a run can no longer transition.
func (s RunStatus) Terminal() bool {
	return s.Valid() && s != RunStatusRunning
}

// UnmarshalText implements encoding.TextUnmarshaler for RunStatus.
func (s *RunStatus) UnmarshalText(text []byte) error {
	v := RunStatus(strings.ToUpper(strings.TrimSpace(string(text))))
	if v.Valid() {
		*s = v
		return nil
	}
	return fmt.Errorf("invalid RunStatus: %q", string(text))
}

// Valid returns true if the RunSource is a known source.
func (s RunSource) Valid() bool {
	return s == SourceCron || s == SourceManual || s == SourceSystem
}

// UnmarshalText implements encoding.TextUnmarshaler for RunSource.
func (s *RunSource) UnmarshalText(text []byte) error {
	v := RunSource(strings.ToUpper(strings.TrimSpace(string(text))))
	if v.Valid() {
		*s = v
		return nil
	}
	return fmt.Errorf("invalid RunSource: %q", string(text))
}

// Counters holds the scalar progress counters a job reports.
type Counters map[string]int64

// Clone returns a copy so finalized runs stay immutable.
func (c Counters) Clone() Counters {
	if c == nil {
		return nil
	}
	out := make(Counters, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Metadata holds non-scalar run context such as truncated error samples.
type Metadata map[string]any

// JobRun is the persisted record of a single job execution.
// A run transitions exactly once from RUNNING to a terminal status and is
// immutable afterwards.
type JobRun struct {
	ID           string     `json:"id"                       db:"id"`
	JobName      JobName    `json:"job_name"                 db:"job_name"`
	Source       RunSource  `json:"source"                   db:"source"`
	Status       RunStatus  `json:"status"                   db:"status"`
	StartedAt    time.Time  `json:"started_at"               db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"    db:"finished_at"`
	DurationMS   *int64     `json:"duration_ms,omitempty"    db:"duration_ms"`
	TargetDateAR *string    `json:"target_date_ar,omitempty" db:"target_date_ar"`
	Adapter      *string    `json:"adapter,omitempty"        db:"adapter"`
	Counters     Counters   `json:"counters,omitempty"       db:"counters"`
	ErrorMessage *string    `json:"error_message,omitempty"  db:"error_message"`
	ErrorStack   *string    `json:"error_stack,omitempty"    db:"error_stack"`
	Metadata     Metadata   `json:"metadata,omitempty"       db:"metadata"`
	CreatedAt    time.Time  `json:"created_at"               db:"created_at"`
}

// StartRunParams describes a new RUNNING run to record.
type StartRunParams struct {
	JobName      JobName   `json:"job_name"`
	Source       RunSource `json:"source"`
	StartedAt    time.Time `json:"started_at"`
	TargetDateAR *string   `json:"target_date_ar,omitempty"`
	Adapter      *string   `json:"adapter,omitempty"`
	Metadata     Metadata  `json:"metadata,omitempty"`
}

// Validate validates the StartRunParams fields.
func (p *StartRunParams) Validate() error {
	if !p.JobName.Valid() {
		return errors.New("invalid job name")
	}
	if !p.Source.Valid() {
		return errors.New("invalid run source")
	}
	if p.StartedAt.IsZero() {
		return errors.New("started at is required")
	}
	return nil
}

// FinishRunParams describes the terminal state for a RUNNING run.
type FinishRunParams struct {
	RunID        string    `json:"run_id"`
	Status       RunStatus `json:"status"`
	FinishedAt   time.Time `json:"finished_at"`
	DurationMS   int64     `json:"duration_ms"`
	Counters     Counters  `json:"counters,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	ErrorStack   *string   `json:"error_stack,omitempty"`
	Metadata     Metadata  `json:"metadata,omitempty"`
}

// Validate validates the FinishRunParams fields.
func (p *FinishRunParams) Validate() error {
	if p.RunID == "" {
		return errors.New("run id is required")
	}
	if !p.Status.Terminal() {
		return errors.New("finish status must be terminal")
	}
	if p.FinishedAt.IsZero() {
		return errors.New("finished at is required")
	}
	if p.DurationMS < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
