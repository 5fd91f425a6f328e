// Package testutil provides testing utilities and helpers for the billing job system.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/cobrix/billing-jobs/internal/domain/model"
)

// JobRunBuilder provides a fluent interface for building JobRun rows for testing.
type JobRunBuilder struct {
	run *model.JobRun
}

// NewJobRun creates a new JobRunBuilder with sensible defaults: a running
// cron-sourced anchor run started at a fixed instant.
func NewJobRun() *JobRunBuilder {
	started := time.Date(2025, 7, 8, 13, 0, 0, 0, time.UTC)
	return &JobRunBuilder{
		run: &model.JobRun{
			ID:        uuid.NewString(),
			JobName:   model.JobRunAnchor,
			Status:    model.RunStatusRunning,
			Source:    model.SourceCron,
			StartedAt: started,
		},
	}
}

// WithJobName sets the job name.
func (b *JobRunBuilder) WithJobName(name model.JobName) *JobRunBuilder {
	b.run.JobName = name
	return b
}

// WithStatus sets the run status.
func (b *JobRunBuilder) WithStatus(status model.RunStatus) *JobRunBuilder {
	b.run.Status = status
	return b
}

// WithSource sets the trigger source.
func (b *JobRunBuilder) WithSource(source model.RunSource) *JobRunBuilder {
	b.run.Source = source
	return b
}

// WithTargetDate sets the Argentina-local target date.
func (b *JobRunBuilder) WithTargetDate(date string) *JobRunBuilder {
	b.run.TargetDateAR = &date
	return b
}

// WithAdapter sets the bank adapter.
func (b *JobRunBuilder) WithAdapter(adapter string) *JobRunBuilder {
	b.run.Adapter = &adapter
	return b
}

// WithStartedAt sets the start instant.
func (b *JobRunBuilder) WithStartedAt(at time.Time) *JobRunBuilder {
	b.run.StartedAt = at
	return b
}

// Finished marks the run terminal with the given status and duration.
func (b *JobRunBuilder) Finished(status model.RunStatus, took time.Duration) *JobRunBuilder {
	finished := b.run.StartedAt.Add(took)
	ms := took.Milliseconds()
	b.run.Status = status
	b.run.FinishedAt = &finished
	b.run.DurationMS = &ms
	return b
}

// WithCounters sets the run counters.
func (b *JobRunBuilder) WithCounters(counters model.Counters) *JobRunBuilder {
	b.run.Counters = counters
	return b
}

// WithError sets the failure message.
func (b *JobRunBuilder) WithError(msg string) *JobRunBuilder {
	b.run.ErrorMessage = &msg
	return b
}

// Build returns the constructed run.
func (b *JobRunBuilder) Build() *model.JobRun {
	return b.run
}
