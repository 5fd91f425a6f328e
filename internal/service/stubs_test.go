package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cobrix/billing-jobs/internal/domain/model"
)

// memLedger is an in-memory RunLedger recording every start/finish call.
type memLedger struct {
	mu       sync.Mutex
	runs     map[string]*model.JobRun
	order    []string
	startErr error
	finErr   error
}

func newMemLedger() *memLedger {
	return &memLedger{runs: make(map[string]*model.JobRun)}
}

func (l *memLedger) Start(_ context.Context, params model.StartRunParams) (*model.JobRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.startErr != nil {
		return nil, l.startErr
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	run := &model.JobRun{
		ID:           uuid.NewString(),
		JobName:      params.JobName,
		Source:       params.Source,
		Status:       model.RunStatusRunning,
		StartedAt:    params.StartedAt,
		TargetDateAR: params.TargetDateAR,
		Adapter:      params.Adapter,
		Metadata:     params.Metadata,
		CreatedAt:    params.StartedAt,
	}
	l.runs[run.ID] = run
	l.order = append(l.order, run.ID)
	return run, nil
}

func (l *memLedger) Finish(_ context.Context, params model.FinishRunParams) (*model.JobRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.finErr != nil {
		return nil, l.finErr
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	run, ok := l.runs[params.RunID]
	if !ok {
		return nil, errors.New("run not found")
	}
	if run.Status != model.RunStatusRunning {
		return nil, model.ErrRunFinalized
	}
	run.Status = params.Status
	finished := params.FinishedAt
	run.FinishedAt = &finished
	duration := params.DurationMS
	run.DurationMS = &duration
	run.Counters = params.Counters.Clone()
	run.ErrorMessage = params.ErrorMessage
	run.ErrorStack = params.ErrorStack
	if params.Metadata != nil {
		run.Metadata = params.Metadata
	}
	copied := *run
	return &copied, nil
}

func (l *memLedger) ListRecent(_ context.Context, limit int) ([]model.JobRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.JobRun
	for i := len(l.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *l.runs[l.order[i]])
	}
	return out, nil
}

func (l *memLedger) seed(run *model.JobRun) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[run.ID] = run
	l.order = append(l.order, run.ID)
}

func (l *memLedger) lastRun() *model.JobRun {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.order) == 0 {
		return nil
	}
	copied := *l.runs[l.order[len(l.order)-1]]
	return &copied
}

func (l *memLedger) runCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// memLocks is an in-memory LockService tracking acquire/release balance.
type memLocks struct {
	mu         sync.Mutex
	held       map[string]string
	seen       []string
	acquires   int
	releases   int
	acquireErr error
}

func newMemLocks() *memLocks {
	return &memLocks{held: make(map[string]string)}
}

func (s *memLocks) Acquire(_ context.Context, key, ownerRunID string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquireErr != nil {
		return false, s.acquireErr
	}
	if _, taken := s.held[key]; taken {
		return false, nil
	}
	s.held[key] = ownerRunID
	s.seen = append(s.seen, key)
	s.acquires++
	return true, nil
}

func (s *memLocks) Release(_ context.Context, key, ownerRunID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held[key] == ownerRunID {
		delete(s.held, key)
		s.releases++
	}
	return nil
}

func (s *memLocks) acquiredKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

func (s *memLocks) heldKeys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

func (s *memLocks) balance() (acquires, releases int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquires, s.releases
}
