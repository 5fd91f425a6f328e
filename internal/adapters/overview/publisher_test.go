package overview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrix/billing-jobs/internal/domain/model"
)

type stubSnapshotter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubSnapshotter) Snapshot(context.Context) (*model.OverviewSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &model.OverviewSnapshot{
		GeneratedAt:     time.Now(),
		PendingAttempts: 12,
		RecoveryRate30d: 25,
	}, nil
}

func (s *stubSnapshotter) snapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingSink struct {
	mu     sync.Mutex
	gauges map[string]float64
}

func (r *recordingSink) Count(string, int64, map[string]string)          {}
func (r *recordingSink) Timing(string, time.Duration, map[string]string) {}

func (r *recordingSink) Gauge(name string, value float64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gauges == nil {
		r.gauges = make(map[string]float64)
	}
	r.gauges[name] = value
}

func (r *recordingSink) gauge(name string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.gauges[name]
	return v, ok
}

func TestNewPublisher(t *testing.T) {
	t.Run("requires overview service", func(t *testing.T) {
		_, err := NewPublisher(PublisherOptions{})
		require.Error(t, err)
	})

	t.Run("defaults interval", func(t *testing.T) {
		publisher, err := NewPublisher(PublisherOptions{Snapshots: &stubSnapshotter{}})
		require.NoError(t, err)
		assert.Equal(t, 5*time.Minute, publisher.interval)
	})
}

func TestPublisher_Run(t *testing.T) {
	t.Run("publishes immediately and on the interval", func(t *testing.T) {
		snaps := &stubSnapshotter{}
		sink := &recordingSink{}
		publisher, err := NewPublisher(PublisherOptions{
			Snapshots: snaps,
			Interval:  5 * time.Millisecond,
			Metrics:   sink,
		})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- publisher.Run(ctx) }()

		require.Eventually(t, func() bool { return snaps.snapshotCount() >= 2 }, time.Second, time.Millisecond)
		cancel()
		assert.NoError(t, <-done)

		pending, ok := sink.gauge("overview.pending_attempts")
		require.True(t, ok)
		assert.InDelta(t, 12, pending, 0.001)

		recovery, ok := sink.gauge("overview.recovery_rate_30d")
		require.True(t, ok)
		assert.InDelta(t, 25, recovery, 0.001)
	})

	t.Run("keeps running after snapshot errors", func(t *testing.T) {
		snaps := &stubSnapshotter{err: errors.New("store down")}
		publisher, err := NewPublisher(PublisherOptions{Snapshots: snaps, Interval: 5 * time.Millisecond})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- publisher.Run(ctx) }()

		require.Eventually(t, func() bool { return snaps.snapshotCount() >= 3 }, time.Second, time.Millisecond)
		cancel()
		assert.NoError(t, <-done)
	})
}
