package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/paste-harvester/internal/crawler"
)

type scriptedCycler struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (c *scriptedCycler) RunCycle(context.Context) (crawler.CycleReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	var err error
	if len(c.errs) > 0 {
		err, c.errs = c.errs[0], c.errs[1:]
	}
	report := crawler.CycleReport{RunID: "run", State: crawler.StateStopped, StopReason: crawler.StopRangeExhausted}
	if err != nil {
		report.StopReason = crawler.StopNetworkError
		report.Error = err.Error()
	}
	return report, err
}

// cancelingSleeper cancels the run after a fixed number of sleeps.
type cancelingSleeper struct {
	after  int
	cancel context.CancelFunc
	slept  []time.Duration
}

func (s *cancelingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	if len(s.slept) >= s.after {
		s.cancel()
		return ctx.Err()
	}
	return nil
}

func TestRunLoopsUntilCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, logs := observer.New(zapcore.InfoLevel)
	cycler := &scriptedCycler{errs: []error{errors.New("tor down")}}
	sleeper := &cancelingSleeper{after: 3, cancel: cancel}
	s := New(cycler, sleeper, 90*time.Minute, zap.New(core))

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 3, cycler.calls, "a failed cycle does not end the loop")
	assert.Equal(t, []time.Duration{90 * time.Minute, 90 * time.Minute, 90 * time.Minute}, sleeper.slept)
	assert.Equal(t, 3, s.Cycles())

	assert.Equal(t, 3, logs.FilterMessage("Sleeping for the next 1.5 hours").Len())
	assert.Equal(t, 1, logs.FilterMessage("crawl cycle failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("runtime stopped").Len())

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, crawler.StopRangeExhausted, last.StopReason)
}

func TestRunStopsWhenCanceledDuringCycle(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sleeper := &cancelingSleeper{after: 1, cancel: func() {}}
	cycler := &scriptedCycler{errs: []error{context.Canceled}}
	s := New(cycler, sleeper, time.Hour, nil)

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 1, cycler.calls)
	assert.Empty(t, sleeper.slept)
}

type failingSleeper struct{ err error }

func (f failingSleeper) Sleep(context.Context, time.Duration) error { return f.err }

func TestRunSurfacesSleeperFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("timer broken")
	s := New(&scriptedCycler{}, failingSleeper{err: boom}, time.Hour, nil)
	err := s.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunOnceRecordsReport(t *testing.T) {
	t.Parallel()

	s := New(&scriptedCycler{}, failingSleeper{}, time.Hour, nil)
	_, ok := s.Last()
	assert.False(t, ok)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run", report.RunID)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, report, last)
	assert.Equal(t, 1, s.Cycles())
}

func TestWindowLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: time.Hour, want: "1 hour"},
		{in: 2 * time.Hour, want: "2 hours"},
		{in: 30 * time.Minute, want: "0.5 hour"},
		{in: 90 * time.Minute, want: "1.5 hours"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, windowLabel(tt.in))
	}
}
