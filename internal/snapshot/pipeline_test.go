package snapshot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rileyhilliard/gpuwatch/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingTake returns the call number as its only item.
func countingTake(calls *atomic.Int32) TakeFunc[int] {
	return func(context.Context) ([]int, error) {
		n := calls.Add(1)
		return []int{int(n)}, nil
	}
}

func TestTakeSnapshots_DedupWindow(t *testing.T) {
	clock := newFakeClock()
	var calls atomic.Int32
	p := NewPipeline("test", countingTake(&calls), WithClock(clock.Now), WithLogger(logger.Noop()))
	ctx := context.Background()

	first, err := p.TakeSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, first)

	for _, step := range []time.Duration{100 * time.Millisecond, 400 * time.Millisecond, 499 * time.Millisecond} {
		clock.Advance(step)
		got, err := p.TakeSnapshots(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, got)
	}
	assert.Equal(t, int32(1), calls.Load(), "calls inside the window share one query")

	clock.Advance(time.Millisecond)
	got, err := p.TakeSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, got)

	clock.Advance(2 * time.Second)
	got, err = p.TakeSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTakeSnapshots_ConcurrentCallersShareOneQuery(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	take := func(context.Context) ([]int, error) {
		calls.Add(1)
		<-release
		return []int{7}, nil
	}
	p := NewPipeline("test", take, WithLogger(logger.Noop()))

	var wg sync.WaitGroup
	results := make([][]int, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = p.TakeSnapshots(context.Background())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, []int{7}, r)
	}
}

func TestTakeSnapshots_ErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	take := func(context.Context) ([]int, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("nvidia-smi timed out")
		}
		return []int{1}, nil
	}
	p := NewPipeline("test", take, WithClock(newFakeClock().Now), WithLogger(logger.Noop()))

	_, err := p.TakeSnapshots(context.Background())
	require.Error(t, err)

	got, err := p.TakeSnapshots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
}

func TestPrime(t *testing.T) {
	var calls atomic.Int32
	p := NewPipeline("test", countingTake(&calls), WithLogger(logger.Noop()))

	require.NoError(t, p.Prime(context.Background()))
	assert.Equal(t, []int{1}, p.Buffer().Current())
	assert.False(t, p.Running(), "priming does not start the poller")
}

func TestPoller_StagesUntilStopped(t *testing.T) {
	var calls atomic.Int32
	p := NewPipeline("test", countingTake(&calls),
		WithCadence(5*time.Millisecond),
		WithDedupWindow(0),
		WithLogger(logger.Noop()))

	p.Start(context.Background())
	p.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	require.True(t, p.Buffer().Swap())
	assert.NotEmpty(t, p.Buffer().Current())

	p.Stop()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not exit")
	}
	assert.False(t, p.Running())

	stoppedAt := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stoppedAt, calls.Load(), "no polls after Stop")
}

func TestPoller_StopFinishesInFlightQuery(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	take := func(context.Context) ([]int, error) {
		close(entered)
		<-release
		finished.Store(true)
		return []int{1}, nil
	}
	p := NewPipeline("test", take, WithCadence(time.Hour), WithLogger(logger.Noop()))
	p.Start(context.Background())

	<-entered
	p.Stop()
	close(release)
	<-p.Done()

	assert.True(t, finished.Load())
	assert.True(t, p.Buffer().Swap(), "the in-flight result is still staged")
}

func TestPoller_StopBeforeStart(t *testing.T) {
	var calls atomic.Int32
	p := NewPipeline("test", countingTake(&calls), WithLogger(logger.Noop()))

	p.Stop()
	p.Stop()
	<-p.Done()

	p.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestPoller_ContextCancel(t *testing.T) {
	var calls atomic.Int32
	p := NewPipeline("test", countingTake(&calls), WithCadence(time.Hour), WithLogger(logger.Noop()))

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	<-p.Done()
	assert.False(t, p.Running())
}

func TestPoller_LogsFailuresAndContinues(t *testing.T) {
	var calls atomic.Int32
	take := func(context.Context) ([]int, error) {
		calls.Add(1)
		return nil, errors.New("boom")
	}
	log := logger.NewBufferLogger()
	p := NewPipeline("test", take, WithCadence(2*time.Millisecond), WithLogger(log))

	p.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	p.Stop()
	<-p.Done()

	assert.True(t, log.HasLevel("warn"))
	assert.False(t, p.Buffer().Swap(), "failed polls stage nothing")
}
