// Package snapshot turns telemetry into immutable per-poll records and moves
// them from background pollers to the foreground.
//
// A Pipeline owns one take function. TakeSnapshots collapses calls within the
// dedup window into one provider round trip; Start launches a poller that
// calls it on a fixed cadence and stages each result in the Buffer, which the
// panel swaps in from its Poke.
package snapshot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/gpuwatch/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Default timings.
const (
	DefaultDedupWindow = time.Second
	DefaultCadence     = 700 * time.Millisecond
)

// TakeFunc queries every tracked entity once and returns the derived
// snapshots. It runs off the foreground and may block.
type TakeFunc[T any] func(ctx context.Context) ([]T, error)

// Pipeline deduplicates take calls and polls them in the background.
type Pipeline[T any] struct {
	name    string
	take    TakeFunc[T]
	window  time.Duration
	cadence time.Duration
	now     func() time.Time
	log     logger.Logger

	group singleflight.Group

	mu     sync.Mutex
	last   []T
	lastAt time.Time
	taken  bool

	buf *Buffer[T]

	// running is checked by the poller at the top of every cycle.
	running atomic.Bool

	lifecycle sync.Mutex
	started   bool
	stopped   bool
	stop      chan struct{}
	done      chan struct{}
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	window  time.Duration
	cadence time.Duration
	now     func() time.Time
	log     logger.Logger
}

// WithDedupWindow sets how long a result is reused.
func WithDedupWindow(d time.Duration) Option {
	return func(o *options) { o.window = d }
}

// WithCadence sets the background poll interval.
func WithCadence(d time.Duration) Option {
	return func(o *options) { o.cadence = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets where poll failures are reported.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewPipeline creates a stopped pipeline. name labels its log lines.
func NewPipeline[T any](name string, take TakeFunc[T], opts ...Option) *Pipeline[T] {
	o := options{
		window:  DefaultDedupWindow,
		cadence: DefaultCadence,
		now:     time.Now,
		log:     logger.NewEnvLogger("[" + name + "]"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cadence <= 0 {
		o.cadence = DefaultCadence
	}

	return &Pipeline[T]{
		name:    name,
		take:    take,
		window:  o.window,
		cadence: o.cadence,
		now:     o.now,
		log:     o.log,
		buf:     NewBuffer[T](nil),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Buffer returns the pipeline's double buffer.
func (p *Pipeline[T]) Buffer() *Buffer[T] {
	return p.buf
}

// TakeSnapshots returns fresh snapshots, or the previous result if it is
// younger than the dedup window. Concurrent callers share one take.
func (p *Pipeline[T]) TakeSnapshots(ctx context.Context) ([]T, error) {
	if items, ok := p.cached(); ok {
		return items, nil
	}

	v, err, _ := p.group.Do(p.name, func() (interface{}, error) {
		// A caller that queued behind a finished take reuses its result.
		if items, ok := p.cached(); ok {
			return items, nil
		}
		items, err := p.take(ctx)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.last = items
		p.lastAt = p.now()
		p.taken = true
		p.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

func (p *Pipeline[T]) cached() ([]T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.taken && p.now().Sub(p.lastAt) < p.window {
		return p.last, true
	}
	return nil, false
}

// Prime takes snapshots synchronously and makes them current, so a panel
// can lay itself out before the poller starts.
func (p *Pipeline[T]) Prime(ctx context.Context) error {
	items, err := p.TakeSnapshots(ctx)
	if err != nil {
		return err
	}
	p.buf.Stage(items)
	p.buf.Swap()
	return nil
}

// Start launches the background poller. Later calls, and calls after Stop,
// do nothing.
func (p *Pipeline[T]) Start(ctx context.Context) {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.started || p.stopped {
		return
	}
	p.started = true
	p.running.Store(true)
	go p.loop(ctx)
}

// Running reports whether the poller is active.
func (p *Pipeline[T]) Running() bool {
	return p.running.Load()
}

// Stop asks the poller to exit. It returns at once; an in-flight take is
// allowed to finish and the poller exits at its next cycle boundary.
func (p *Pipeline[T]) Stop() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true
	p.running.Store(false)
	close(p.stop)
	if !p.started {
		close(p.done)
	}
}

// Done is closed once the poller has exited (or was never started and Stop
// was called).
func (p *Pipeline[T]) Done() <-chan struct{} {
	return p.done
}

func (p *Pipeline[T]) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.cadence)
	defer ticker.Stop()

	for {
		if !p.running.Load() {
			return
		}

		start := time.Now()
		items, err := p.TakeSnapshots(ctx)
		switch {
		case err != nil:
			p.log.Warn("poll failed: %v", err)
		default:
			p.buf.Stage(items)
			p.log.Debug("polled %d item(s) in %s", len(items), time.Since(start).Round(time.Millisecond))
		}

		select {
		case <-ticker.C:
		case <-p.stop:
			return
		case <-ctx.Done():
			p.running.Store(false)
			return
		}
	}
}
