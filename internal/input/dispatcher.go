package input

import (
	"time"

	"github.com/rileyhilliard/gpuwatch/internal/logger"
)

// DefaultSequenceTimeout is how long a pending sequence that is both bound
// and a prefix of a longer binding waits before firing.
const DefaultSequenceTimeout = 500 * time.Millisecond

// State of the key dispatcher.
type State int

const (
	// Idle means no keys are pending.
	Idle State = iota
	// Accumulating means a prefix of some binding is pending.
	Accumulating
)

func (s State) String() string {
	if s == Accumulating {
		return "accumulating"
	}
	return "idle"
}

// Dispatcher resolves keys against stacked keymaps and mouse events
// against a widget tree. It is used from the foreground loop only.
type Dispatcher struct {
	maps    *KeyMaps
	timeout time.Duration
	log     logger.Logger

	buf      KeyBuffer
	pending  Action
	hasExact bool
	deadline time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSequenceTimeout overrides DefaultSequenceTimeout.
func WithSequenceTimeout(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) {
		if d > 0 {
			x.timeout = d
		}
	}
}

// WithDispatcherLogger sets where dropped sequences are reported.
func WithDispatcherLogger(l logger.Logger) DispatcherOption {
	return func(x *Dispatcher) { x.log = l }
}

// NewDispatcher creates an idle dispatcher over maps.
func NewDispatcher(maps *KeyMaps, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		maps:    maps,
		timeout: DefaultSequenceTimeout,
		log:     logger.Noop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Maps returns the keymaps the dispatcher consults.
func (d *Dispatcher) Maps() *KeyMaps {
	return d.maps
}

// State returns Idle or Accumulating.
func (d *Dispatcher) State() State {
	if d.buf.Len() == 0 {
		return Idle
	}
	return Accumulating
}

// Pending returns the buffered keys, e.g. "g" while waiting for "gg".
func (d *Dispatcher) Pending() string {
	return d.buf.String()
}

// Deadline returns when a pending sequence times out.
func (d *Dispatcher) Deadline() (time.Time, bool) {
	if d.buf.Len() == 0 {
		return time.Time{}, false
	}
	return d.deadline, true
}

// Cancel drops any pending keys.
func (d *Dispatcher) Cancel() {
	d.reset()
}

// Key feeds one key press. It returns the action to apply, or false when
// nothing fired (the key was buffered or dropped). Callers run Tick first
// so an expired sequence fires before the next key extends it.
func (d *Dispatcher) Key(k Key, now time.Time) (Action, bool) {
	if k == "" {
		return Action{}, false
	}
	if d.buf.Len() > 0 && k == KeyEsc {
		d.log.Debug("sequence %q cancelled", d.buf.String())
		d.reset()
		return Action{}, false
	}

	d.buf.Push(k)
	m := d.maps.Lookup(d.buf.Keys())
	switch {
	case m.Exact && !m.Prefix:
		d.reset()
		return m.Action, true
	case m.Prefix:
		d.pending = m.Action
		d.hasExact = m.Exact
		d.deadline = now.Add(d.timeout)
		return Action{}, false
	}

	// No binding starts with the buffer. Drop it and retry the last key
	// alone unless it already was alone.
	dropped := d.buf.String()
	single := d.buf.Len() == 1
	d.reset()
	d.log.Debug("dropped key sequence %q", dropped)
	if single {
		return Action{}, false
	}
	return d.Key(k, now)
}

// Tick fires a pending exact match whose timeout passed, or drops a pending
// prefix that never completed. Call it whenever the input wait times out.
func (d *Dispatcher) Tick(now time.Time) (Action, bool) {
	if d.buf.Len() == 0 || now.Before(d.deadline) {
		return Action{}, false
	}
	a, exact := d.pending, d.hasExact
	if !exact {
		d.log.Debug("key sequence %q timed out", d.buf.String())
	}
	d.reset()
	return a, exact
}

// Mouse resolves ev to a target and delivers it as a press. Pending keys
// are left alone.
func (d *Dispatcher) Mouse(ev MouseEvent, r Resolver) Action {
	if r == nil {
		return Action{}
	}
	t := r.Resolve(ev.X, ev.Y)
	if t == nil {
		return Action{}
	}
	return t.Press(ev)
}

func (d *Dispatcher) reset() {
	d.buf.Clear()
	d.pending = Action{}
	d.hasExact = false
	d.deadline = time.Time{}
}
