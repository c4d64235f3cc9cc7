package dashboard

import (
	"context"
	"time"

	"github.com/rileyhilliard/gpuwatch/internal/config"
	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/rileyhilliard/gpuwatch/internal/history"
	"github.com/rileyhilliard/gpuwatch/internal/input"
	"github.com/rileyhilliard/gpuwatch/internal/logger"
	"github.com/rileyhilliard/gpuwatch/internal/snapshot"
	"github.com/rileyhilliard/gpuwatch/internal/surface"
	"github.com/rileyhilliard/gpuwatch/internal/telemetry"
	"github.com/rileyhilliard/gpuwatch/internal/widget"
)

// Deps are the collaborators a dashboard is built from.
type Deps struct {
	Provider telemetry.Provider
	Info     telemetry.ProcessInfoProvider
	// Devices are the tracked devices, already filtered.
	Devices  []telemetry.Device
	Versions telemetry.Versions
	// History receives samples from the device poller. A registry with
	// the default capacity is created when nil.
	History *history.Registry
	// Now defaults to time.Now.
	Now func() time.Time
	Log logger.Logger
}

// Frame reports what one Step did.
type Frame struct {
	// Painted counts the widgets repainted.
	Painted int
	// Full is set when the whole screen was repainted and should be
	// resent to the terminal.
	Full bool
	Quit bool
}

// Loop drives the widget tree: input in, actions applied, panels poked,
// dirty widgets drawn. It is not safe for concurrent use; only the pollers
// it starts run in the background.
type Loop struct {
	cfg        config.Config
	state      *State
	root       *Root
	dispatcher *input.Dispatcher
	now        func() time.Time
	log        logger.Logger

	started bool
	frames  int
}

// New builds the screen and takes the first snapshots synchronously, so
// the initial layout has data. Pollers start later, with Start.
func New(ctx context.Context, cfg config.Config, deps Deps) (*Loop, error) {
	log := deps.Log
	if log == nil {
		log = logger.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	registry := deps.History
	if registry == nil {
		registry = history.NewRegistry(history.DefaultCapacity)
	}

	opts := []snapshot.Option{
		snapshot.WithCadence(cfg.Cadence),
		snapshot.WithDedupWindow(cfg.DedupWindow),
		snapshot.WithClock(now),
		snapshot.WithLogger(log),
	}
	devSource := snapshot.DeviceSource{
		Provider: deps.Provider,
		Devices:  deps.Devices,
		GPU:      cfg.GPUThresholds(),
		Memory:   cfg.MemoryThresholds(),
		History:  registry,
		Log:      log,
	}
	procSource := snapshot.ProcessSource{
		Provider: deps.Provider,
		Info:     deps.Info,
		Devices:  deps.Devices,
		Filter:   cfg.ProcessFilter(),
		Log:      log,
	}
	devices := snapshot.NewPipeline("devices", devSource.Take, opts...)
	procs := snapshot.NewPipeline("processes", procSource.Take, opts...)

	if err := devices.Prime(ctx); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrProviderUnavailable,
			"Failed to query devices", "Check that nvidia-smi works")
	}
	if err := procs.Prime(ctx); err != nil {
		log.Warn("initial process list: %v", err)
	}

	maps, err := NewKeyMaps(cfg.Keys)
	if err != nil {
		return nil, err
	}
	dispatcher := input.NewDispatcher(maps,
		input.WithSequenceTimeout(cfg.KeyTimeout),
		input.WithDispatcherLogger(log))

	theme := NewTheme(cfg.LightTheme())
	state := NewState(cfg.Mode)
	root, err := NewRoot(state,
		NewDevicePanel(devices, len(deps.Devices), deps.Versions, theme, state, now),
		NewHistoryPanel(registry, deps.Devices, cfg.GPUThresholds(), cfg.MemoryThresholds(), cfg.ASCII, theme, state),
		NewProcessPanel(procs, deps.Devices, theme, state),
		NewHelpPanel(HelpBindings(maps), theme),
	)
	if err != nil {
		return nil, err
	}

	return &Loop{
		cfg:        cfg,
		state:      state,
		root:       root,
		dispatcher: dispatcher,
		now:        now,
		log:        log,
	}, nil
}

// State exposes the dashboard state, for tests and drivers.
func (l *Loop) State() *State { return l.state }

// Root returns the widget tree.
func (l *Loop) Root() *Root { return l.root }

// Frames counts the steps that painted something.
func (l *Loop) Frames() int { return l.frames }

type poller interface {
	StartPolling(ctx context.Context)
}

// Start launches every panel's background poller. Only the first call
// does anything. Drivers call it after the first frame is on screen.
func (l *Loop) Start(ctx context.Context) {
	if l.started {
		return
	}
	l.started = true
	widget.Walk(l.root, func(w widget.Widget) bool {
		if p, ok := w.(poller); ok {
			p.StartPolling(ctx)
		}
		return true
	})
}

// Close stops the pollers and tears the tree down.
func (l *Loop) Close() {
	widget.Destroy(l.root)
}

// Wait is how long the next input read may block: the tick interval, or
// less when a pending key sequence is about to time out.
func (l *Loop) Wait(now time.Time) time.Duration {
	wait := l.cfg.Interval
	if wait <= 0 {
		wait = config.DefaultConfig().Interval
	}
	if deadline, ok := l.dispatcher.Deadline(); ok {
		if d := deadline.Sub(now); d < wait {
			wait = max(d, time.Millisecond)
		}
	}
	return wait
}

// Step handles one event (EventNone when the wait timed out) and redraws
// what changed onto s.
func (l *Loop) Step(s surface.Surface, ev input.Event, now time.Time) Frame {
	if a, ok := l.dispatcher.Tick(now); ok {
		Apply(a, l.state)
	}

	full := false
	switch ev.Kind {
	case input.EventKey:
		if a, ok := l.dispatcher.Key(ev.Key, now); ok {
			Apply(a, l.state)
		}
	case input.EventMouse:
		Apply(l.dispatcher.Mouse(ev.Mouse, widget.Resolver(l.root)), l.state)
	case input.EventResize:
		widget.Resize(l.root, widget.Rect{W: ev.Width, H: ev.Height})
		full = true
	}

	l.syncScreen()
	if l.state.Quit {
		return Frame{Quit: true}
	}

	widget.Poke(l.root)
	if l.state.Redraw {
		l.state.Redraw = false
		full = true
	}
	if !l.root.Sized() {
		return Frame{}
	}

	painted := widget.Draw(l.root, l.target(s), full)
	if painted > 0 {
		l.frames++
	}
	return Frame{Painted: painted, Full: full}
}

// syncScreen keeps the active keymap in line with the help toggle.
func (l *Loop) syncScreen() {
	maps := l.dispatcher.Maps()
	switch active := maps.Active(); {
	case l.state.ShowHelp && active != ScreenHelp:
		l.dispatcher.Cancel()
		if err := maps.Push(ScreenHelp); err != nil {
			l.log.Warn("switching keymap: %v", err)
		}
	case !l.state.ShowHelp && active == ScreenHelp:
		l.dispatcher.Cancel()
		maps.Pop()
	}
}

func (l *Loop) target(s surface.Surface) surface.Surface {
	if l.cfg.ASCII {
		return ASCII(s)
	}
	return s
}

// Screen is an interactive terminal: a surface plus a bounded-wait event
// source. surface.Screen implements it.
type Screen interface {
	surface.Surface
	Next(timeout time.Duration) (input.Event, error)
	Show()
	Sync()
}

// Run drives sc until quit, ctx cancellation or a terminal error.
func (l *Loop) Run(ctx context.Context, sc Screen) error {
	w, h := sc.Size()
	f := l.Step(sc, input.ResizeEvent(w, h), l.now())
	sc.Show()
	l.Start(ctx)

	for !f.Quit {
		if ctx.Err() != nil {
			return nil
		}
		ev, err := sc.Next(l.Wait(l.now()))
		if err != nil {
			return err
		}
		f = l.Step(sc, ev, l.now())
		switch {
		case f.Full:
			sc.Sync()
		case f.Painted > 0:
			sc.Show()
		}
	}
	return nil
}
