package surface

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/rileyhilliard/gpuwatch/internal/input"
)

// Screen is an interactive tcell terminal. It is both a Surface and the
// loop's event source.
type Screen struct {
	screen tcell.Screen
	events chan input.Event
	quit   chan struct{}
	styles map[Style]tcell.Style
	once   sync.Once
}

// OpenScreen takes over the controlling terminal.
func OpenScreen() (*Screen, error) {
	ts, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSurfaceInit,
			"Couldn't open the terminal",
			"Run in a terminal, or use --once for plain output")
	}
	return Open(ts)
}

// Open initializes ts and starts reading its events. Tests pass a
// tcell.SimulationScreen.
func Open(ts tcell.Screen) (*Screen, error) {
	if err := ts.Init(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSurfaceInit,
			"Couldn't initialize the terminal",
			"Check TERM, or use --once for plain output")
	}
	ts.EnableMouse(tcell.MouseButtonEvents)
	ts.HideCursor()
	ts.Clear()

	s := &Screen{
		screen: ts,
		events: make(chan input.Event, 16),
		quit:   make(chan struct{}),
		styles: make(map[Style]tcell.Style),
	}
	go s.read()
	return s, nil
}

func (s *Screen) read() {
	defer close(s.events)
	for {
		ev := s.screen.PollEvent()
		if ev == nil {
			return
		}
		converted, ok := convertEvent(ev)
		if !ok {
			continue
		}
		select {
		case s.events <- converted:
		case <-s.quit:
			return
		}
	}
}

// Next waits up to timeout for an event. A timeout returns an EventNone
// event. Once the terminal is closed Next returns an error.
func (s *Screen) Next(timeout time.Duration) (input.Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev, ok := <-s.events:
		if !ok {
			return input.Event{}, errors.New(errors.ErrSurfaceInit, "terminal event stream closed", "")
		}
		return ev, nil
	case <-timer.C:
		return input.Event{}, nil
	}
}

// Size implements Surface.
func (s *Screen) Size() (int, int) {
	return s.screen.Size()
}

// SetCell implements Surface.
func (s *Screen) SetCell(x, y int, r rune, st Style) {
	s.screen.SetContent(x, y, r, nil, s.style(st))
}

// Show flushes pending cell writes to the terminal.
func (s *Screen) Show() {
	s.screen.Show()
}

// Sync repaints the whole terminal, e.g. after Ctrl+L.
func (s *Screen) Sync() {
	s.screen.Sync()
}

// Close restores the terminal. It is safe to call more than once.
func (s *Screen) Close() {
	s.once.Do(func() {
		close(s.quit)
		s.screen.Fini()
	})
}

func (s *Screen) style(st Style) tcell.Style {
	if ts, ok := s.styles[st]; ok {
		return ts
	}
	ts := tcell.StyleDefault.
		Foreground(tcellColor(st.Fg)).
		Background(tcellColor(st.Bg)).
		Bold(st.Has(Bold)).
		Dim(st.Has(Dim)).
		Underline(st.Has(Underline)).
		Reverse(st.Has(Reverse))
	s.styles[st] = ts
	return ts
}

func tcellColor(c Color) tcell.Color {
	n := c.ansi()
	if n < 0 {
		return tcell.ColorDefault
	}
	return tcell.PaletteColor(n)
}

func convertEvent(ev tcell.Event) (input.Event, bool) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		k := keyName(ev)
		if k == "" {
			return input.Event{}, false
		}
		return input.KeyEvent(k), true
	case *tcell.EventMouse:
		x, y := ev.Position()
		m := input.MouseEvent{X: x, Y: y}
		btn := ev.Buttons()
		switch {
		case btn&tcell.WheelUp != 0:
			m.Button = input.WheelUp
		case btn&tcell.WheelDown != 0:
			m.Button = input.WheelDown
		case btn&tcell.Button1 != 0:
			m.Button = input.ButtonLeft
		case btn&tcell.Button2 != 0:
			m.Button = input.ButtonRight
		case btn&tcell.Button3 != 0:
			m.Button = input.ButtonMiddle
		default:
			m.Action = input.MouseRelease
		}
		return input.MouseEventOf(m), true
	case *tcell.EventResize:
		w, h := ev.Size()
		return input.ResizeEvent(w, h), true
	}
	return input.Event{}, false
}

var tcellKeyNames = map[tcell.Key]string{
	tcell.KeyEscape:     "esc",
	tcell.KeyEnter:      "enter",
	tcell.KeyUp:         "up",
	tcell.KeyDown:       "down",
	tcell.KeyLeft:       "left",
	tcell.KeyRight:      "right",
	tcell.KeyHome:       "home",
	tcell.KeyEnd:        "end",
	tcell.KeyPgUp:       "pgup",
	tcell.KeyPgDn:       "pgdown",
	tcell.KeyTab:        "tab",
	tcell.KeyBackspace:  "backspace",
	tcell.KeyBackspace2: "backspace",
}

// keyName maps a tcell key to the bubbletea naming input.Key uses.
func keyName(ev *tcell.EventKey) input.Key {
	if ev.Key() == tcell.KeyRune {
		r := ev.Rune()
		if ev.Modifiers()&tcell.ModCtrl != 0 && r >= 'a' && r <= 'z' {
			return input.KeyFromName("ctrl+" + string(r))
		}
		return input.Key(string(r))
	}
	if name, ok := tcellKeyNames[ev.Key()]; ok {
		return input.KeyFromName(name)
	}
	if k := ev.Key(); k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		return input.KeyFromName("ctrl+" + string(rune('a'+int(k-tcell.KeyCtrlA))))
	}
	return ""
}
