package dashboard

import (
	"context"
	stderrors "errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/rileyhilliard/gpuwatch/internal/input"
	"github.com/rileyhilliard/gpuwatch/internal/surface"
)

// tickMsg is sent when the input wait times out. Only the tick of the
// current generation is live; older ones are dropped.
type tickMsg struct {
	gen int
}

// Model runs a Loop under bubbletea. Each message becomes one Step; the
// view is the canvas the loop draws on.
type Model struct {
	ctx    context.Context
	loop   *Loop
	canvas *surface.Canvas
	quit   bool
	gen    int
}

// NewModel wraps l. profile picks the colors the view is rendered with.
func NewModel(ctx context.Context, l *Loop, profile termenv.Profile) Model {
	return Model{
		ctx:    ctx,
		loop:   l,
		canvas: surface.NewCanvas(0, 0, profile),
	}
}

// Init schedules the first tick.
func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

// Update converts msg into an input event and steps the loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		ev         input.Event
		cmd        tea.Cmd
		reschedule bool
	)
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.canvas.Resize(msg.Width, msg.Height)
		ev = input.ResizeEvent(msg.Width, msg.Height)
	case tea.KeyMsg:
		ev = input.KeyEvent(input.KeyFromName(msg.String()))
	case tea.MouseMsg:
		ev = input.MouseEventOf(convertMouse(msg))
	case tickMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		reschedule = true
	default:
		return m, nil
	}

	f := m.loop.Step(m.canvas, ev, m.loop.now())
	// A key that leaves a sequence pending pulls the next tick in to its
	// deadline.
	if ev.Kind == input.EventKey {
		if _, ok := m.loop.dispatcher.Deadline(); ok {
			m.gen++
			reschedule = true
		}
	}
	if reschedule {
		cmd = m.tickCmd()
	}
	if ev.Kind == input.EventResize {
		m.loop.Start(m.ctx)
	}
	if f.Quit {
		m.quit = true
		return m, tea.Quit
	}
	if f.Full {
		return m, tea.Batch(cmd, tea.ClearScreen)
	}
	return m, cmd
}

// View renders the canvas.
func (m Model) View() string {
	if m.quit {
		return ""
	}
	return m.canvas.Render()
}

func (m Model) tickCmd() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.loop.Wait(m.loop.now()), func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func convertMouse(msg tea.MouseMsg) input.MouseEvent {
	ev := input.MouseEvent{X: msg.X, Y: msg.Y}
	switch msg.Button {
	case tea.MouseButtonLeft:
		ev.Button = input.ButtonLeft
	case tea.MouseButtonMiddle:
		ev.Button = input.ButtonMiddle
	case tea.MouseButtonRight:
		ev.Button = input.ButtonRight
	case tea.MouseButtonWheelUp:
		ev.Button = input.WheelUp
	case tea.MouseButtonWheelDown:
		ev.Button = input.WheelDown
	}
	switch msg.Action {
	case tea.MouseActionRelease:
		ev.Action = input.MouseRelease
	case tea.MouseActionMotion:
		ev.Action = input.MouseMotion
	default:
		ev.Action = input.MousePress
	}
	return ev
}

// RunTea runs the loop as a full-screen bubbletea program.
func (l *Loop) RunTea(ctx context.Context, profile termenv.Profile, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	}, opts...)

	p := tea.NewProgram(NewModel(ctx, l, profile), opts...)
	if _, err := p.Run(); err != nil {
		if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrSurfaceInit,
			"Terminal UI failed", "Try --backend tcell or --once")
	}
	return nil
}
