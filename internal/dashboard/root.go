package dashboard

import (
	"github.com/rileyhilliard/gpuwatch/internal/config"
	"github.com/rileyhilliard/gpuwatch/internal/surface"
	"github.com/rileyhilliard/gpuwatch/internal/widget"
)

// minProcessRows is the smallest process panel worth showing the history
// graphs above.
const minProcessRows = 6

// Root is the screen container. It owns the panels and decides their
// geometry; the panels never look at each other.
type Root struct {
	widget.Base

	device  *DevicePanel
	history *HistoryPanel
	process *ProcessPanel
	help    *HelpPanel
	state   *State

	// Layout inputs last applied.
	mode     string
	showHelp bool
	printing bool
}

// NewRoot attaches the panels in paint order.
func NewRoot(state *State, device *DevicePanel, hist *HistoryPanel, process *ProcessPanel, help *HelpPanel) (*Root, error) {
	r := &Root{
		Base:     widget.NewBase("root"),
		device:   device,
		history:  hist,
		process:  process,
		help:     help,
		state:    state,
		mode:     state.Mode,
		showHelp: state.ShowHelp,
	}
	for _, w := range []widget.Widget{device, hist, process, help} {
		if err := widget.Attach(w, r); err != nil {
			return nil, err
		}
	}
	help.SetVisible(false)
	return r, nil
}

// Compact reports whether the device table uses one row per device.
func (r *Root) Compact() bool {
	return r.device.Compact()
}

// compactFor decides the device layout for a terminal height.
func compactFor(mode string, devices, height int) bool {
	switch mode {
	case config.ModeCompact:
		return true
	case config.ModeFull:
		return false
	}
	return DeviceHeight(devices, false)+minProcessRows > height
}

func (r *Root) Layout() {
	rect := r.Rect()

	if r.printing {
		r.help.SetVisible(false)
		r.history.SetVisible(false)
		r.device.SetVisible(true)
		r.process.SetVisible(true)
		r.device.SetCompact(false)
		dh := r.device.Height()
		widget.Resize(r.device, widget.Rect{X: rect.X, Y: rect.Y, W: rect.W, H: dh})
		widget.Resize(r.process, widget.Rect{X: rect.X, Y: rect.Y + dh, W: rect.W, H: r.process.PrintHeight()})
		return
	}

	r.help.SetVisible(r.showHelp)
	r.device.SetVisible(!r.showHelp)
	r.process.SetVisible(!r.showHelp)
	if r.showHelp {
		r.history.SetVisible(false)
		widget.Resize(r.help, rect)
		return
	}

	r.device.SetCompact(compactFor(r.mode, r.device.count, rect.H))
	dh := r.device.Height()
	widget.Resize(r.device, widget.Rect{X: rect.X, Y: rect.Y, W: rect.W, H: dh})

	y, rest := rect.Y+dh, rect.H-dh
	showHistory := r.device.count > 0 && rest >= HistoryHeight+minProcessRows
	r.history.SetVisible(showHistory)
	if showHistory {
		widget.Resize(r.history, widget.Rect{X: rect.X, Y: y, W: rect.W, H: HistoryHeight})
		y += HistoryHeight
		rest -= HistoryHeight
	}
	widget.Resize(r.process, widget.Rect{X: rect.X, Y: y, W: rect.W, H: max(0, rest)})
}

// Poke publishes the process rows and re-lays the screen out when the mode
// or the help toggle changed. It runs before the panels are poked, so they
// all see the same selection and their new geometry.
func (r *Root) Poke() bool {
	r.process.refresh()
	if r.state.Mode == r.mode && r.state.ShowHelp == r.showHelp {
		return false
	}
	r.mode, r.showHelp = r.state.Mode, r.state.ShowHelp
	if r.Sized() {
		r.Layout()
	}
	return true
}

func (r *Root) Paint(surface.Surface) {}

func (r *Root) setPrinting(p bool) {
	r.printing = p
	r.device.setPrinting(p)
	r.process.setPrinting(p)
}

// printHeight is the height of the one-shot output.
func (r *Root) printHeight() int {
	return DeviceHeight(r.device.count, false) + r.process.PrintHeight()
}
