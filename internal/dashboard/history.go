package dashboard

import (
	"fmt"
	"slices"

	"github.com/rileyhilliard/gpuwatch/internal/history"
	"github.com/rileyhilliard/gpuwatch/internal/snapshot"
	"github.com/rileyhilliard/gpuwatch/internal/surface"
	"github.com/rileyhilliard/gpuwatch/internal/telemetry"
	"github.com/rileyhilliard/gpuwatch/internal/widget"
)

// HistoryHeight is one title row plus the graph rows.
const HistoryHeight = 5

// HistoryPanel graphs recent GPU and memory utilization of the selected
// device, or the first device when nothing is selected.
type HistoryPanel struct {
	widget.Base

	registry *history.Registry
	devices  []telemetry.Device
	gpu      snapshot.Thresholds
	mem      snapshot.Thresholds
	glyphs   history.Glyphs
	theme    Theme
	state    *State

	// Live state, written by Poke only. The series are private copies.
	focus  string
	label  string
	series [2]*history.Series
}

// NewHistoryPanel creates the panel. registry is fed by the device poller.
func NewHistoryPanel(registry *history.Registry, devices []telemetry.Device, gpu, mem snapshot.Thresholds,
	ascii bool, theme Theme, state *State) *HistoryPanel {
	glyphs := history.BlockGlyphs
	if ascii {
		glyphs = history.ASCIIGlyphs
	}
	return &HistoryPanel{
		Base:     widget.NewBase("history"),
		registry: registry,
		devices:  devices,
		gpu:      gpu,
		mem:      mem,
		glyphs:   glyphs,
		theme:    theme,
		state:    state,
	}
}

func (h *HistoryPanel) focusDevice() (telemetry.Device, bool) {
	if sel := h.state.SelectedDevice(); sel != "" {
		for _, d := range h.devices {
			if d.ID == sel {
				return d, true
			}
		}
	}
	if len(h.devices) == 0 {
		return telemetry.Device{}, false
	}
	return h.devices[0], true
}

func (h *HistoryPanel) Poke() bool {
	dev, ok := h.focusDevice()
	if !ok || h.registry == nil {
		return false
	}

	changed := dev.ID != h.focus
	h.focus = dev.ID
	h.label = dev.ID
	if dev.Host == "" {
		h.label = fmt.Sprintf("GPU %d", dev.Index)
	}

	for i, metric := range []string{history.MetricGPU, history.MetricMemory} {
		next := h.registry.Copy(history.Key{Entity: dev.ID, Metric: metric})
		if !sameSeries(h.series[i], next) {
			changed = true
		}
		h.series[i] = next
	}
	return changed
}

func sameSeries(a, b *history.Series) bool {
	if a == nil || b == nil {
		return a == b
	}
	return slices.Equal(a.Values(), b.Values())
}

func (h *HistoryPanel) Paint(s surface.Surface) {
	w := h.Rect().W
	half := (w - 1) / 2
	h.paintGraph(s, 0, half, "GPU-Util", h.series[0], h.gpu)
	h.paintGraph(s, half+1, w-half-1, "Memory", h.series[1], h.mem)
}

func (h *HistoryPanel) paintGraph(s surface.Surface, x, width int, title string, series *history.Series, th snapshot.Thresholds) {
	if width <= 0 {
		return
	}
	value := snapshot.NA
	st := h.theme.Muted
	if series != nil {
		if last, ok := series.Last(); ok {
			value = fmt.Sprintf("%.1f%%", last)
			st = h.theme.LoadStyle(th.Classify(last))
		}
	}
	label := fmt.Sprintf(" %s %s: %s", h.label, title, value)
	surface.PrintWidth(s, x, 0, width, label, h.theme.Title)

	if series == nil {
		return
	}
	y := 1
	for row := range series.RenderWith(width, HistoryHeight-1, h.glyphs) {
		surface.Print(s, x, y, row, st)
		y++
	}
}
