package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/rileyhilliard/gpuwatch/internal/snapshot"
	"github.com/rileyhilliard/gpuwatch/internal/surface"
	"github.com/rileyhilliard/gpuwatch/internal/telemetry"
	"github.com/rileyhilliard/gpuwatch/internal/widget"
)

const (
	clockFormat = "Mon Jan 02 15:04:05 2006"
	helpHint    = "(Press h for help or q to quit)"
)

// DevicePanel shows the clock, the driver versions and one table entry per
// tracked device.
type DevicePanel struct {
	widget.Base

	pipeline *snapshot.Pipeline[snapshot.Device]
	versions telemetry.Versions
	count    int
	mig      bool
	theme    Theme
	state    *State
	now      func() time.Time

	compact  bool
	printing bool

	// Live state, written by Poke only.
	devices  []snapshot.Device
	clock    time.Time
	selected string
	stale    bool
}

// NewDevicePanel creates the panel for count devices. The pipeline should
// already be primed so the MIG column can be decided up front.
func NewDevicePanel(p *snapshot.Pipeline[snapshot.Device], count int, versions telemetry.Versions,
	theme Theme, state *State, now func() time.Time) *DevicePanel {
	d := &DevicePanel{
		Base:     widget.NewBase("device"),
		pipeline: p,
		versions: versions,
		count:    count,
		theme:    theme,
		state:    state,
		now:      now,
		devices:  p.Buffer().Current(),
		stale:    true,
	}
	for _, dev := range d.devices {
		if dev.MIGMode != snapshot.NA {
			d.mig = true
		}
	}
	d.SetMinSize(BaseWidth, DeviceHeight(count, false))
	return d
}

// SetCompact switches between one and two rows per device.
func (d *DevicePanel) SetCompact(compact bool) {
	if d.compact == compact {
		return
	}
	d.compact = compact
	d.SetMinSize(BaseWidth, d.Height())
	d.MarkDirty()
}

// Compact reports the current layout.
func (d *DevicePanel) Compact() bool { return d.compact }

// Height is the panel height in the current layout.
func (d *DevicePanel) Height() int {
	return DeviceHeight(d.count, d.compact)
}

func (d *DevicePanel) setPrinting(p bool) {
	d.printing = p
	d.MarkDirty()
}

// StartPolling launches the background device poller.
func (d *DevicePanel) StartPolling(ctx context.Context) {
	d.pipeline.Start(ctx)
}

func (d *DevicePanel) Poke() bool {
	changed := d.stale
	d.stale = false

	if d.pipeline.Buffer().Swap() {
		d.devices = d.pipeline.Buffer().Current()
		changed = true
	}
	if now := d.now().Truncate(time.Second); !now.Equal(d.clock) {
		d.clock = now
		changed = true
	}
	if sel := d.state.SelectedDevice(); sel != d.selected {
		d.selected = sel
		changed = true
	}
	return changed
}

func (d *DevicePanel) Destroy() {
	d.pipeline.Stop()
}

func (d *DevicePanel) Paint(s surface.Surface) {
	width := max(BaseWidth, d.Rect().W)
	compact := d.compact && !d.printing

	if !d.printing {
		hint := padLeft(helpHint, BaseWidth)
		surface.Print(s, 0, 0, hint, d.theme.Frame)
		accent := surface.Plain.Foreground(d.theme.Accent).With(surface.Bold)
		s.SetCell(55, 0, 'h', accent)
		s.SetCell(69, 0, 'q', accent)
	}
	surface.Print(s, 0, 0, d.clock.Format(clockFormat), d.theme.Frame)

	for y, line := range frameLines(d.versions.Driver, d.versions.CUDA, d.count, compact, d.mig, width) {
		surface.Print(s, 0, y+1, line, d.theme.Frame)
	}

	bars := width >= BarWidth
	extra := width - BaseWidth
	rows := rowsPerDevice(compact)
	selected := d.selected
	if d.printing {
		selected = ""
	}

	for i, dev := range d.devices {
		y := 4 + rows*(i+1)
		var attr surface.Attr
		if selected != "" {
			attr = surface.Dim
			if dev.ID() == selected {
				attr = surface.Bold
			}
		}
		load := d.theme.LoadStyle(dev.Load).With(attr)

		for j, line := range d.deviceLines(dev, compact) {
			printSegments(s, y+j, line, load, d.theme.Frame)
		}
		if bars {
			d.paintBars(s, i, y, extra, dev, attr, compact)
		}
	}
}

// deviceLines formats one device's table rows.
func (d *DevicePanel) deviceLines(dev snapshot.Device, compact bool) []string {
	if compact {
		return []string{fmt.Sprintf("│ %3d %3s %4s %3s %12s │ %20s │ %7s  %11s │",
			dev.Ref.Index, dev.FanSpeed, dev.Temperature, dev.PerformanceState, dev.PowerStatus,
			dev.MemoryUsage, dev.GPUUtilization, dev.ComputeMode)}
	}

	ecc := fmt.Sprintf("%20s", dev.ECCErrors)
	if d.mig {
		ecc = fmt.Sprintf("%8s  %10s", dev.MIGMode, dev.ECCErrors)
	}
	return []string{
		fmt.Sprintf("│ %3d  %-18s  %-4s │ %-16s %3s │ %s │",
			dev.Ref.Index, dev.Name, dev.PersistenceMode, dev.BusID, dev.DisplayActive, ecc),
		fmt.Sprintf("│ %3s  %4s  %4s  %12s │ %20s │ %7s  %11s │",
			dev.FanSpeed, dev.Temperature, dev.PerformanceState, dev.PowerStatus,
			dev.MemoryUsage, dev.GPUUtilization, dev.ComputeMode),
	}
}

func (d *DevicePanel) paintBars(s surface.Surface, i, y, extra int, dev snapshot.Device, attr surface.Attr, compact bool) {
	mem := d.theme.LoadStyle(dev.MemoryLoad).With(attr)
	gpu := d.theme.LoadStyle(dev.GPULoad).With(attr)

	if !compact {
		surface.Print(s, 80, y, makeBar("MEM", dev.MemoryPercent, dev.MemoryKnown, true, extra-3), mem)
		surface.Print(s, 80, y+1, makeBar("UTL", dev.GPUPercent, dev.GPUKnown, false, extra-3), gpu)
		return
	}
	if extra < 44 {
		surface.Print(s, 80, y, makeBar("MEM", dev.MemoryPercent, dev.MemoryKnown, true, extra-3), mem)
		return
	}

	left := (extra-6+1)/2 - 1
	right := (extra-6)/2 + 1
	surface.Print(s, 80, y, makeBar("MEM", dev.MemoryPercent, dev.MemoryKnown, true, left), mem)
	surface.Print(s, 80+left+3, y, makeBar("UTL", dev.GPUPercent, dev.GPUKnown, false, right), gpu)

	x := 80 + left + 1
	joint := '┼'
	if i == 0 {
		joint = '╤'
	}
	s.SetCell(x, y-1, joint, d.theme.Frame)
	s.SetCell(x, y, '│', d.theme.Frame)
	if i == len(d.devices)-1 {
		s.SetCell(x, y+1, '╧', d.theme.Frame)
	}
}

// Column ranges inside the three table cells.
var segments = [][2]int{{1, 32}, {33, 55}, {56, 78}}

// printSegments prints a table row with the cell contents in st and the
// borders in frame.
func printSegments(s surface.Surface, y int, line string, st, frame surface.Style) {
	x := 0
	for _, r := range line {
		style := frame
		for _, seg := range segments {
			if x >= seg[0] && x < seg[1] {
				style = st
				break
			}
		}
		s.SetCell(x, y, r, style)
		x += max(1, runewidth.RuneWidth(r))
	}
}
