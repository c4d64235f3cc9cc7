package dashboard

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rileyhilliard/gpuwatch/internal/input"
	"github.com/rileyhilliard/gpuwatch/internal/snapshot"
	"github.com/rileyhilliard/gpuwatch/internal/surface"
	"github.com/rileyhilliard/gpuwatch/internal/telemetry"
	"github.com/rileyhilliard/gpuwatch/internal/widget"
)

// Rows above the first process: top border, title, column names, rule.
const processHeaderRows = 4

const noProcesses = "  No running processes found"

// ProcessPanel lists the GPU processes on the tracked devices.
type ProcessPanel struct {
	widget.Base

	pipeline *snapshot.Pipeline[snapshot.Process]
	// index maps device IDs to the index shown in the GPU column.
	index map[string]int
	theme Theme
	state *State

	printing bool

	// Live state, written by refresh, Poke and Layout only.
	procs    []snapshot.Process
	sortKey  SortKey
	reverse  bool
	selected string
	offset   int
	stale    bool
	// fresh is set when refresh replaced procs since the last Poke.
	fresh bool
}

// NewProcessPanel creates the panel for processes on devices.
func NewProcessPanel(p *snapshot.Pipeline[snapshot.Process], devices []telemetry.Device, theme Theme, state *State) *ProcessPanel {
	index := make(map[string]int, len(devices))
	for _, d := range devices {
		index[d.ID] = d.Index
	}
	return &ProcessPanel{
		Base:     widget.NewBase("process"),
		pipeline: p,
		index:    index,
		theme:    theme,
		state:    state,
		stale:    true,
	}
}

// StartPolling launches the background process poller.
func (p *ProcessPanel) StartPolling(ctx context.Context) {
	p.pipeline.Start(ctx)
}

func (p *ProcessPanel) setPrinting(v bool) {
	p.printing = v
	p.MarkDirty()
}

// PrintHeight is the height needed to show every process.
func (p *ProcessPanel) PrintHeight() int {
	return processHeaderRows + max(1, len(p.procs)) + 1
}

// visibleRows is how many process rows fit above the bottom border.
func (p *ProcessPanel) visibleRows() int {
	return max(0, p.Rect().H-processHeaderRows-1)
}

func (p *ProcessPanel) Layout() {
	p.scroll()
}

// refresh swaps in the latest process list and publishes its rows to the
// state. The root calls it before any panel is poked, so a selection that
// vanished is cleared before the other panels read it.
func (p *ProcessPanel) refresh() {
	swapped := p.pipeline.Buffer().Swap()
	if !swapped && !p.stale && p.sortKey == p.state.Sort && p.reverse == p.state.Reverse {
		return
	}
	p.stale = false
	p.sortKey, p.reverse = p.state.Sort, p.state.Reverse
	p.procs = sortProcesses(p.pipeline.Buffer().Current(), p.sortKey, p.reverse)

	rows := make([]Row, len(p.procs))
	for i, proc := range p.procs {
		rows[i] = Row{Key: proc.Key(), Device: proc.Ref.DeviceID}
	}
	p.state.SetRows(rows)
	p.fresh = true
}

func (p *ProcessPanel) Poke() bool {
	changed := p.fresh
	p.fresh = false

	if p.state.Selected != p.selected {
		p.selected = p.state.Selected
		changed = true
	}
	if p.scroll() {
		changed = true
	}
	return changed
}

// scroll keeps the selected row on screen and reports whether the offset moved.
func (p *ProcessPanel) scroll() bool {
	visible := p.visibleRows()
	offset := p.offset
	if sel := p.selectedIndex(); sel >= 0 && visible > 0 {
		if sel < offset {
			offset = sel
		}
		if sel >= offset+visible {
			offset = sel - visible + 1
		}
	}
	offset = max(0, min(offset, len(p.procs)-visible))
	moved := offset != p.offset
	p.offset = offset
	return moved
}

func (p *ProcessPanel) selectedIndex() int {
	if p.selected == "" {
		return -1
	}
	return slices.IndexFunc(p.procs, func(proc snapshot.Process) bool { return proc.Key() == p.selected })
}

func (p *ProcessPanel) Press(ev input.MouseEvent) input.Action {
	switch ev.Button {
	case input.WheelUp:
		return input.Do(input.ActionSelectPrev)
	case input.WheelDown:
		return input.Do(input.ActionSelectNext)
	case input.ButtonLeft:
		if ev.Action != input.MousePress {
			return input.Action{}
		}
		row := ev.Y - p.Rect().Y - processHeaderRows
		if row < 0 {
			return input.Action{}
		}
		if row >= p.visibleRows() || p.offset+row >= len(p.procs) {
			return input.Do(input.ActionClearSelection)
		}
		return input.SelectRow(p.offset + row)
	}
	return input.Action{}
}

func (p *ProcessPanel) Destroy() {
	p.pipeline.Stop()
}

func (p *ProcessPanel) Paint(s surface.Surface) {
	width := BaseWidth
	if p.Rect().W >= BarWidth {
		width = p.Rect().W
	}
	inner := width - 2

	title := " Processes:"
	if p.sortKey != SortNatural || p.reverse {
		order := "sorted by " + p.sortKey.String()
		if p.reverse {
			order += ", reversed"
		}
		title = padRight(title, inner-runewidth.StringWidth(order)-1) + order + " "
	}

	surface.Print(s, 0, 0, "╒"+strings.Repeat("═", inner)+"╕", p.theme.Frame)
	p.printRow(s, 1, inner, title, p.theme.Title)
	p.printRow(s, 2, inner, processLine("GPU", "PID", "TYPE", "USER", "GPU-MEM", "%CPU", "%MEM", "TIME", "COMMAND"), p.theme.Title)
	surface.Print(s, 0, 3, "╞"+strings.Repeat("═", inner)+"╡", p.theme.Frame)

	y := processHeaderRows
	if len(p.procs) == 0 {
		p.printRow(s, y, inner, noProcesses, p.theme.Frame)
		y++
	} else {
		visible := len(p.procs)
		if !p.printing {
			visible = p.visibleRows()
		}
		end := min(len(p.procs), p.offset+visible)
		start := p.offset
		if p.printing {
			start = 0
		}
		for i := start; i < end; i++ {
			proc := p.procs[i]
			st := p.theme.Frame
			if !p.printing && proc.Key() == p.selected {
				st = p.theme.Cursor
			}
			p.printRow(s, y, inner, p.formatRow(proc), st)
			y++
		}
	}
	surface.Print(s, 0, y, "╘"+strings.Repeat("═", inner)+"╛", p.theme.Frame)
}

func (p *ProcessPanel) printRow(s surface.Surface, y, inner int, text string, st surface.Style) {
	s.SetCell(0, y, '│', p.theme.Frame)
	surface.PrintWidth(s, 1, y, inner, text, st)
	s.SetCell(inner+1, y, '│', p.theme.Frame)
}

func (p *ProcessPanel) formatRow(proc snapshot.Process) string {
	gpu := "?"
	if idx, ok := p.index[proc.Ref.DeviceID]; ok {
		gpu = strconv.Itoa(idx)
	}
	return processLine(gpu, strconv.Itoa(proc.Ref.PID), proc.Ref.Type, proc.User,
		proc.GPUMemory, proc.CPUPercent, proc.MemPercent, proc.Elapsed, proc.Command)
}

func processLine(gpu, pid, typ, user, gpuMem, cpu, mem, elapsed, command string) string {
	return fmt.Sprintf(" %3s %7s %s %8s %8s %5s %5s %9s  %s",
		gpu, pid, center(typ, 4), cut(user, 8), gpuMem, cpu, mem, elapsed, command)
}

func cut(s string, width int) string {
	return runewidth.Truncate(s, width, "+")
}

// sortProcesses returns a sorted copy of procs. Ties keep provider order.
func sortProcesses(procs []snapshot.Process, key SortKey, reverse bool) []snapshot.Process {
	out := slices.Clone(procs)
	if key == SortNatural {
		if reverse {
			slices.Reverse(out)
		}
		return out
	}

	desc := key.descending() != reverse
	slices.SortStableFunc(out, func(a, b snapshot.Process) int {
		var c int
		switch key {
		case SortPID:
			c = cmp.Compare(a.Ref.PID, b.Ref.PID)
		case SortUser:
			c = strings.Compare(a.User, b.User)
		case SortGPUMemory:
			c = cmp.Compare(a.GPUMemoryBytes, b.GPUMemoryBytes)
		case SortCPU:
			c = cmp.Compare(a.CPU, b.CPU)
		case SortMemory:
			c = cmp.Compare(a.Mem, b.Mem)
		}
		if desc {
			return -c
		}
		return c
	})
	return out
}
