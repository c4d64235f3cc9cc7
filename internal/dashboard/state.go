package dashboard

import (
	"github.com/rileyhilliard/gpuwatch/internal/config"
	"github.com/rileyhilliard/gpuwatch/internal/input"
)

// SortKey orders the process list.
type SortKey int

const (
	// SortNatural keeps provider order: by device, then as listed.
	SortNatural SortKey = iota
	SortPID
	SortUser
	SortGPUMemory
	SortCPU
	SortMemory
	sortKeyCount
)

var sortNames = [...]string{"natural", "pid", "user", "gpu-mem", "cpu", "mem"}

func (k SortKey) String() string {
	if k < 0 || k >= sortKeyCount {
		return "natural"
	}
	return sortNames[k]
}

// descending reports whether k naturally lists its largest values first.
func (k SortKey) descending() bool {
	return k == SortGPUMemory || k == SortCPU || k == SortMemory
}

// Row is one selectable process row: its key and the device it runs on.
type Row struct {
	Key    string
	Device string
}

// State is everything actions can change. Only Apply writes to it, apart
// from the root publishing the process rows at the start of each poke.
type State struct {
	Mode     string
	ShowHelp bool
	Quit     bool
	// Redraw asks the loop to repaint the whole screen once.
	Redraw  bool
	Sort    SortKey
	Reverse bool
	// Selected is the key of the selected process, or empty.
	Selected string

	rows []Row
}

// NewState returns the state a dashboard starts in.
func NewState(mode string) *State {
	if mode == "" {
		mode = config.ModeAuto
	}
	return &State{Mode: mode}
}

// Rows returns the process rows in display order.
func (s *State) Rows() []Row {
	return s.rows
}

// SetRows publishes the displayed rows. A selection whose process is gone
// is cleared.
func (s *State) SetRows(rows []Row) {
	s.rows = rows
	if s.Selected != "" && s.SelectedIndex() < 0 {
		s.Selected = ""
	}
}

// SelectedIndex returns the row index of the selection, or -1.
func (s *State) SelectedIndex() int {
	if s.Selected == "" {
		return -1
	}
	for i, r := range s.rows {
		if r.Key == s.Selected {
			return i
		}
	}
	return -1
}

// SelectedDevice returns the device ID of the selected process, or empty.
func (s *State) SelectedDevice() string {
	if i := s.SelectedIndex(); i >= 0 {
		return s.rows[i].Device
	}
	return ""
}

func (s *State) selectIndex(i int) {
	if len(s.rows) == 0 {
		s.Selected = ""
		return
	}
	i = max(0, min(i, len(s.rows)-1))
	s.Selected = s.rows[i].Key
}

// Apply performs a on s. Every key binding and mouse press ends up here.
func Apply(a input.Action, s *State) {
	switch a.Kind {
	case input.ActionQuit:
		s.Quit = true
	case input.ActionToggleHelp:
		s.ShowHelp = !s.ShowHelp
	case input.ActionBack:
		if s.ShowHelp {
			s.ShowHelp = false
			return
		}
		s.Selected = ""
	case input.ActionRedraw:
		s.Redraw = true
	case input.ActionSelectNext:
		if i := s.SelectedIndex(); i >= 0 {
			s.selectIndex(i + 1)
		} else {
			s.selectIndex(0)
		}
	case input.ActionSelectPrev:
		if i := s.SelectedIndex(); i >= 0 {
			s.selectIndex(i - 1)
		} else {
			s.selectIndex(len(s.rows) - 1)
		}
	case input.ActionSelectFirst:
		s.selectIndex(0)
	case input.ActionSelectLast:
		s.selectIndex(len(s.rows) - 1)
	case input.ActionSelectRow:
		if a.Row >= 0 && a.Row < len(s.rows) {
			s.Selected = s.rows[a.Row].Key
		}
	case input.ActionClearSelection:
		s.Selected = ""
	case input.ActionCycleSort:
		s.Sort = (s.Sort + 1) % sortKeyCount
		s.Reverse = false
	case input.ActionReverseSort:
		s.Reverse = !s.Reverse
	case input.ActionModeAuto:
		s.Mode = config.ModeAuto
	case input.ActionModeFull:
		s.Mode = config.ModeFull
	case input.ActionModeCompact:
		s.Mode = config.ModeCompact
	}
}
