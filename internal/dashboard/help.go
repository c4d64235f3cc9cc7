package dashboard

import (
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rileyhilliard/gpuwatch/internal/input"
	"github.com/rileyhilliard/gpuwatch/internal/surface"
	"github.com/rileyhilliard/gpuwatch/internal/widget"
)

// HelpPanel covers the screen with the key bindings.
type HelpPanel struct {
	widget.Base

	lines []string
	theme Theme
}

// NewHelpPanel lays the bindings out once; the keymaps do not change while
// the dashboard runs.
func NewHelpPanel(bindings []key.Binding, theme Theme) *HelpPanel {
	h := &HelpPanel{
		Base:  widget.NewBase("help"),
		theme: theme,
	}
	h.lines = strings.Split(helpBox(bindings), "\n")
	return h
}

// helpBox renders the bindings as a bordered two-column table. Colors are
// applied cell by cell when painting, so the box is rendered without them.
func helpBox(bindings []key.Binding) string {
	width := 0
	for _, b := range bindings {
		width = max(width, lipgloss.Width(b.Help().Key))
	}

	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	keyCol := r.NewStyle().Width(width + 2)

	rows := []string{"gpuwatch key bindings", ""}
	for _, b := range bindings {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, keyCol.Render(b.Help().Key), b.Help().Desc))
	}
	rows = append(rows, "", "Press Esc, h or ? to return.")

	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 2)
	return box.Render(strings.Join(rows, "\n"))
}

func (h *HelpPanel) Press(ev input.MouseEvent) input.Action {
	if ev.Button == input.ButtonLeft && ev.Action == input.MousePress {
		return input.Do(input.ActionBack)
	}
	return input.Action{}
}

func (h *HelpPanel) Paint(s surface.Surface) {
	w, hgt := s.Size()
	boxW := 0
	for _, l := range h.lines {
		boxW = max(boxW, lipgloss.Width(l))
	}
	x := max(0, (w-boxW)/2)
	y := max(0, (hgt-len(h.lines))/2)

	for i, line := range h.lines {
		st := h.theme.Frame
		if i == 1 {
			st = h.theme.Title
		}
		surface.Print(s, x, y+i, line, st)
	}
}
