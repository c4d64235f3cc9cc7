package surface

import (
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

type cell struct {
	r  rune
	st Style
	// wide marks the right half of a double-width rune.
	wide bool
}

// Canvas is an in-memory Surface. It renders to styled text for one-shot
// output and for the bubbletea view.
type Canvas struct {
	width, height int
	cells         []cell
	renderer      *lipgloss.Renderer
	styles        map[Style]lipgloss.Style
}

// NewCanvas creates a blank canvas that renders with the given color
// profile. termenv.Ascii renders plain text.
func NewCanvas(width, height int, profile termenv.Profile) *Canvas {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(profile)
	c := &Canvas{renderer: r, styles: make(map[Style]lipgloss.Style)}
	c.Resize(width, height)
	return c
}

// Size returns the grid size.
func (c *Canvas) Size() (int, int) {
	return c.width, c.height
}

// Resize reallocates the grid and blanks it.
func (c *Canvas) Resize(width, height int) {
	c.width, c.height = max(0, width), max(0, height)
	c.cells = make([]cell, c.width*c.height)
	for i := range c.cells {
		c.cells[i].r = ' '
	}
}

// SetCell implements Surface.
func (c *Canvas) SetCell(x, y int, r rune, st Style) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	i := y*c.width + x
	// Overwriting either half of a wide rune blanks the other half.
	if c.cells[i].wide && x > 0 {
		c.cells[i-1] = cell{r: ' ', st: c.cells[i-1].st}
	}
	if x+1 < c.width && c.cells[i+1].wide {
		c.cells[i+1] = cell{r: ' ', st: c.cells[i+1].st}
	}

	c.cells[i] = cell{r: r, st: st}
	if runewidth.RuneWidth(r) == 2 && x+1 < c.width {
		c.cells[i+1] = cell{st: st, wide: true}
	}
}

// Cell returns the rune and style at (x, y). Painting code never calls it;
// it exists for tests and diffing.
func (c *Canvas) Cell(x, y int) (rune, Style) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return 0, Plain
	}
	cl := c.cells[y*c.width+x]
	return cl.r, cl.st
}

// Lines returns the unstyled text of each row with trailing blanks removed.
func (c *Canvas) Lines() []string {
	lines := make([]string, c.height)
	for y := range c.height {
		var b strings.Builder
		for _, cl := range c.row(y) {
			if !cl.wide {
				b.WriteRune(cl.r)
			}
		}
		lines[y] = strings.TrimRight(b.String(), " ")
	}
	return lines
}

// String returns Lines joined by newlines.
func (c *Canvas) String() string {
	return strings.Join(c.Lines(), "\n")
}

// Render returns the styled text of the whole grid, one line per row.
// Runs of equally styled cells are rendered together and trailing default
// blanks are dropped.
func (c *Canvas) Render() string {
	var out strings.Builder
	for y := range c.height {
		row := c.row(y)
		end := len(row)
		for end > 0 && row[end-1].r == ' ' && row[end-1].st == Plain {
			end--
		}

		var run strings.Builder
		runStyle := Plain
		flush := func() {
			if run.Len() == 0 {
				return
			}
			out.WriteString(c.style(runStyle).Render(run.String()))
			run.Reset()
		}
		for _, cl := range row[:end] {
			if cl.wide {
				continue
			}
			if cl.st != runStyle {
				flush()
				runStyle = cl.st
			}
			run.WriteRune(cl.r)
		}
		flush()
		if y < c.height-1 {
			out.WriteByte('\n')
		}
	}
	return out.String()
}

func (c *Canvas) row(y int) []cell {
	return c.cells[y*c.width : (y+1)*c.width]
}

func (c *Canvas) style(st Style) lipgloss.Style {
	if s, ok := c.styles[st]; ok {
		return s
	}
	s := c.renderer.NewStyle().
		Bold(st.Has(Bold)).
		Faint(st.Has(Dim)).
		Underline(st.Has(Underline)).
		Reverse(st.Has(Reverse))
	if n := st.Fg.ansi(); n >= 0 {
		s = s.Foreground(lipgloss.Color(strconv.Itoa(n)))
	}
	if n := st.Bg.ansi(); n >= 0 {
		s = s.Background(lipgloss.Color(strconv.Itoa(n)))
	}
	c.styles[st] = s
	return s
}
