package surface

import (
	"github.com/mattn/go-runewidth"
)

// Surface is a writable grid of styled cells. Writes outside the grid are
// ignored.
type Surface interface {
	Size() (width, height int)
	// SetCell writes r at (x, y). Wide runes occupy the next cell as well.
	SetCell(x, y int, r rune, st Style)
}

// Print writes text starting at (x, y) and returns the number of cells
// used. It stops at the right edge of the surface.
func Print(s Surface, x, y int, text string, st Style) int {
	w, h := s.Size()
	if y < 0 || y >= h {
		return 0
	}
	start := x
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if x+rw > w {
			break
		}
		if x >= 0 {
			s.SetCell(x, y, r, st)
		}
		x += rw
	}
	return x - start
}

// PrintWidth writes text padded with spaces or truncated with "..." to
// exactly width cells.
func PrintWidth(s Surface, x, y, width int, text string, st Style) {
	if width <= 0 {
		return
	}
	if runewidth.StringWidth(text) > width {
		text = runewidth.Truncate(text, width, "...")
	}
	n := Print(s, x, y, text, st)
	for ; n < width; n++ {
		s.SetCell(x+n, y, ' ', st)
	}
}

// Fill writes r over a rectangle.
func Fill(s Surface, x, y, width, height int, r rune, st Style) {
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			s.SetCell(col, row, r, st)
		}
	}
}

// Clear fills the whole surface with blanks in the default style.
func Clear(s Surface) {
	w, h := s.Size()
	Fill(s, 0, 0, w, h, ' ', Plain)
}

// Region is a clipped, translated view of a parent surface. Widgets paint
// into a Region covering their own bounds, so they cannot stray into a
// sibling.
type Region struct {
	parent        Surface
	x, y          int
	width, height int
}

// Sub returns the region of s at (x, y) with the given size, clipped to s.
func Sub(s Surface, x, y, width, height int) Region {
	pw, ph := s.Size()
	if x < 0 {
		width += x
		x = 0
	}
	if y < 0 {
		height += y
		y = 0
	}
	width = max(0, min(width, pw-x))
	height = max(0, min(height, ph-y))
	return Region{parent: s, x: x, y: y, width: width, height: height}
}

// Size returns the clipped size.
func (r Region) Size() (int, int) {
	return r.width, r.height
}

// SetCell writes relative to the region's origin.
func (r Region) SetCell(x, y int, ch rune, st Style) {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return
	}
	if x+runewidth.RuneWidth(ch) > r.width {
		ch = ' '
	}
	r.parent.SetCell(r.x+x, r.y+y, ch, st)
}
