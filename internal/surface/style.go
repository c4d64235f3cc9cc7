// Package surface is the character-cell grid the dashboard paints on.
//
// Widgets write cells with an explicit Style and never read them back.
// Canvas keeps the grid in memory for one-shot text output and the
// bubbletea view; Screen writes straight to a tcell terminal.
package surface

// Color is one of the 16 ANSI colors, or Default.
type Color int

const (
	Default Color = iota
	Black
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
	Gray
	BrightRed
	BrightGreen
	BrightYellow
	BrightBlue
	BrightMagenta
	BrightCyan
	BrightWhite
)

// ansi returns the ANSI palette index, or -1 for Default.
func (c Color) ansi() int {
	switch {
	case c == Default:
		return -1
	case c <= White:
		return int(c - Black)
	default:
		return int(c-Gray) + 8
	}
}

// Attr is a set of text attributes.
type Attr uint8

const (
	Bold Attr = 1 << iota
	Dim
	Underline
	Reverse
)

// Style is the explicit styling of one cell.
type Style struct {
	Fg    Color
	Bg    Color
	Attrs Attr
}

// Plain is the terminal's default style.
var Plain = Style{}

// Foreground returns s with fg set.
func (s Style) Foreground(fg Color) Style {
	s.Fg = fg
	return s
}

// Background returns s with bg set.
func (s Style) Background(bg Color) Style {
	s.Bg = bg
	return s
}

// With returns s with attrs added.
func (s Style) With(attrs Attr) Style {
	s.Attrs |= attrs
	return s
}

// Has reports whether every attribute in attrs is set.
func (s Style) Has(attrs Attr) bool {
	return s.Attrs&attrs == attrs
}
