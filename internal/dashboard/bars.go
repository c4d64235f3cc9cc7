package dashboard

import (
	"fmt"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rileyhilliard/gpuwatch/internal/surface"
)

var partialBlocks = []rune(" ▏▎▍▌▋▊▉")

// makeBar renders "PREFIX: ████▌ 42.5%" left-justified to width cells.
// Fractions of a cell use the eighth blocks. An unknown value draws a
// shaded track ending in N/A. decimal shows one decimal place when it fits.
func makeBar(prefix string, percent float64, known, decimal bool, width int) string {
	bar := prefix + ": "
	track := width - runewidth.StringWidth(bar) - 4

	if !known {
		bar += strings.Repeat("░", max(0, track)) + " N/A"
		return padRight(bar, width)
	}

	percent = max(0, min(percent, 100))
	units := max(1, int(math.Round(8*float64(track)*percent/100)))
	bar += strings.Repeat("█", units/8)
	if r := units % 8; r > 0 {
		bar += string(partialBlocks[r])
	}

	label := fmt.Sprintf(" %.1f%%", percent)
	if !decimal || runewidth.StringWidth(bar+label) > width {
		label = fmt.Sprintf(" %d%%", int(math.Round(percent)))
		if math.Round(percent) >= 100 {
			label = " MAX"
		}
	}
	return padRight(bar+label, width)
}

func padRight(s string, width int) string {
	if w := runewidth.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func padLeft(s string, width int) string {
	if w := runewidth.StringWidth(s); w < width {
		return strings.Repeat(" ", width-w) + s
	}
	return s
}

func center(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-w-left)
}

// asciiRunes maps the box drawing and block characters to plain ASCII.
var asciiRunes = map[rune]rune{
	'╒': '+', '╕': '+', '╘': '+', '╛': '+',
	'╭': '+', '╮': '+', '╰': '+', '╯': '+',
	'╞': '+', '╡': '+', '╪': '+', '╧': '+', '╤': '+',
	'├': '+', '┤': '+', '┼': '+', '┬': '+', '┴': '+',
	'═': '=', '─': '-', '│': '|',
	'█': '#', '░': '.',
	'▏': '|', '▎': '|', '▍': '|', '▌': '|', '▋': '|', '▊': '|', '▉': '|',
	'▁': '_', '▂': '_', '▃': '.', '▄': ':', '▅': ':', '▆': ':', '▇': '#',
}

// asciiSurface rewrites non-ASCII drawing characters as it writes.
type asciiSurface struct {
	surface.Surface
}

func (a asciiSurface) SetCell(x, y int, r rune, st surface.Style) {
	if m, ok := asciiRunes[r]; ok {
		r = m
	}
	a.Surface.SetCell(x, y, r, st)
}

// ASCII wraps s so everything painted through it is plain ASCII line art.
func ASCII(s surface.Surface) surface.Surface {
	return asciiSurface{s}
}
