package dashboard

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
	"github.com/rileyhilliard/gpuwatch/internal/surface"
	"github.com/rileyhilliard/gpuwatch/internal/widget"
)

// PrintWidth is the one-shot output width for a terminal of termWidth
// columns: the fixed table, widened for bars when the terminal allows.
func PrintWidth(termWidth, devices int) int {
	if devices > 0 && termWidth >= BarWidth {
		return termWidth
	}
	return BaseWidth
}

// Print pokes the tree once and writes it to w as text: the device table
// and every process, no clock hint or history. termWidth is the output
// terminal's width, or 0 when unknown.
func (l *Loop) Print(w io.Writer, termWidth int, profile termenv.Profile) error {
	widget.Poke(l.root)

	l.root.setPrinting(true)
	defer l.root.setPrinting(false)

	width := PrintWidth(termWidth, l.root.device.count)
	height := l.root.printHeight()
	widget.Resize(l.root, widget.Rect{W: width, H: height})

	c := surface.NewCanvas(width, height, profile)
	widget.Draw(l.root, l.target(c), true)
	_, err := fmt.Fprintln(w, c.Render())
	return err
}
