package history

import (
	"iter"
	"strings"
)

// Glyphs are the cell characters a graph is drawn with.
type Glyphs struct {
	// Levels holds the partial fills from 1/N to a full cell.
	Levels []rune
	Empty  rune
}

// BlockGlyphs draws with the eight Unicode lower-block characters.
var BlockGlyphs = Glyphs{
	Levels: []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'},
	Empty:  ' ',
}

// ASCIIGlyphs is used when the terminal only supports ASCII. Its levels are
// sized so that any value shows '.', at least half shows ':' and full shows '#'.
var ASCIIGlyphs = Glyphs{
	Levels: []rune{'.', '.', '.', ':', ':', ':', ':', '#'},
	Empty:  ' ',
}

// Render returns the graph as height rows of width cells, top row first.
// See RenderWith.
func (s *Series) Render(width, height int) iter.Seq[string] {
	return s.RenderWith(width, height, BlockGlyphs)
}

// RenderWith lays the series capacity out across width columns and yields one
// string per row. Column i shows slot ceil((i+1)*cap/width)-1, so when
// several slots share a column the most recent one wins. Slots that were
// never recorded stay blank, which right-aligns a young series.
//
// The sequence is lazy and can be ranged over any number of times; each
// pass reads the series as it is at that moment.
func (s *Series) RenderWith(width, height int, g Glyphs) iter.Seq[string] {
	return func(yield func(string) bool) {
		if width <= 0 || height <= 0 {
			return
		}

		cols := s.columns(width)
		levels := len(g.Levels)
		total := height * levels

		var b strings.Builder
		for row := 0; row < height; row++ {
			b.Reset()
			floor := (height - 1 - row) * levels
			for _, v := range cols {
				if v < 0 {
					b.WriteRune(g.Empty)
					continue
				}
				filled := int(v/100*float64(total) + 0.5)
				// Keep a sliver visible for any non-zero sample.
				if filled == 0 && v > 0 {
					filled = 1
				}
				level := filled - floor
				switch {
				case level <= 0:
					b.WriteRune(g.Empty)
				case level >= levels:
					b.WriteRune(g.Levels[levels-1])
				default:
					b.WriteRune(g.Levels[level-1])
				}
			}
			if !yield(b.String()) {
				return
			}
		}
	}
}

// columns resamples the ring into width values; -1 marks an empty column.
func (s *Series) columns(width int) []float64 {
	out := make([]float64, width)
	values := s.Values()
	blank := s.size - len(values)

	for i := 0; i < width; i++ {
		slot := ceilDiv((i+1)*s.size, width) - 1
		if slot < blank {
			out[i] = -1
			continue
		}
		out[i] = values[slot-blank]
	}
	return out
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
