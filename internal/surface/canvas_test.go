package surface

import (
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrint_ClipsAtRightEdge(t *testing.T) {
	c := NewCanvas(5, 1, termenv.Ascii)

	n := Print(c, 2, 0, "hello", Plain)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"  hel"}, c.Lines())

	assert.Zero(t, Print(c, 0, 3, "x", Plain), "rows outside the grid are ignored")
}

func TestPrint_WideRunes(t *testing.T) {
	c := NewCanvas(6, 1, termenv.Ascii)

	n := Print(c, 0, 0, "日本語", Plain)
	assert.Equal(t, 6, n)
	assert.Equal(t, "日本語", c.String())

	c.SetCell(1, 0, 'x', Plain)
	assert.Equal(t, " x本語", c.String(), "overwriting half of a wide rune blanks the other half")
}

func TestPrintWidth(t *testing.T) {
	c := NewCanvas(10, 2, termenv.Ascii)
	c.SetCell(9, 0, '#', Plain)

	PrintWidth(c, 0, 0, 10, "short", Plain)
	PrintWidth(c, 0, 1, 8, "a much longer text", Plain)

	assert.Equal(t, []string{"short", "a muc..."}, c.Lines())
	r, _ := c.Cell(9, 0)
	assert.Equal(t, ' ', r, "padding overwrites stale cells")
}

func TestRegion_TranslatesAndClips(t *testing.T) {
	c := NewCanvas(8, 3, termenv.Ascii)
	r := Sub(c, 2, 1, 10, 10)

	w, h := r.Size()
	assert.Equal(t, 6, w)
	assert.Equal(t, 2, h)

	Print(r, 0, 0, "abcdefghij", Plain)
	r.SetCell(-1, 0, 'x', Plain)
	r.SetCell(0, 5, 'x', Plain)

	assert.Equal(t, []string{"", "  abcdef", ""}, c.Lines())
}

func TestRegion_WideRuneAtEdge(t *testing.T) {
	c := NewCanvas(4, 1, termenv.Ascii)
	r := Sub(c, 0, 0, 2, 1)

	assert.Equal(t, 1, Print(r, 0, 0, "a日", Plain))
	r.SetCell(1, 0, '日', Plain)

	assert.Equal(t, "a", c.String())
}

func TestSub_NegativeOrigin(t *testing.T) {
	c := NewCanvas(4, 4, termenv.Ascii)
	r := Sub(c, -2, -1, 4, 3)

	w, h := r.Size()
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)
}

func TestFillAndClear(t *testing.T) {
	c := NewCanvas(3, 2, termenv.Ascii)
	Fill(c, 0, 0, 3, 2, '#', Plain.Foreground(Red))
	assert.Equal(t, []string{"###", "###"}, c.Lines())

	Clear(c)
	assert.Equal(t, []string{"", ""}, c.Lines())
}

func TestCanvas_RenderPlain(t *testing.T) {
	c := NewCanvas(6, 2, termenv.Ascii)
	Print(c, 0, 0, "GPU", Plain.With(Bold).Foreground(Green))
	Print(c, 1, 1, "ok", Plain)

	assert.Equal(t, "GPU\n ok", c.Render())
}

func TestCanvas_RenderColors(t *testing.T) {
	c := NewCanvas(4, 1, termenv.ANSI)
	Print(c, 0, 0, "ab", Plain.Foreground(Red))
	Print(c, 2, 0, "cd", Plain.Foreground(Green).With(Bold))

	out := c.Render()
	require.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "ab")
	assert.Contains(t, out, "cd")
	assert.Less(t, indexOf(out, "ab"), indexOf(out, "cd"))
}

func TestCanvas_ResizeBlanks(t *testing.T) {
	c := NewCanvas(2, 1, termenv.Ascii)
	Print(c, 0, 0, "xx", Plain)
	c.Resize(3, 2)

	w, h := c.Size()
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, h)
	assert.Equal(t, []string{"", ""}, c.Lines())
}

func TestStyle(t *testing.T) {
	st := Plain.Foreground(Yellow).Background(Blue).With(Bold | Dim)

	assert.True(t, st.Has(Bold))
	assert.True(t, st.Has(Bold|Dim))
	assert.False(t, st.Has(Reverse))
	assert.Equal(t, -1, Default.ansi())
	assert.Equal(t, 1, Red.ansi())
	assert.Equal(t, 8, Gray.ansi())
	assert.Equal(t, 15, BrightWhite.ansi())
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
