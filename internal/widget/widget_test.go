package widget

import (
	"testing"

	"github.com/muesli/termenv"
	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/rileyhilliard/gpuwatch/internal/input"
	"github.com/rileyhilliard/gpuwatch/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// box paints its fill rune and splits its area vertically among children.
type box struct {
	Base
	fill      rune
	value     int
	staged    int
	paints    int
	pokes     int
	destroyed bool
	order     *[]string
}

func newBox(name string, fill rune, order *[]string) *box {
	return &box{Base: NewBase(name), fill: fill, order: order}
}

func (b *box) Layout() {
	r := b.Rect()
	kids := b.Children()
	if len(kids) == 0 {
		return
	}
	h := (r.H - 1) / len(kids)
	for i, c := range kids {
		Resize(c, Rect{X: r.X + 1, Y: r.Y + 1 + i*h, W: r.W - 2, H: h})
	}
}

func (b *box) Poke() bool {
	b.pokes++
	if b.order != nil {
		*b.order = append(*b.order, b.Name())
	}
	if b.staged == b.value {
		return false
	}
	b.value = b.staged
	return true
}

func (b *box) Paint(s surface.Surface) {
	b.paints++
	w, _ := s.Size()
	surface.Fill(s, 0, 0, w, 1, b.fill, surface.Plain)
	if b.value > 0 {
		surface.Print(s, 0, 0, string(rune('0'+b.value)), surface.Plain)
	}
}

func (b *box) Press(ev input.MouseEvent) input.Action {
	return input.SelectRow(ev.Y)
}

func (b *box) Destroy() {
	b.destroyed = true
	if b.order != nil {
		*b.order = append(*b.order, "destroy:"+b.Name())
	}
}

func tree(t *testing.T) (root, left, right *box, order *[]string) {
	t.Helper()
	order = &[]string{}
	root = newBox("root", '=', order)
	left = newBox("left", 'L', order)
	right = newBox("right", 'R', order)
	require.NoError(t, Attach(left, root))
	require.NoError(t, Attach(right, root))
	Resize(root, Rect{W: 6, H: 5})
	return root, left, right, order
}

func TestAttachDetach(t *testing.T) {
	root, left, right, _ := tree(t)

	assert.Same(t, root.Node(), left.Parent())
	assert.Len(t, root.Children(), 2)

	Detach(left)
	assert.Nil(t, left.Parent())
	assert.Len(t, root.Children(), 1)

	require.NoError(t, Attach(left, right))
	assert.Same(t, right.Node(), left.Parent())

	require.NoError(t, Attach(left, root), "reattaching moves the node")
	assert.Empty(t, right.Children())
	assert.Len(t, root.Children(), 2)
}

func TestAttach_RejectsCycles(t *testing.T) {
	root, left, _, _ := tree(t)

	err := Attach(root, left)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInput))
	assert.Error(t, Attach(root, root))
}

func TestResize_TopDownAndClamped(t *testing.T) {
	root, left, right, _ := tree(t)

	assert.Equal(t, Rect{X: 1, Y: 1, W: 4, H: 2}, left.Rect())
	assert.Equal(t, Rect{X: 1, Y: 3, W: 4, H: 2}, right.Rect())

	right.SetMinSize(0, 3)
	Resize(root, Rect{W: 6, H: 5})
	assert.Equal(t, 3, right.Rect().H, "a widget may clamp to its minimum")
	assert.Equal(t, 2, left.Rect().H)
}

func TestPoke_PreOrderVisibleOnly(t *testing.T) {
	root, left, right, order := tree(t)
	right.SetVisible(false)
	left.staged = 3

	assert.True(t, Poke(root))
	assert.Equal(t, []string{"root", "left"}, *order)
	assert.True(t, left.Dirty())
	assert.Zero(t, right.pokes)

	*order = nil
	Draw(root, surface.NewCanvas(6, 5, termenv.Ascii), false)
	assert.False(t, Poke(root), "nothing new to pull")
	assert.False(t, NeedsDraw(root))
}

func TestDraw_OnlyDirtyWidgets(t *testing.T) {
	root, left, right, _ := tree(t)
	c := surface.NewCanvas(6, 5, termenv.Ascii)

	assert.Equal(t, 3, Draw(root, c, false))
	assert.Equal(t, []string{"======", " LLLL", "", " RRRR", ""}, c.Lines())

	right.staged = 7
	Poke(root)
	assert.Equal(t, 1, Draw(root, c, false))
	assert.Equal(t, 1, left.paints)
	assert.Equal(t, 2, right.paints)
	assert.Equal(t, " 7RRR", c.Lines()[3])

	assert.Equal(t, 3, Draw(root, c, true), "force repaints everything")
}

func TestDraw_ParentRepaintForcesChildren(t *testing.T) {
	root, left, _, _ := tree(t)
	c := surface.NewCanvas(6, 5, termenv.Ascii)
	Draw(root, c, false)

	root.MarkDirty()
	assert.Equal(t, 3, Draw(root, c, false))
	assert.Equal(t, 2, left.paints)
	assert.Equal(t, " LLLL", c.Lines()[1])
}

func TestDraw_Idempotent(t *testing.T) {
	root, left, _, _ := tree(t)
	left.staged = 4
	Poke(root)

	c := surface.NewCanvas(6, 5, termenv.Ascii)
	Draw(root, c, false)
	first := c.Render()

	assert.Zero(t, Draw(root, c, false))
	assert.Equal(t, first, c.Render())

	Draw(root, c, true)
	assert.Equal(t, first, c.Render(), "a forced repaint of unchanged state is identical")
}

func TestDraw_SkipsUnsizedAndHidden(t *testing.T) {
	root := newBox("root", '=', nil)
	c := surface.NewCanvas(4, 2, termenv.Ascii)
	assert.Zero(t, Draw(root, c, true), "no geometry yet")

	Resize(root, Rect{W: 4, H: 2})
	root.SetVisible(false)
	assert.Zero(t, Draw(root, c, true))
	root.SetVisible(true)
	assert.Equal(t, 1, Draw(root, c, false))
}

func TestSetVisible_DirtiesParent(t *testing.T) {
	root, left, _, _ := tree(t)
	Draw(root, surface.NewCanvas(6, 5, termenv.Ascii), false)

	left.SetVisible(false)
	assert.True(t, root.Dirty())
	assert.False(t, left.Visible())
}

func TestHitTest(t *testing.T) {
	root, left, right, _ := tree(t)

	assert.Same(t, left, HitTest(root, 2, 1).(*box), "inside a child resolves to the child")
	assert.Same(t, right, HitTest(root, 4, 4).(*box))
	assert.Same(t, root, HitTest(root, 0, 0).(*box), "outside every child resolves to the root")
	assert.Same(t, root, HitTest(root, 50, 50).(*box), "outside the root still falls back to it")

	right.SetVisible(false)
	assert.Same(t, root, HitTest(root, 4, 4).(*box), "hidden widgets are not hit")
}

func TestResolver_DeliversPress(t *testing.T) {
	root, _, _, _ := tree(t)
	d := input.NewDispatcher(input.NewKeyMaps())

	a := d.Mouse(input.MouseEvent{X: 2, Y: 3, Button: input.ButtonLeft}, Resolver(root))
	assert.Equal(t, input.SelectRow(3), a)
}

func TestDestroy_PreOrder(t *testing.T) {
	root, left, right, order := tree(t)

	Destroy(root)
	assert.True(t, left.destroyed)
	assert.True(t, right.destroyed)
	assert.Equal(t, []string{"destroy:root", "destroy:left", "destroy:right"}, *order)
}

func TestWalk_SkipSubtree(t *testing.T) {
	root, left, _, _ := tree(t)
	inner := newBox("inner", 'i', nil)
	require.NoError(t, Attach(inner, left))

	var seen []string
	Walk(root, func(w Widget) bool {
		seen = append(seen, w.Node().Name())
		return w.Node().Name() != "left"
	})
	assert.Equal(t, []string{"root", "left", "right"}, seen)
}

func TestRect(t *testing.T) {
	r := Rect{X: 1, Y: 1, W: 2, H: 2}
	assert.True(t, r.Contains(1, 1))
	assert.True(t, r.Contains(2, 2))
	assert.False(t, r.Contains(3, 1))
	assert.True(t, Rect{W: 0, H: 3}.Empty())
}
