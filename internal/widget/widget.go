// Package widget is the display tree: nodes with geometry, a dirty flag
// and owned children, plus the pre-order traversals the main loop runs
// over them.
//
// A container owns its children. The parent link is a plain lookup
// reference and never keeps a node alive. Only Poke may change a widget's
// live state; Paint reads it and must produce the same cells every time
// it runs against the same state.
package widget

import (
	"fmt"
	"slices"

	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/rileyhilliard/gpuwatch/internal/input"
	"github.com/rileyhilliard/gpuwatch/internal/surface"
)

// Rect is a cell rectangle in absolute screen coordinates.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether (x, y) is inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && y >= r.Y && x < r.X+r.W && y < r.Y+r.H
}

// Empty reports whether r covers no cells.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Widget is one node of the display tree. Concrete widgets embed Base for
// the bookkeeping and default hooks, then implement Paint.
type Widget interface {
	Node() *Base
	// Layout positions children after this widget's geometry changed. It
	// may only look at its own size, never at siblings.
	Layout()
	// Poke pulls the latest state and reports whether anything changed.
	Poke() bool
	// Paint draws into a surface that covers exactly the widget's bounds.
	Paint(s surface.Surface)
	// Press handles a mouse event resolved to this widget.
	Press(ev input.MouseEvent) input.Action
	// Destroy releases owned background work.
	Destroy()
}

// Base carries the tree bookkeeping shared by every widget.
type Base struct {
	name     string
	parent   *Base
	children []Widget
	rect     Rect
	sized    bool
	hidden   bool
	dirty    bool

	minWidth, minHeight int
}

// NewBase creates a visible, dirty node that has no geometry yet.
func NewBase(name string) Base {
	return Base{name: name, dirty: true}
}

// Node returns the bookkeeping of an embedding widget.
func (n *Base) Node() *Base { return n }

// Layout is a no-op for leaves.
func (n *Base) Layout() {}

// Poke reports no change.
func (n *Base) Poke() bool { return false }

// Press ignores the event.
func (n *Base) Press(input.MouseEvent) input.Action { return input.Action{} }

// Destroy has nothing to release.
func (n *Base) Destroy() {}

func (n *Base) Name() string { return n.name }

// Parent returns the containing node, or nil for the root.
func (n *Base) Parent() *Base { return n.parent }

// Children returns the owned children in paint order.
func (n *Base) Children() []Widget { return slices.Clone(n.children) }

// Rect returns the geometry set by the last Resize.
func (n *Base) Rect() Rect { return n.rect }

// Sized reports whether the node has been given geometry.
func (n *Base) Sized() bool { return n.sized }

// Visible reports whether the node is drawn.
func (n *Base) Visible() bool { return !n.hidden }

// SetVisible shows or hides the node. The parent is marked dirty so the
// area behind a hidden node gets repainted.
func (n *Base) SetVisible(v bool) {
	if n.hidden == !v {
		return
	}
	n.hidden = !v
	n.dirty = true
	if n.parent != nil {
		n.parent.dirty = true
	}
}

// Dirty reports whether a redraw is due.
func (n *Base) Dirty() bool { return n.dirty }

// MarkDirty schedules a redraw.
func (n *Base) MarkDirty() { n.dirty = true }

// SetMinSize declares the smallest geometry the node accepts.
func (n *Base) SetMinSize(width, height int) {
	n.minWidth, n.minHeight = max(0, width), max(0, height)
}

// MinSize returns the declared minimum geometry.
func (n *Base) MinSize() (int, int) { return n.minWidth, n.minHeight }

// Attach makes child the last child of parent, detaching it from any
// previous parent first.
func Attach(child, parent Widget) error {
	c, p := child.Node(), parent.Node()
	for a := p; a != nil; a = a.parent {
		if a == c {
			return errors.New(errors.ErrInput,
				fmt.Sprintf("cannot attach %q under its own descendant %q", c.name, p.name), "")
		}
	}
	if c.parent != nil {
		Detach(child)
	}
	c.parent = p
	p.children = append(p.children, child)
	p.dirty = true
	return nil
}

// Detach removes w from its parent. The subtree under w stays intact.
func Detach(w Widget) {
	n := w.Node()
	p := n.parent
	if p == nil {
		return
	}
	p.children = slices.DeleteFunc(p.children, func(c Widget) bool { return c.Node() == n })
	p.dirty = true
	n.parent = nil
}

// Resize sets w's geometry, clamped to its minimum size, marks it dirty and
// lets it lay out its children. Containers call Resize on their children
// from Layout, so geometry flows top-down.
func Resize(w Widget, r Rect) {
	n := w.Node()
	r.W = max(r.W, n.minWidth)
	r.H = max(r.H, n.minHeight)
	n.rect = r
	n.sized = true
	n.dirty = true
	w.Layout()
}

// Walk visits the tree pre-order. Returning false from fn skips the
// widget's children.
func Walk(root Widget, fn func(Widget) bool) {
	if !fn(root) {
		return
	}
	for _, c := range root.Node().children {
		Walk(c, fn)
	}
}

// Poke pokes every visible widget pre-order and marks changed ones dirty.
// It reports whether any widget changed.
func Poke(root Widget) bool {
	changed := false
	Walk(root, func(w Widget) bool {
		n := w.Node()
		if n.hidden {
			return false
		}
		if w.Poke() {
			n.dirty = true
			changed = true
		}
		return true
	})
	return changed
}

// NeedsDraw reports whether any visible widget is dirty.
func NeedsDraw(root Widget) bool {
	dirty := false
	Walk(root, func(w Widget) bool {
		n := w.Node()
		if n.hidden || dirty {
			return false
		}
		dirty = n.dirty
		return true
	})
	return dirty
}

// Draw paints dirty widgets pre-order, or every widget when force is set.
// A repainted widget forces its subtree, since its blank fill covers the
// children's cells. Widgets without geometry are skipped. Draw returns the
// number of widgets painted.
func Draw(root Widget, s surface.Surface, force bool) int {
	return draw(root, s, force)
}

func draw(w Widget, s surface.Surface, force bool) int {
	n := w.Node()
	if n.hidden || !n.sized {
		return 0
	}
	painted := 0
	repaint := force || n.dirty
	if repaint {
		r := n.rect
		region := surface.Sub(s, r.X, r.Y, r.W, r.H)
		rw, rh := region.Size()
		surface.Fill(region, 0, 0, rw, rh, ' ', surface.Plain)
		w.Paint(region)
		n.dirty = false
		painted++
	}
	for _, c := range n.children {
		painted += draw(c, s, repaint)
	}
	return painted
}

// Destroy tears the tree down pre-order, stopping any background work the
// widgets own.
func Destroy(root Widget) {
	Walk(root, func(w Widget) bool {
		w.Destroy()
		return true
	})
}

// HitTest returns the innermost visible widget containing (x, y). Later
// children are on top. When no child contains the point, root is returned.
func HitTest(root Widget, x, y int) Widget {
	if hit := hitTest(root, x, y); hit != nil {
		return hit
	}
	return root
}

func hitTest(w Widget, x, y int) Widget {
	n := w.Node()
	if n.hidden || !n.sized || !n.rect.Contains(x, y) {
		return nil
	}
	for i := len(n.children) - 1; i >= 0; i-- {
		if hit := hitTest(n.children[i], x, y); hit != nil {
			return hit
		}
	}
	return w
}

// Resolver adapts HitTest for the input dispatcher.
func Resolver(root Widget) input.Resolver {
	return input.ResolverFunc(func(x, y int) input.Target {
		return HitTest(root, x, y)
	})
}
