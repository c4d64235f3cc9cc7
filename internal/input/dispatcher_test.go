package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	actionX = Do(ActionQuit)
	actionY = Do(ActionRedraw)
)

func abDispatcher() *Dispatcher {
	maps := NewKeyMaps()
	maps.Global().MustBind("a", actionX).MustBind("ab", actionY)
	return NewDispatcher(maps, WithSequenceTimeout(100*time.Millisecond))
}

func TestDispatcher_PrefixTimesOutToShortBinding(t *testing.T) {
	d := abDispatcher()
	t0 := time.Unix(0, 0)

	_, fired := d.Key("a", t0)
	assert.False(t, fired)
	assert.Equal(t, Accumulating, d.State())

	_, fired = d.Tick(t0.Add(50 * time.Millisecond))
	assert.False(t, fired, "not yet timed out")

	a, fired := d.Tick(t0.Add(100 * time.Millisecond))
	require.True(t, fired)
	assert.Equal(t, actionX, a)
	assert.Equal(t, Idle, d.State())
}

func TestDispatcher_LongerSequenceWins(t *testing.T) {
	d := abDispatcher()
	t0 := time.Unix(0, 0)

	_, fired := d.Key("a", t0)
	assert.False(t, fired)

	a, fired := d.Key("b", t0.Add(10*time.Millisecond))
	require.True(t, fired)
	assert.Equal(t, actionY, a)
	assert.Equal(t, Idle, d.State())

	_, fired = d.Tick(t0.Add(time.Second))
	assert.False(t, fired, "nothing left to fire")
}

func TestDispatcher_UnboundKeyIsDropped(t *testing.T) {
	d := abDispatcher()

	_, fired := d.Key("z", time.Unix(0, 0))
	assert.False(t, fired)
	assert.Equal(t, Idle, d.State())
}

func TestDispatcher_NoMatchRetriesLastKey(t *testing.T) {
	maps := NewKeyMaps()
	maps.Global().MustBind("gg", Do(ActionSelectFirst)).MustBind("q", Do(ActionQuit))
	d := NewDispatcher(maps)
	t0 := time.Unix(0, 0)

	_, fired := d.Key("g", t0)
	assert.False(t, fired)

	a, fired := d.Key("q", t0)
	require.True(t, fired, "gq is unbound, so q is tried alone")
	assert.Equal(t, Do(ActionQuit), a)
	assert.Equal(t, Idle, d.State())
}

func TestDispatcher_PrefixOnlyTimesOutSilently(t *testing.T) {
	maps := NewKeyMaps()
	maps.Global().MustBind("gg", Do(ActionSelectFirst))
	d := NewDispatcher(maps)
	t0 := time.Unix(0, 0)

	d.Key("g", t0)
	deadline, ok := d.Deadline()
	require.True(t, ok)
	assert.Equal(t, t0.Add(DefaultSequenceTimeout), deadline)
	assert.Equal(t, "g", d.Pending())

	_, fired := d.Tick(deadline)
	assert.False(t, fired)
	assert.Equal(t, Idle, d.State())
}

func TestDispatcher_EscCancelsPending(t *testing.T) {
	d := abDispatcher()
	t0 := time.Unix(0, 0)

	d.Key("a", t0)
	_, fired := d.Key(KeyEsc, t0)
	assert.False(t, fired)
	assert.Equal(t, Idle, d.State())

	_, fired = d.Tick(t0.Add(time.Second))
	assert.False(t, fired)
}

type pressRecorder struct {
	name    string
	pressed []MouseEvent
}

func (p *pressRecorder) Press(ev MouseEvent) Action {
	p.pressed = append(p.pressed, ev)
	return SelectRow(ev.Y)
}

func TestDispatcher_MouseBypassesKeyBuffer(t *testing.T) {
	d := abDispatcher()
	target := &pressRecorder{name: "rows"}
	resolver := ResolverFunc(func(x, y int) Target { return target })

	d.Key("a", time.Unix(0, 0))
	a := d.Mouse(MouseEvent{X: 3, Y: 7, Button: ButtonLeft}, resolver)

	assert.Equal(t, SelectRow(7), a)
	require.Len(t, target.pressed, 1)
	assert.Equal(t, Accumulating, d.State(), "pending keys are untouched")
	assert.True(t, d.Mouse(MouseEvent{}, nil).IsNone())
}
