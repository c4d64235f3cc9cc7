package input

// EventKind tags an Event.
type EventKind int

const (
	// EventNone is what a bounded wait returns when it times out.
	EventNone EventKind = iota
	EventKey
	EventMouse
	EventResize
)

// Event is one raw terminal event, independent of the terminal library
// that produced it.
type Event struct {
	Kind  EventKind
	Key   Key
	Mouse MouseEvent
	// Width and Height are set for EventResize.
	Width, Height int
}

// KeyEvent returns a key press event.
func KeyEvent(k Key) Event {
	return Event{Kind: EventKey, Key: k}
}

// MouseEventOf wraps a mouse event.
func MouseEventOf(m MouseEvent) Event {
	return Event{Kind: EventMouse, Mouse: m}
}

// ResizeEvent reports a new terminal size.
func ResizeEvent(width, height int) Event {
	return Event{Kind: EventResize, Width: width, Height: height}
}
