package input

// MouseButton identifies which button or wheel direction an event carries.
type MouseButton int

const (
	ButtonNone MouseButton = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight
	WheelUp
	WheelDown
)

// MouseAction distinguishes presses from releases and motion.
type MouseAction int

const (
	MousePress MouseAction = iota
	MouseRelease
	MouseMotion
)

// MouseEvent is a pointer event in absolute screen cells.
type MouseEvent struct {
	X, Y   int
	Button MouseButton
	Action MouseAction
}

// Target receives a resolved mouse press.
type Target interface {
	Press(ev MouseEvent) Action
}

// Resolver maps a screen point to the target under it.
type Resolver interface {
	Resolve(x, y int) Target
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(x, y int) Target

// Resolve calls f.
func (f ResolverFunc) Resolve(x, y int) Target {
	return f(x, y)
}
