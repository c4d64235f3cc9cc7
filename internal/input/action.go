package input

import (
	"fmt"

	"github.com/rileyhilliard/gpuwatch/internal/errors"
)

// ActionKind tags what an Action does. Behaviour lives in one apply
// function on the dashboard side; bindings only carry the tag.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionQuit
	ActionToggleHelp
	ActionBack
	ActionRedraw
	ActionSelectPrev
	ActionSelectNext
	ActionSelectFirst
	ActionSelectLast
	ActionSelectRow
	ActionClearSelection
	ActionCycleSort
	ActionReverseSort
	ActionModeAuto
	ActionModeFull
	ActionModeCompact
)

var actionNames = map[ActionKind]string{
	ActionNone:           "none",
	ActionQuit:           "quit",
	ActionToggleHelp:     "help",
	ActionBack:           "back",
	ActionRedraw:         "redraw",
	ActionSelectPrev:     "select-prev",
	ActionSelectNext:     "select-next",
	ActionSelectFirst:    "select-first",
	ActionSelectLast:     "select-last",
	ActionSelectRow:      "select-row",
	ActionClearSelection: "clear-selection",
	ActionCycleSort:      "sort",
	ActionReverseSort:    "reverse-sort",
	ActionModeAuto:       "mode-auto",
	ActionModeFull:       "mode-full",
	ActionModeCompact:    "mode-compact",
}

// String returns the name used in keymap configuration.
func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// Action is a tagged request against the application state.
type Action struct {
	Kind ActionKind
	// Row is the absolute row index for ActionSelectRow.
	Row int
}

// Do returns an Action with no payload.
func Do(kind ActionKind) Action {
	return Action{Kind: kind}
}

// SelectRow returns an Action selecting row.
func SelectRow(row int) Action {
	return Action{Kind: ActionSelectRow, Row: row}
}

// IsNone reports whether a does nothing.
func (a Action) IsNone() bool {
	return a.Kind == ActionNone
}

func (a Action) String() string {
	if a.Kind == ActionSelectRow {
		return fmt.Sprintf("%s(%d)", a.Kind, a.Row)
	}
	return a.Kind.String()
}

// ParseAction resolves a configured action name. Payload actions like
// select-row cannot be bound to keys.
func ParseAction(name string) (Action, error) {
	for kind, n := range actionNames {
		if n == name && kind != ActionSelectRow {
			return Do(kind), nil
		}
	}
	return Action{}, errors.New(errors.ErrConfig,
		fmt.Sprintf("unknown action %q", name),
		"Valid actions include quit, help, back, redraw, select-next, sort, mode-full")
}
