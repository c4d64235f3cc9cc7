package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/rileyhilliard/gpuwatch/internal/config"
	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/rileyhilliard/gpuwatch/internal/input"
)

// Screens with their own keymap.
const (
	ScreenMain = "main"
	ScreenHelp = "help"
)

type defaultBinding struct {
	screen string
	seq    string
	action input.ActionKind
}

var defaultBindings = []defaultBinding{
	{input.GlobalScreen, "q", input.ActionQuit},
	{input.GlobalScreen, "<ctrl+c>", input.ActionQuit},
	{input.GlobalScreen, "h", input.ActionToggleHelp},
	{input.GlobalScreen, "?", input.ActionToggleHelp},
	{input.GlobalScreen, "<ctrl+l>", input.ActionRedraw},

	{ScreenMain, "j", input.ActionSelectNext},
	{ScreenMain, "<down>", input.ActionSelectNext},
	{ScreenMain, "k", input.ActionSelectPrev},
	{ScreenMain, "<up>", input.ActionSelectPrev},
	{ScreenMain, "<home>", input.ActionSelectFirst},
	{ScreenMain, "gg", input.ActionSelectFirst},
	{ScreenMain, "<end>", input.ActionSelectLast},
	{ScreenMain, "G", input.ActionSelectLast},
	{ScreenMain, "s", input.ActionCycleSort},
	{ScreenMain, "r", input.ActionReverseSort},
	{ScreenMain, "<esc>", input.ActionBack},
	{ScreenMain, "a", input.ActionModeAuto},
	{ScreenMain, "f", input.ActionModeFull},
	{ScreenMain, "c", input.ActionModeCompact},

	{ScreenHelp, "<esc>", input.ActionBack},
	{ScreenHelp, "h", input.ActionBack},
	{ScreenHelp, "?", input.ActionBack},
}

// NewKeyMaps builds the keymaps with the built-in bindings, then applies
// overrides in order. The main screen is active.
func NewKeyMaps(overrides []config.KeyBinding) (*input.KeyMaps, error) {
	maps := input.NewKeyMaps()
	for _, b := range defaultBindings {
		maps.Screen(b.screen).MustBind(b.seq, input.Do(b.action))
	}

	for _, o := range overrides {
		screen := o.Screen
		if screen == "" {
			screen = input.GlobalScreen
		}
		m := maps.Screen(screen)
		if o.Action == "none" {
			m.Unbind(o.Sequence)
			continue
		}
		a, err := input.ParseAction(o.Action)
		if err != nil {
			return nil, err
		}
		if err := m.Bind(o.Sequence, a); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Invalid key binding %q", o.Sequence), "See the keys section of the config file")
		}
	}

	if err := maps.Push(ScreenMain); err != nil {
		return nil, err
	}
	return maps, nil
}

var actionHelp = map[input.ActionKind]string{
	input.ActionQuit:           "quit",
	input.ActionToggleHelp:     "show or hide this help",
	input.ActionBack:           "back / clear selection",
	input.ActionRedraw:         "redraw the screen",
	input.ActionSelectNext:     "select next process",
	input.ActionSelectPrev:     "select previous process",
	input.ActionSelectFirst:    "select first process",
	input.ActionSelectLast:     "select last process",
	input.ActionClearSelection: "clear selection",
	input.ActionCycleSort:      "cycle sort order",
	input.ActionReverseSort:    "reverse sort order",
	input.ActionModeAuto:       "auto layout",
	input.ActionModeFull:       "full layout",
	input.ActionModeCompact:    "compact layout",
}

// HelpBindings describes the global and main-screen bindings, one entry
// per action, in the order they were first bound.
func HelpBindings(maps *input.KeyMaps) []key.Binding {
	var (
		order []input.ActionKind
		seqs  = make(map[input.ActionKind][][]input.Key)
	)
	for _, screen := range []string{input.GlobalScreen, ScreenMain} {
		for _, b := range maps.Screen(screen).Bindings() {
			if _, ok := seqs[b.Action.Kind]; !ok {
				order = append(order, b.Action.Kind)
			}
			seqs[b.Action.Kind] = append(seqs[b.Action.Kind], b.Sequence)
		}
	}

	out := make([]key.Binding, 0, len(order))
	for _, kind := range order {
		names := make([]string, len(seqs[kind]))
		labels := make([]string, len(seqs[kind]))
		for i, seq := range seqs[kind] {
			names[i] = input.JoinSequence(seq)
			labels[i] = sequenceLabel(seq)
		}
		desc, ok := actionHelp[kind]
		if !ok {
			desc = kind.String()
		}
		out = append(out, key.NewBinding(
			key.WithKeys(names...),
			key.WithHelp(strings.Join(labels, " / "), desc),
		))
	}
	return out
}

func sequenceLabel(keys []input.Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.Label()
	}
	return strings.Join(parts, " ")
}
