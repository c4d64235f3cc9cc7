package input

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rileyhilliard/gpuwatch/internal/errors"
)

// Match is the outcome of looking a key sequence up in a keymap.
type Match struct {
	Action Action
	// Exact means the sequence itself is bound to Action.
	Exact bool
	// Prefix means some longer bound sequence starts with the sequence.
	Prefix bool
}

// Binding is one sequence to action entry, in insertion order.
type Binding struct {
	Sequence []Key
	Action   Action
}

// KeyMap maps key sequences to actions for one screen.
type KeyMap struct {
	bindings map[string]Action
	order    []string
}

// NewKeyMap creates an empty keymap.
func NewKeyMap() *KeyMap {
	return &KeyMap{bindings: make(map[string]Action)}
}

// Bind maps seq to a. Rebinding a sequence replaces its action.
func (m *KeyMap) Bind(seq string, a Action) error {
	keys, err := ParseSequence(seq)
	if err != nil {
		return err
	}
	id := JoinSequence(keys)
	if _, ok := m.bindings[id]; !ok {
		m.order = append(m.order, id)
	}
	m.bindings[id] = a
	return nil
}

// MustBind is Bind for built-in tables.
func (m *KeyMap) MustBind(seq string, a Action) *KeyMap {
	if err := m.Bind(seq, a); err != nil {
		panic(err)
	}
	return m
}

// Unbind removes seq.
func (m *KeyMap) Unbind(seq string) {
	keys, err := ParseSequence(seq)
	if err != nil {
		return
	}
	id := JoinSequence(keys)
	delete(m.bindings, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
}

// Lookup matches keys against the map.
func (m *KeyMap) Lookup(keys []Key) Match {
	id := JoinSequence(keys)
	var match Match
	if a, ok := m.bindings[id]; ok {
		match.Action = a
		match.Exact = true
	}
	for seq := range m.bindings {
		if len(seq) > len(id) && strings.HasPrefix(seq, id) && boundaryAt(seq, len(id)) {
			match.Prefix = true
			break
		}
	}
	return match
}

// boundaryAt reports whether seq has a key boundary at byte i, so "<e" is
// never treated as a prefix of "<esc>".
func boundaryAt(seq string, i int) bool {
	keys, err := ParseSequence(seq)
	if err != nil {
		return false
	}
	n := 0
	for _, k := range keys {
		if n == i {
			return true
		}
		n += len(k)
	}
	return n == i
}

// Bindings returns the entries in the order they were bound.
func (m *KeyMap) Bindings() []Binding {
	out := make([]Binding, 0, len(m.order))
	for _, id := range m.order {
		keys, _ := ParseSequence(id)
		out = append(out, Binding{Sequence: keys, Action: m.bindings[id]})
	}
	return out
}

// Len returns the number of bindings.
func (m *KeyMap) Len() int {
	return len(m.bindings)
}

// GlobalScreen names the keymap consulted on every screen.
const GlobalScreen = "global"

// KeyMaps holds one keymap per screen plus a global one, and a stack of
// active screens. The top of the stack takes priority over global bindings.
type KeyMaps struct {
	mu      sync.RWMutex
	screens map[string]*KeyMap
	stack   []string
}

// NewKeyMaps creates a set with an empty global keymap.
func NewKeyMaps() *KeyMaps {
	return &KeyMaps{screens: map[string]*KeyMap{GlobalScreen: NewKeyMap()}}
}

// Screen returns the keymap for name, creating it if needed.
func (s *KeyMaps) Screen(name string) *KeyMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.screens[name]
	if !ok {
		m = NewKeyMap()
		s.screens[name] = m
	}
	return m
}

// Global returns the keymap consulted on every screen.
func (s *KeyMaps) Global() *KeyMap {
	return s.Screen(GlobalScreen)
}

// Push makes name the active screen.
func (s *KeyMaps) Push(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.screens[name]; !ok {
		return errors.New(errors.ErrInput, fmt.Sprintf("no keymap for screen %q", name), "")
	}
	s.stack = append(s.stack, name)
	return nil
}

// Pop returns to the previous screen. The bottom screen is never popped.
func (s *KeyMaps) Pop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// Active returns the name of the active screen, or GlobalScreen when none
// was pushed.
func (s *KeyMaps) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.stack) == 0 {
		return GlobalScreen
	}
	return s.stack[len(s.stack)-1]
}

// Lookup matches keys against the active screen, then the global map. An
// exact screen binding shadows a global one.
func (s *KeyMaps) Lookup(keys []Key) Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	global := s.screens[GlobalScreen].Lookup(keys)
	if len(s.stack) == 0 {
		return global
	}
	screen := s.screens[s.stack[len(s.stack)-1]].Lookup(keys)
	if !screen.Exact {
		screen.Action = global.Action
		screen.Exact = global.Exact
	}
	screen.Prefix = screen.Prefix || global.Prefix
	return screen
}
