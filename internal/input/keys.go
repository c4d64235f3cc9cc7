package input

import (
	"strings"
	"unicode/utf8"

	"github.com/rileyhilliard/gpuwatch/internal/errors"
)

// Key is one canonical key press. Printable keys are the character itself
// ("a", "G", "?"). Special keys use angle brackets around the bubbletea key
// name: "<esc>", "<up>", "<ctrl+c>", "<home>".
type Key string

// Special keys the dashboard binds.
const (
	KeyEsc       Key = "<esc>"
	KeyEnter     Key = "<enter>"
	KeyUp        Key = "<up>"
	KeyDown      Key = "<down>"
	KeyLeft      Key = "<left>"
	KeyRight     Key = "<right>"
	KeyHome      Key = "<home>"
	KeyEnd       Key = "<end>"
	KeyPgUp      Key = "<pgup>"
	KeyPgDown    Key = "<pgdown>"
	KeyTab       Key = "<tab>"
	KeyCtrlC     Key = "<ctrl+c>"
	KeyCtrlL     Key = "<ctrl+l>"
	KeyBackspace Key = "<backspace>"
)

// KeyFromName converts a bubbletea style key name ("a", "ctrl+c", "up")
// into a Key.
func KeyFromName(name string) Key {
	if name == "" {
		return ""
	}
	if utf8.RuneCountInString(name) == 1 {
		return Key(name)
	}
	if name == "space" {
		return " "
	}
	return Key("<" + strings.ToLower(name) + ">")
}

// Special reports whether k is a named key rather than a character.
func (k Key) Special() bool {
	return len(k) > 2 && k[0] == '<' && k[len(k)-1] == '>'
}

// Label renders k for the help screen: "Esc", "Ctrl+C", "g".
func (k Key) Label() string {
	if !k.Special() {
		return string(k)
	}
	name := string(k[1 : len(k)-1])
	parts := strings.Split(name, "+")
	for i, p := range parts {
		switch p {
		case "pgup":
			parts[i] = "PgUp"
		case "pgdown":
			parts[i] = "PgDn"
		default:
			if p != "" {
				parts[i] = strings.ToUpper(p[:1]) + p[1:]
			}
		}
	}
	return strings.Join(parts, "+")
}

// ParseSequence splits a binding like "gg", "<ctrl+l>" or "g<end>" into keys.
func ParseSequence(seq string) ([]Key, error) {
	if seq == "" {
		return nil, errors.New(errors.ErrInput, "empty key sequence", "")
	}

	var keys []Key
	for len(seq) > 0 {
		if seq[0] == '<' {
			end := strings.IndexByte(seq, '>')
			if end > 1 {
				keys = append(keys, Key(strings.ToLower(seq[:end+1])))
				seq = seq[end+1:]
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(seq)
		if r == utf8.RuneError {
			return nil, errors.New(errors.ErrInput, "invalid key sequence "+seq, "")
		}
		keys = append(keys, Key(string(r)))
		seq = seq[size:]
	}
	return keys, nil
}

// JoinSequence is the inverse of ParseSequence.
func JoinSequence(keys []Key) string {
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(string(k))
	}
	return b.String()
}

// KeyBuffer holds keys waiting for a keymap match.
type KeyBuffer struct {
	keys []Key
}

// Push appends k.
func (b *KeyBuffer) Push(k Key) {
	b.keys = append(b.keys, k)
}

// Keys returns the pending keys. The slice is only valid until the next Push.
func (b *KeyBuffer) Keys() []Key {
	return b.keys
}

// Len returns the number of pending keys.
func (b *KeyBuffer) Len() int {
	return len(b.keys)
}

// Clear drops all pending keys.
func (b *KeyBuffer) Clear() {
	b.keys = b.keys[:0]
}

// String renders the pending keys, e.g. for a status hint.
func (b *KeyBuffer) String() string {
	return JoinSequence(b.keys)
}
