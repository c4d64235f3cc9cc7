// Package input turns raw key and mouse events into actions.
//
// Keys are buffered against the active screen's keymap until a bound
// sequence matches, the buffer stops being a prefix of any binding, or the
// pending sequence times out. Mouse events skip the buffer and resolve to
// the innermost widget under the pointer.
package input
