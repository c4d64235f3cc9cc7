package snapshot

import "sync"

// Buffer is a per-panel double buffer. The poller stages whole lists; the
// foreground swaps the staged list in and reads Current without locking.
//
// Staged slices are handed over, not copied: the producer must not touch a
// slice after staging it.
type Buffer[T any] struct {
	mu      sync.Mutex
	staged  []T
	version uint64

	// Foreground only.
	current        []T
	currentVersion uint64
}

// NewBuffer creates a buffer whose current list is initial.
func NewBuffer[T any](initial []T) *Buffer[T] {
	return &Buffer[T]{current: initial, staged: initial}
}

// Stage records items as the latest polled list.
func (b *Buffer[T]) Stage(items []T) {
	b.mu.Lock()
	b.staged = items
	b.version++
	b.mu.Unlock()
}

// Swap makes the latest staged list current and reports whether it changed
// since the last Swap. Foreground only.
func (b *Buffer[T]) Swap() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.version == b.currentVersion {
		return false
	}
	b.current = b.staged
	b.currentVersion = b.version
	return true
}

// Current returns the list last swapped in. Foreground only.
func (b *Buffer[T]) Current() []T {
	return b.current
}
