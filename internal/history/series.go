// Package history keeps bounded per-entity metric series and renders them as
// glyph rows for the history panel.
package history

// DefaultCapacity is used when a series is created without a usable capacity.
const DefaultCapacity = 60

// Series is a fixed-capacity ring buffer of percentage samples (0-100).
// Once full, each Record overwrites the oldest sample.
type Series struct {
	data  []float64
	head  int
	count int
	size  int
}

// NewSeries creates an empty series holding at most capacity samples.
func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Series{
		data: make([]float64, capacity),
		size: capacity,
	}
}

// CapacityForWidth sizes a series for a graph of the given width. Twice the
// width leaves room to downsample when the panel shrinks.
func CapacityForWidth(width int) int {
	if width <= 0 {
		return DefaultCapacity
	}
	return 2 * width
}

// Record appends a sample, clamped to 0-100.
func (s *Series) Record(value float64) {
	switch {
	case value < 0:
		value = 0
	case value > 100:
		value = 100
	}
	s.data[s.head] = value
	s.head = (s.head + 1) % s.size
	if s.count < s.size {
		s.count++
	}
}

// Cap returns the fixed capacity.
func (s *Series) Cap() int { return s.size }

// Len returns the number of stored samples.
func (s *Series) Len() int { return s.count }

// Last returns the most recent sample.
func (s *Series) Last() (float64, bool) {
	if s.count == 0 {
		return 0, false
	}
	return s.data[(s.head-1+s.size)%s.size], true
}

// Values returns the stored samples oldest first.
func (s *Series) Values() []float64 {
	return s.lastN(s.count)
}

// Clear empties the series, keeping its capacity.
func (s *Series) Clear() {
	s.head = 0
	s.count = 0
}

// lastN returns the last n values in chronological order (oldest first).
func (s *Series) lastN(n int) []float64 {
	if n <= 0 || s.count == 0 {
		return nil
	}
	if n > s.count {
		n = s.count
	}

	result := make([]float64, n)
	// head is the next write position, so the newest value sits at head-1.
	start := (s.head - n + s.size) % s.size
	for i := 0; i < n; i++ {
		result[i] = s.data[(start+i)%s.size]
	}
	return result
}
