package history

import "sync"

// Key identifies one series: a tracked entity and one of its metrics.
type Key struct {
	Entity string
	Metric string
}

// Registry holds series keyed by entity and metric. Series are created on
// first use and dropped with Retain once their entity disappears.
type Registry struct {
	mu       sync.RWMutex
	capacity int
	series   map[Key]*Series
}

// NewRegistry creates a registry whose new series hold capacity samples.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		capacity: capacity,
		series:   make(map[Key]*Series),
	}
}

// Record appends a sample to the series for key, creating it if needed.
func (r *Registry) Record(key Key, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getOrCreate(key).Record(value)
}

// Get returns the series for key, or nil when none has been recorded.
func (r *Registry) Get(key Key) *Series {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.series[key]
}

// Retain drops every series whose entity is not in entities.
func (r *Registry) Retain(entities []string) {
	keep := make(map[string]bool, len(entities))
	for _, e := range entities {
		keep[e] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.series {
		if !keep[k.Entity] {
			delete(r.series, k)
		}
	}
}

// Len returns the number of live series.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.series)
}

// Clear removes all series.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.series = make(map[Key]*Series)
}

// getOrCreate must be called with r.mu held.
func (r *Registry) getOrCreate(key Key) *Series {
	s, ok := r.series[key]
	if !ok {
		s = NewSeries(r.capacity)
		r.series[key] = s
	}
	return s
}

// Metric names recorded per device.
const (
	MetricGPU    = "gpu"
	MetricMemory = "memory"
)

// Copy returns a private copy of the series for key, safe to render while
// the registry keeps recording. It returns nil when none exists.
func (r *Registry) Copy(key Key) *Series {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.series[key]
	if !ok {
		return nil
	}
	c := &Series{
		data:  make([]float64, len(s.data)),
		head:  s.head,
		count: s.count,
		size:  s.size,
	}
	copy(c.data, s.data)
	return c
}
