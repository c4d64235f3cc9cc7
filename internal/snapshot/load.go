package snapshot

import "fmt"

// LoadClass buckets a utilization figure for coloring.
type LoadClass int

const (
	Light LoadClass = iota
	Moderate
	Heavy
)

func (c LoadClass) String() string {
	switch c {
	case Light:
		return "light"
	case Moderate:
		return "moderate"
	case Heavy:
		return "heavy"
	}
	return fmt.Sprintf("LoadClass(%d)", int(c))
}

// Thresholds split 0-100 into light < Low <= moderate < High <= heavy.
type Thresholds struct {
	Low  int
	High int
}

// Defaults match the usual nvidia tooling.
var (
	DefaultGPUThresholds    = Thresholds{Low: 10, High: 75}
	DefaultMemoryThresholds = Thresholds{Low: 10, High: 80}
)

// Valid reports whether 1 <= Low < High <= 99.
func (t Thresholds) Valid() bool {
	return t.Low >= 1 && t.Low < t.High && t.High <= 99
}

// Classify buckets v.
func (t Thresholds) Classify(v float64) LoadClass {
	switch {
	case v >= float64(t.High):
		return Heavy
	case v >= float64(t.Low):
		return Moderate
	}
	return Light
}

// classifyKnown treats an unknown reading as moderate so it neither hides a
// busy device nor raises a false alarm.
func classifyKnown(t Thresholds, v float64, known bool) LoadClass {
	if !known {
		return Moderate
	}
	return t.Classify(v)
}

func maxClass(a, b LoadClass) LoadClass {
	if a > b {
		return a
	}
	return b
}
