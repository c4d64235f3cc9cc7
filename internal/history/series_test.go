package history

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeries(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		expected int
	}{
		{"default capacity", 0, DefaultCapacity},
		{"negative capacity", -3, DefaultCapacity},
		{"custom capacity", 120, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSeries(tt.capacity)
			assert.Equal(t, tt.expected, s.Cap())
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestCapacityForWidth(t *testing.T) {
	assert.Equal(t, 80, CapacityForWidth(40))
	assert.Equal(t, DefaultCapacity, CapacityForWidth(0))
}

func TestSeriesRecordWraps(t *testing.T) {
	s := NewSeries(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		s.Record(v)
	}

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{3, 4, 5}, s.Values())

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 5.0, last)
}

func TestSeriesRecordClamps(t *testing.T) {
	s := NewSeries(2)
	s.Record(-5)
	s.Record(140)
	assert.Equal(t, []float64{0, 100}, s.Values())
}

func TestSeriesClear(t *testing.T) {
	s := NewSeries(4)
	s.Record(10)
	s.Record(20)
	s.Clear()

	assert.Equal(t, 0, s.Len())
	_, ok := s.Last()
	assert.False(t, ok)
	assert.Nil(t, s.Values())
	assert.Equal(t, 4, s.Cap())
}

func TestRenderDependsOnlyOnRetainedSamples(t *testing.T) {
	long := NewSeries(4)
	for _, v := range []float64{90, 5, 60, 33, 50, 60, 70, 80} {
		long.Record(v)
	}

	short := NewSeries(4)
	for _, v := range []float64{50, 60, 70, 80} {
		short.Record(v)
	}

	for _, size := range [][2]int{{4, 1}, {2, 3}, {9, 2}} {
		assert.Equal(t,
			slices.Collect(short.Render(size[0], size[1])),
			slices.Collect(long.Render(size[0], size[1])),
			"width=%d height=%d", size[0], size[1])
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		values   []float64
		width    int
		height   int
		expected []string
	}{
		{
			name:     "one column per slot",
			capacity: 3,
			values:   []float64{20, 50, 100},
			width:    3,
			height:   1,
			expected: []string{"▂▄█"},
		},
		{
			name:     "young series is right aligned",
			capacity: 4,
			values:   []float64{100},
			width:    4,
			height:   1,
			expected: []string{"   █"},
		},
		{
			name:     "downsampling keeps the most recent slot",
			capacity: 4,
			values:   []float64{10, 20, 30, 100},
			width:    2,
			height:   1,
			expected: []string{"▂█"},
		},
		{
			name:     "upsampling repeats slots",
			capacity: 2,
			values:   []float64{50, 100},
			width:    4,
			height:   1,
			expected: []string{"▄▄██"},
		},
		{
			name:     "multiple rows fill from the bottom",
			capacity: 2,
			values:   []float64{50, 75},
			width:    2,
			height:   2,
			expected: []string{" ▄", "██"},
		},
		{
			name:     "small values keep a sliver",
			capacity: 1,
			values:   []float64{1},
			width:    1,
			height:   1,
			expected: []string{"▁"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSeries(tt.capacity)
			for _, v := range tt.values {
				s.Record(v)
			}
			assert.Equal(t, tt.expected, slices.Collect(s.Render(tt.width, tt.height)))
		})
	}
}

func TestRenderASCII(t *testing.T) {
	s := NewSeries(4)
	for _, v := range []float64{0, 5, 50, 100} {
		s.Record(v)
	}
	assert.Equal(t, []string{" .:#"}, slices.Collect(s.RenderWith(4, 1, ASCIIGlyphs)))
}

func TestRenderEmptyAndInvalidSizes(t *testing.T) {
	s := NewSeries(3)
	assert.Equal(t, []string{"   ", "   "}, slices.Collect(s.Render(3, 2)))
	assert.Empty(t, slices.Collect(s.Render(0, 2)))
	assert.Empty(t, slices.Collect(s.Render(3, 0)))
}

func TestRenderIsRestartableAndLazy(t *testing.T) {
	s := NewSeries(2)
	s.Record(100)
	seq := s.Render(2, 1)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)

	s.Record(100)
	assert.Equal(t, []string{"██"}, slices.Collect(seq), "each pass reads the current series")

	rows := 0
	for range s.Render(2, 5) {
		rows++
		break
	}
	assert.Equal(t, 1, rows)
}
