package snapshot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_Swap(t *testing.T) {
	b := NewBuffer([]string{"initial"})
	assert.Equal(t, []string{"initial"}, b.Current())
	assert.False(t, b.Swap(), "nothing staged yet")

	b.Stage([]string{"a"})
	assert.Equal(t, []string{"initial"}, b.Current(), "staging is invisible until Swap")

	assert.True(t, b.Swap())
	assert.Equal(t, []string{"a"}, b.Current())
	assert.False(t, b.Swap())

	b.Stage([]string{"b"})
	b.Stage([]string{"c"})
	assert.True(t, b.Swap())
	assert.Equal(t, []string{"c"}, b.Current(), "only the latest staged list matters")
}

func TestBuffer_ConcurrentStage(t *testing.T) {
	b := NewBuffer[int](nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			b.Stage([]int{i, i, i})
		}
	}()

	for i := 0; i < 1000; i++ {
		b.Swap()
		cur := b.Current()
		if len(cur) > 0 {
			// A list is never observed half written.
			assert.Equal(t, cur[0], cur[2])
		}
	}
	wg.Wait()
}
