package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePS(t *testing.T) {
	out := `  4242 alice    101.3  4.2 1-02:03:04 python train.py --epochs 90
  5150 bob       0.0  0.1      00:05 sleep
garbage line
   abc x 1 2 3 cmd
`
	infos := ParsePS(out)
	require.Len(t, infos, 2)

	alice := infos[4242]
	assert.Equal(t, "alice", alice.User)
	assert.InDelta(t, 101.3, *alice.CPUPercent, 0.001)
	assert.InDelta(t, 4.2, *alice.MemPercent, 0.001)
	assert.Equal(t, "1-02:03:04", alice.Elapsed)
	assert.Equal(t, "python train.py --epochs 90", alice.Command)

	assert.Equal(t, "sleep", infos[5150].Command)
}

func TestPS_Lookup(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{"ps -o": "1 root 0.0 0.0 10:00 init"}}
	ps := NewPS(map[string]Runner{"": r})

	infos, err := ps.Lookup(context.Background(), "", []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "root", infos[1].User)
	assert.Equal(t, "ps -o pid=,user=,pcpu=,pmem=,etime=,args= -p 1,2", r.calls[0])
}

func TestPS_LookupPartialOutput(t *testing.T) {
	r := &fakeRunner{
		outputs: map[string]string{"ps -o": "1 root 0.0 0.0 10:00 init"},
		errs:    map[string]error{"ps -o": errors.New("exit status 1")},
	}
	infos, err := NewPS(map[string]Runner{"": r}).Lookup(context.Background(), "", []int{1, 9})
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestPS_LookupFailures(t *testing.T) {
	ps := NewPS(map[string]Runner{"": &fakeRunner{}})

	_, err := ps.Lookup(context.Background(), "", []int{1})
	assert.Error(t, err)

	_, err = ps.Lookup(context.Background(), "elsewhere", []int{1})
	assert.Error(t, err)

	infos, err := ps.Lookup(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Empty(t, infos)
}
