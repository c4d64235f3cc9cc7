package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	gwerrors "github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixture(t *testing.T) {
	f, err := LoadFixture(filepath.Join("..", "..", "testdata", "fixture.yaml"))
	require.NoError(t, err)
	ctx := context.Background()

	devices, err := f.Devices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, "1", devices[1].ID)

	st, err := f.Query(ctx, devices[1])
	require.NoError(t, err)
	assert.Equal(t, "NVIDIA A100-SXM4-80GB", st.Name)
	assert.Equal(t, int64(78000*1024*1024), *st.MemoryUsed)
	assert.Equal(t, 97, *st.GPUUtilization)

	st, err = f.Query(ctx, devices[2])
	require.NoError(t, err)
	assert.Nil(t, st.FanSpeed)

	procs, err := f.Processes(ctx)
	require.NoError(t, err)
	require.Len(t, procs, 3)
	assert.Equal(t, "C+G", procs[1].Type)

	infos, err := f.Lookup(ctx, "", []int{4242, 777})
	require.NoError(t, err)
	assert.Equal(t, "alice", infos[4242].User)
	_, ok := infos[777]
	assert.False(t, ok, "processes without OS info stay unresolved")

	v, err := f.Versions(ctx)
	require.NoError(t, err)
	assert.Equal(t, Versions{Driver: "535.104.05", CUDA: "12.2"}, v)
}

func TestFixture_FailingDevice(t *testing.T) {
	f := NewFixture(FixtureFile{Devices: []FixtureDevice{{Index: 0, Fail: true}}})
	_, err := f.Query(context.Background(), Device{ID: "0", Index: 0})
	require.Error(t, err)
	assert.True(t, gwerrors.IsCode(err, gwerrors.ErrProviderQuery))

	_, err = f.Query(context.Background(), Device{ID: "9", Index: 9})
	assert.Error(t, err)
}

func TestFixture_Unavailable(t *testing.T) {
	f := NewFixture(FixtureFile{Unavailable: true})
	_, err := f.Devices(context.Background())
	assert.True(t, gwerrors.IsFatal(err))
}

func TestLoadFixture_Errors(t *testing.T) {
	_, err := LoadFixture("/does/not/exist.yaml")
	assert.True(t, gwerrors.IsCode(err, gwerrors.ErrConfig))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("devices: [oops"), 0o644))
	_, err = LoadFixture(bad)
	assert.True(t, gwerrors.IsCode(err, gwerrors.ErrConfig))
}
