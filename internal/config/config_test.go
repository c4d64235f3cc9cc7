package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/rileyhilliard/gpuwatch/internal/snapshot"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// testFlags mirrors the CLI flags that map onto config keys.
func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.BoolP("once", "1", false, "")
	fs.StringP("monitor", "m", "", "")
	fs.Lookup("monitor").NoOptDefVal = ModeAuto
	fs.Bool("light", false, "")
	fs.IntSlice("gpu-util-thresh", nil, "")
	fs.IntSliceP("only", "o", nil, "")
	fs.StringSliceP("user", "u", nil, "")
	fs.StringSlice("hosts", nil, "")
	fs.String("backend", "", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ModeAuto, cfg.Mode)
	assert.True(t, cfg.MonitorAlways)
	assert.False(t, cfg.Once)
	assert.Equal(t, BackendTea, cfg.Backend)
	assert.Equal(t, snapshot.DefaultGPUThresholds, cfg.GPUThresholds())
	assert.Equal(t, snapshot.DefaultMemoryThresholds, cfg.MemoryThresholds())
	assert.Equal(t, snapshot.DefaultCadence, cfg.Cadence)
	assert.Equal(t, 10*time.Second, cfg.Provider.SSHTimeout)
	assert.False(t, cfg.LightTheme())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
mode: compact
theme: light
gpu_util_thresh: [80, 20]
cadence: 2s
devices:
  only: [0, 2]
processes:
  compute: true
  users: [alice]
keys:
  - screen: main
    sequence: G
    action: select-first
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ModeCompact, cfg.Mode)
	assert.True(t, cfg.LightTheme())
	assert.Equal(t, snapshot.Thresholds{Low: 20, High: 80}, cfg.GPUThresholds(), "thresholds are sorted")
	assert.Equal(t, 2*time.Second, cfg.Cadence)
	assert.Equal(t, []int{0, 2}, cfg.Devices.Only)
	pf := cfg.ProcessFilter()
	assert.True(t, pf.Compute)
	assert.False(t, pf.Graphics)
	assert.Equal(t, []string{"alice"}, pf.Users)
	assert.Empty(t, pf.PIDs)
	require.Len(t, cfg.Keys, 1)
	assert.Equal(t, KeyBinding{Screen: "main", Sequence: "G", Action: "select-first"}, cfg.Keys[0], "sequence case is preserved")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "mode: compact\ntheme: dark\n")
	t.Setenv("GPUWATCH_MONITOR_MODE", "full")
	t.Setenv("GPUWATCH_THEME", "light")
	t.Setenv("GPUWATCH_GPU_UTIL_THRESH", "5,50")
	t.Setenv("GPUWATCH_MONITOR_ALWAYS", "false")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ModeFull, cfg.Mode)
	assert.True(t, cfg.LightTheme())
	assert.Equal(t, snapshot.Thresholds{Low: 5, High: 50}, cfg.GPUThresholds())
	assert.False(t, cfg.MonitorAlways)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("GPUWATCH_MONITOR_MODE", "full")
	t.Setenv("GPUWATCH_BACKEND", "tea")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"-m=compact", "--backend", "tcell", "--light", "-o", "1,3", "-u", "bob", "--gpu-util-thresh", "30,60"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, ModeCompact, cfg.Mode)
	assert.True(t, cfg.Monitor, "--monitor marks monitor mode as requested")
	assert.Equal(t, BackendTcell, cfg.Backend)
	assert.True(t, cfg.LightTheme())
	assert.Equal(t, []int{1, 3}, cfg.Devices.Only)
	assert.Equal(t, []string{"bob"}, cfg.Processes.Users)
	assert.Equal(t, snapshot.Thresholds{Low: 30, High: 60}, cfg.GPUThresholds())
}

func TestLoad_MonitorWithoutValue(t *testing.T) {
	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"-m"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.True(t, cfg.Monitor)
	assert.Equal(t, ModeAuto, cfg.Mode)
}

func TestLoad_UnchangedFlagsKeepDefaults(t *testing.T) {
	cfg, err := Load("", testFlags())
	require.NoError(t, err)
	assert.False(t, cfg.Monitor)
	assert.Equal(t, BackendTea, cfg.Backend)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad mode", "mode: sideways\n"},
		{"bad yaml", "mode: [\n"},
		{"bad thresholds", "mem_util_thresh: [50, 50]\n"},
		{"bad key action", "keys:\n  - screen: main\n    sequence: x\n    action: explode\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
		})
	}
}

func TestFind(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := writeConfig(t, "mode: full\n")
		got, err := Find(path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("explicit path missing", func(t *testing.T) {
		_, err := Find(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})

	t.Run("xdg config", func(t *testing.T) {
		xdg := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(xdg, "gpuwatch"), 0755))
		want := filepath.Join(xdg, "gpuwatch", GlobalConfigFile)
		require.NoError(t, os.WriteFile(want, []byte("mode: full\n"), 0644))
		t.Setenv("XDG_CONFIG_HOME", xdg)

		got, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("HOME", t.TempDir())

		got, err := Find("")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestDefaultLogFile(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/var/state")
	assert.Equal(t, "/var/state/gpuwatch/gpuwatch.log", DefaultLogFile())
}
