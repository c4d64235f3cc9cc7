package config

import (
	"slices"
	"time"

	"github.com/rileyhilliard/gpuwatch/internal/snapshot"
)

// Display modes. ModeOnce prints a single frame and exits.
const (
	ModeAuto    = "auto"
	ModeFull    = "full"
	ModeCompact = "compact"
)

// Interactive backends.
const (
	BackendTea   = "tea"
	BackendTcell = "tcell"
)

// Config is the resolved configuration. It is built once at startup and
// passed by value; nothing mutates it afterwards.
type Config struct {
	// Once prints one frame to stdout instead of running the dashboard.
	Once bool `mapstructure:"once"`
	// Monitor is set when interactive mode was asked for explicitly.
	Monitor bool `mapstructure:"monitor"`
	// MonitorAlways makes interactive mode the default on a terminal.
	MonitorAlways bool `mapstructure:"monitor_always"`
	// Mode is the interactive layout: auto, full or compact.
	Mode string `mapstructure:"mode"`

	ASCII      bool   `mapstructure:"ascii"`
	ForceColor bool   `mapstructure:"force_color"`
	Theme      string `mapstructure:"theme"`

	// GPUUtilThresh and MemUtilThresh are the light/moderate and
	// moderate/heavy boundaries in percent.
	GPUUtilThresh []int `mapstructure:"gpu_util_thresh"`
	MemUtilThresh []int `mapstructure:"mem_util_thresh"`

	Devices   DeviceFilter   `mapstructure:"devices"`
	Processes ProcessFilter  `mapstructure:"processes"`
	Provider  ProviderConfig `mapstructure:"provider"`

	Backend string `mapstructure:"backend"`
	// Interval bounds each wait for input.
	Interval    time.Duration `mapstructure:"interval"`
	Cadence     time.Duration `mapstructure:"cadence"`
	DedupWindow time.Duration `mapstructure:"dedup_window"`
	KeyTimeout  time.Duration `mapstructure:"key_timeout"`

	// Keys overrides built-in key bindings.
	Keys []KeyBinding `mapstructure:"keys"`

	LogFile string `mapstructure:"log_file"`
}

// DeviceFilter selects which devices are tracked.
type DeviceFilter struct {
	// Only lists device indices to keep.
	Only []int `mapstructure:"only"`
	// OnlyVisible keeps the devices named by CUDA_VISIBLE_DEVICES.
	OnlyVisible bool `mapstructure:"only_visible"`
}

// ProcessFilter narrows the process list.
type ProcessFilter struct {
	Compute  bool     `mapstructure:"compute"`
	Graphics bool     `mapstructure:"graphics"`
	Users    []string `mapstructure:"users"`
	PIDs     []int    `mapstructure:"pids"`
}

// KeyBinding binds Sequence to Action on Screen (global, main or help).
// An action of "none" unbinds the sequence. Bindings are a list rather than
// a map because config keys are case-insensitive and "G" is not "g".
type KeyBinding struct {
	Screen   string `mapstructure:"screen"`
	Sequence string `mapstructure:"sequence"`
	Action   string `mapstructure:"action"`
}

// ProviderConfig picks where telemetry comes from. With neither set the
// local nvidia-smi is used.
type ProviderConfig struct {
	// Hosts runs nvidia-smi on each host over SSH.
	Hosts []string `mapstructure:"hosts"`
	// Fixture replays a YAML file instead of querying hardware.
	Fixture    string        `mapstructure:"fixture"`
	SSHTimeout time.Duration `mapstructure:"ssh_timeout"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		MonitorAlways: true,
		Mode:          ModeAuto,
		Theme:         "dark",
		GPUUtilThresh: []int{10, 75},
		MemUtilThresh: []int{10, 80},
		Provider: ProviderConfig{
			SSHTimeout: 10 * time.Second,
		},
		Backend:     BackendTea,
		Interval:    250 * time.Millisecond,
		Cadence:     snapshot.DefaultCadence,
		DedupWindow: snapshot.DefaultDedupWindow,
		KeyTimeout:  500 * time.Millisecond,
	}
}

// GPUThresholds returns the GPU utilization thresholds.
func (c Config) GPUThresholds() snapshot.Thresholds {
	return thresholds(c.GPUUtilThresh, snapshot.DefaultGPUThresholds)
}

// MemoryThresholds returns the memory utilization thresholds.
func (c Config) MemoryThresholds() snapshot.Thresholds {
	return thresholds(c.MemUtilThresh, snapshot.DefaultMemoryThresholds)
}

// ProcessFilter converts the process filter for snapshot matching.
func (c Config) ProcessFilter() snapshot.ProcessFilter {
	return snapshot.ProcessFilter{
		Compute:  c.Processes.Compute,
		Graphics: c.Processes.Graphics,
		Users:    slices.Clone(c.Processes.Users),
		PIDs:     slices.Clone(c.Processes.PIDs),
	}
}

// LightTheme reports whether the light palette was chosen.
func (c Config) LightTheme() bool {
	return c.Theme == "light"
}

func thresholds(v []int, def snapshot.Thresholds) snapshot.Thresholds {
	if len(v) != 2 {
		return def
	}
	s := slices.Clone(v)
	slices.Sort(s)
	return snapshot.Thresholds{Low: s[0], High: s[1]}
}
