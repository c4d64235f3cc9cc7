package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/rileyhilliard/gpuwatch/internal/input"
)

// KeyScreens are the screens key bindings may target.
var KeyScreens = []string{input.GlobalScreen, "main", "help"}

// Validate checks cfg and returns a CONFIG error describing the first
// problem found.
func Validate(cfg Config) error {
	if !slices.Contains([]string{ModeAuto, ModeFull, ModeCompact}, cfg.Mode) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown display mode %q", cfg.Mode),
			"Use auto, full or compact")
	}

	if cfg.Theme != "dark" && cfg.Theme != "light" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown theme %q", cfg.Theme),
			"Use dark or light")
	}

	if cfg.Backend != BackendTea && cfg.Backend != BackendTcell {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown backend %q", cfg.Backend),
			"Use tea or tcell")
	}

	if err := validateThresholds("gpu_util_thresh", cfg.GPUUtilThresh); err != nil {
		return err
	}
	if err := validateThresholds("mem_util_thresh", cfg.MemUtilThresh); err != nil {
		return err
	}

	for _, idx := range cfg.Devices.Only {
		if idx < 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Invalid device index %d", idx),
				"Device indices start at 0")
		}
	}

	for _, pid := range cfg.Processes.PIDs {
		if pid <= 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Invalid PID %d", pid),
				"PIDs are positive integers")
		}
	}

	if cfg.Provider.Fixture != "" && len(cfg.Provider.Hosts) > 0 {
		return errors.New(errors.ErrConfig,
			"Both a fixture and remote hosts were given",
			"Use either --fixture or --hosts")
	}
	for _, h := range cfg.Provider.Hosts {
		if strings.TrimSpace(h) == "" {
			return errors.New(errors.ErrConfig, "Empty host in the host list", "Check --hosts for stray commas")
		}
	}

	durations := []struct {
		name  string
		value int64
	}{
		{"interval", int64(cfg.Interval)},
		{"cadence", int64(cfg.Cadence)},
		{"key_timeout", int64(cfg.KeyTimeout)},
		{"provider.ssh_timeout", int64(cfg.Provider.SSHTimeout)},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s must be positive", d.name),
				"Use a duration like 500ms or 2s")
		}
	}
	if cfg.DedupWindow < 0 {
		return errors.New(errors.ErrConfig, "dedup_window can't be negative", "Use 0 to disable deduplication")
	}

	return validateKeys(cfg.Keys)
}

// validateThresholds accepts two distinct percentages in [1, 99], in
// either order.
func validateThresholds(name string, v []int) error {
	if len(v) != 2 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s needs exactly two values, got %d", name, len(v)),
			"Pass them like 10,75")
	}
	lo, hi := min(v[0], v[1]), max(v[0], v[1])
	if lo < 1 || hi > 99 || lo == hi {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s must satisfy 1 <= th1 < th2 <= 99, got %d,%d", name, v[0], v[1]),
			"Pass two different percentages like 10,75")
	}
	return nil
}

func validateKeys(bindings []KeyBinding) error {
	for _, b := range bindings {
		if !slices.Contains(KeyScreens, b.Screen) {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Key binding for unknown screen %q", b.Screen),
				"Screens are "+strings.Join(KeyScreens, ", "))
		}
		if _, err := input.ParseSequence(b.Sequence); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Invalid key sequence %q", b.Sequence),
				"Use characters and names in angle brackets, like gg or <ctrl+l>")
		}
		if b.Action == "none" {
			continue
		}
		if _, err := input.ParseAction(b.Action); err != nil {
			return err
		}
	}
	return nil
}
