package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rileyhilliard/gpuwatch/internal/config"
	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/rileyhilliard/gpuwatch/internal/telemetry"
	"github.com/rileyhilliard/gpuwatch/pkg/sshutil"
)

// sshHostEntries lists the concrete Host aliases in ~/.ssh/config.
var sshHostEntries = sshutil.ParseSSHConfig

// source is a telemetry provider plus whatever it holds open.
type source struct {
	provider telemetry.Provider
	info     telemetry.ProcessInfoProvider
	close    func()
}

// newSource picks the provider: a fixture file, SSH hosts, or the local
// nvidia-smi, in that order of precedence.
func newSource(cfg config.Config) (source, error) {
	switch {
	case cfg.Provider.Fixture != "":
		f, err := telemetry.LoadFixture(cfg.Provider.Fixture)
		if err != nil {
			return source{}, err
		}
		return source{provider: f, info: f, close: func() {}}, nil

	case len(cfg.Provider.Hosts) > 0:
		hosts, err := expandHosts(cfg.Provider.Hosts)
		if err != nil {
			return source{}, err
		}
		pool := telemetry.NewPool(cfg.Provider.SSHTimeout)
		fleet, ps := telemetry.NewSSHFleet(hosts, pool)
		return source{provider: fleet, info: ps, close: pool.Close}, nil

	default:
		local := telemetry.LocalRunner{}
		return source{
			provider: telemetry.NewSMI(local, ""),
			info:     telemetry.NewPS(map[string]telemetry.Runner{"": local}),
			close:    func() {},
		}, nil
	}
}

// expandHosts resolves globs like "gpu-*" in --hosts against the SSH config
// aliases. Plain names are kept as given, so without an SSH config only the
// globs are lost.
func expandHosts(patterns []string) ([]string, error) {
	entries, parseErr := sshHostEntries()
	hosts := sshutil.ExpandHosts(patterns, entries)
	if len(hosts) > 0 {
		return hosts, nil
	}
	msg := fmt.Sprintf("No SSH hosts match %s", strings.Join(patterns, ","))
	suggestion := "Host patterns are matched against the Host entries in ~/.ssh/config"
	if parseErr != nil {
		return nil, errors.WrapWithCode(parseErr, errors.ErrConfig, msg, suggestion)
	}
	return nil, errors.New(errors.ErrConfig, msg, suggestion)
}

// enumerate lists every device. Failing here is fatal.
func enumerate(ctx context.Context, p telemetry.Provider) ([]telemetry.Device, error) {
	devices, err := p.Devices(ctx)
	if err != nil {
		if errors.IsCode(err, errors.ErrProviderUnavailable) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrProviderUnavailable,
			"Can't list GPUs", "Check that nvidia-smi works")
	}
	return devices, nil
}

// selectDevices applies --only or --only-visible. Indices are positions in
// the enumerated list, which locally are the nvidia-smi indices. Unknown
// indices are reported through msgs and skipped.
func selectDevices(all []telemetry.Device, f config.DeviceFilter, lookupEnv func(string) (string, bool), msgs *messages) []telemetry.Device {
	var indices []int
	switch {
	case len(f.Only) > 0:
		var invalid []int
		for _, i := range f.Only {
			if i < 0 || i >= len(all) {
				invalid = append(invalid, i)
				continue
			}
			indices = append(indices, i)
		}
		slices.Sort(invalid)
		invalid = slices.Compact(invalid)
		switch len(invalid) {
		case 0:
		case 1:
			msgs.errorf("Invalid device index: %d.", invalid[0])
		default:
			msgs.errorf("Invalid device indices: %s.", formatIndices(invalid))
		}

	case f.OnlyVisible:
		value, ok := lookupEnv("CUDA_VISIBLE_DEVICES")
		if !ok {
			return all
		}
		indices = visibleIndices(value, all)

	default:
		return all
	}

	slices.Sort(indices)
	indices = slices.Compact(indices)
	selected := make([]telemetry.Device, 0, len(indices))
	for _, i := range indices {
		selected = append(selected, all[i])
	}
	return selected
}

// visibleIndices resolves a CUDA_VISIBLE_DEVICES value. Entries are indices
// or UUID prefixes; like the CUDA runtime, the first entry that doesn't
// resolve hides itself and everything after it.
func visibleIndices(value string, all []telemetry.Device) []int {
	var indices []int
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		i, ok := resolveVisible(entry, all)
		if !ok || slices.Contains(indices, i) {
			break
		}
		indices = append(indices, i)
	}
	return indices
}

func resolveVisible(entry string, all []telemetry.Device) (int, bool) {
	if entry == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(entry); err == nil {
		return n, n >= 0 && n < len(all)
	}
	if !strings.HasPrefix(entry, "GPU-") && !strings.HasPrefix(entry, "MIG-") {
		return 0, false
	}
	match := -1
	for i, d := range all {
		if d.UUID != "" && strings.HasPrefix(d.UUID, entry) {
			if match >= 0 {
				return 0, false // ambiguous prefix
			}
			match = i
		}
	}
	return match, match >= 0
}

func formatIndices(indices []int) string {
	parts := make([]string, len(indices))
	for i, n := range indices {
		parts[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}
