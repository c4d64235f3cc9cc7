package telemetry

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"gopkg.in/yaml.v3"
)

// FixtureDevice is one device entry in a fixture file.
type FixtureDevice struct {
	Index           int      `yaml:"index"`
	UUID            string   `yaml:"uuid"`
	Name            string   `yaml:"name"`
	PersistenceMode string   `yaml:"persistence_mode"`
	BusID           string   `yaml:"bus_id"`
	DisplayActive   string   `yaml:"display_active"`
	ECCErrors       *int64   `yaml:"ecc_errors"`
	FanSpeed        *int     `yaml:"fan_speed"`
	Temperature     *int     `yaml:"temperature"`
	PerfState       string   `yaml:"performance_state"`
	PowerDraw       *float64 `yaml:"power_draw"`
	PowerLimit      *float64 `yaml:"power_limit"`
	MemoryUsedMiB   *int64   `yaml:"memory_used_mib"`
	MemoryTotalMiB  *int64   `yaml:"memory_total_mib"`
	GPUUtilization  *int     `yaml:"gpu_utilization"`
	ComputeMode     string   `yaml:"compute_mode"`
	MIGMode         string   `yaml:"mig_mode"`
	// Fail makes every query of this device return an error.
	Fail bool `yaml:"fail"`
}

// FixtureProcess is one process entry in a fixture file.
type FixtureProcess struct {
	PID          int      `yaml:"pid"`
	Device       int      `yaml:"device"`
	Type         string   `yaml:"type"`
	GPUMemoryMiB *int64   `yaml:"gpu_memory_mib"`
	User         string   `yaml:"user"`
	CPUPercent   *float64 `yaml:"cpu_percent"`
	MemPercent   *float64 `yaml:"mem_percent"`
	Elapsed      string   `yaml:"elapsed"`
	Command      string   `yaml:"command"`
}

// FixtureFile is the on-disk layout read by LoadFixture.
type FixtureFile struct {
	DriverVersion string           `yaml:"driver_version"`
	CUDAVersion   string           `yaml:"cuda_version"`
	Unavailable   bool             `yaml:"unavailable"`
	Devices       []FixtureDevice  `yaml:"devices"`
	Processes     []FixtureProcess `yaml:"processes"`
}

// Fixture serves canned telemetry from a FixtureFile. It implements both
// Provider and ProcessInfoProvider.
type Fixture struct {
	file FixtureFile
}

// NewFixture wraps an already-decoded fixture.
func NewFixture(file FixtureFile) *Fixture {
	return &Fixture{file: file}
}

// LoadFixture reads a YAML fixture from path.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't read fixture %s", path),
			"Check the --fixture path")
	}
	var file FixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Fixture %s isn't valid YAML", path),
			"Check the file against the documented layout")
	}
	return NewFixture(file), nil
}

// Devices returns the fixture's devices in file order.
func (f *Fixture) Devices(context.Context) ([]Device, error) {
	if f.file.Unavailable {
		return nil, errors.New(errors.ErrProviderUnavailable, "Can't list GPUs (fixture marked unavailable)", "")
	}
	devices := make([]Device, len(f.file.Devices))
	for i, d := range f.file.Devices {
		devices[i] = Device{ID: strconv.Itoa(d.Index), Index: d.Index, UUID: d.UUID}
	}
	return devices, nil
}

// Query returns the canned status for d.
func (f *Fixture) Query(_ context.Context, d Device) (DeviceStatus, error) {
	for _, fd := range f.file.Devices {
		if fd.Index != d.Index {
			continue
		}
		if fd.Fail {
			return DeviceStatus{}, errors.New(errors.ErrProviderQuery, fmt.Sprintf("Query of GPU %s failed", d.ID), "")
		}
		return DeviceStatus{
			Name:             fd.Name,
			PersistenceMode:  fd.PersistenceMode,
			BusID:            fd.BusID,
			DisplayActive:    fd.DisplayActive,
			ECCErrors:        fd.ECCErrors,
			FanSpeed:         fd.FanSpeed,
			Temperature:      fd.Temperature,
			PerformanceState: fd.PerfState,
			PowerDraw:        fd.PowerDraw,
			PowerLimit:       fd.PowerLimit,
			MemoryUsed:       mibToBytes(fd.MemoryUsedMiB),
			MemoryTotal:      mibToBytes(fd.MemoryTotalMiB),
			GPUUtilization:   fd.GPUUtilization,
			ComputeMode:      fd.ComputeMode,
			MIGMode:          fd.MIGMode,
		}, nil
	}
	return DeviceStatus{}, errors.New(errors.ErrProviderQuery, fmt.Sprintf("Unknown GPU %s", d.ID), "")
}

// Processes returns the fixture's processes.
func (f *Fixture) Processes(context.Context) ([]Process, error) {
	procs := make([]Process, len(f.file.Processes))
	for i, p := range f.file.Processes {
		typ := p.Type
		if typ == "" {
			typ = "C"
		}
		procs[i] = Process{
			PID:       p.PID,
			DeviceID:  strconv.Itoa(p.Device),
			Type:      typ,
			GPUMemory: mibToBytes(p.GPUMemoryMiB),
		}
	}
	return procs, nil
}

// Versions returns the fixture's driver and CUDA versions.
func (f *Fixture) Versions(context.Context) (Versions, error) {
	v := Versions{Driver: f.file.DriverVersion, CUDA: f.file.CUDAVersion}
	if v.Driver == "" {
		v.Driver = "N/A"
	}
	if v.CUDA == "" {
		v.CUDA = "N/A"
	}
	return v, nil
}

// Lookup returns the OS attributes recorded for pids.
func (f *Fixture) Lookup(_ context.Context, _ string, pids []int) (map[int]ProcessInfo, error) {
	want := make(map[int]bool, len(pids))
	for _, pid := range pids {
		want[pid] = true
	}
	out := make(map[int]ProcessInfo)
	for _, p := range f.file.Processes {
		if !want[p.PID] || p.User == "" {
			continue
		}
		out[p.PID] = ProcessInfo{
			User:       p.User,
			CPUPercent: p.CPUPercent,
			MemPercent: p.MemPercent,
			Elapsed:    p.Elapsed,
			Command:    p.Command,
		}
	}
	return out, nil
}

func mibToBytes(v *int64) *int64 {
	if v == nil {
		return nil
	}
	b := *v * bytesPerMiB
	return &b
}
