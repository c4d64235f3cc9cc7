// Package telemetry talks to the things that know about GPUs: nvidia-smi on
// this machine or on SSH hosts, ps for the owning processes, and YAML
// fixtures for demos and tests.
//
// Everything here may block on a subprocess or the network, so it is only
// ever called from snapshot pollers, never from the draw path.
package telemetry

import "context"

// Device identifies one accelerator. Snapshots keep it to answer "is this the
// same device" questions; it carries no live state.
type Device struct {
	// ID is unique across hosts: "0" locally, "host:0" in a fleet.
	ID    string
	Host  string
	Index int
	UUID  string
}

// DeviceStatus is one device's raw metrics. Numeric fields the driver reports
// as N/A are nil, text fields are empty.
type DeviceStatus struct {
	Name             string
	PersistenceMode  string
	BusID            string
	DisplayActive    string
	ECCErrors        *int64
	FanSpeed         *int
	Temperature      *int
	PerformanceState string
	PowerDraw        *float64 // watts
	PowerLimit       *float64 // watts
	MemoryUsed       *int64   // bytes
	MemoryTotal      *int64   // bytes
	GPUUtilization   *int
	ComputeMode      string
	MIGMode          string
}

// Process is a workload holding a GPU context.
type Process struct {
	PID      int
	Host     string
	DeviceID string
	// Type is "C" (compute), "G" (graphics) or "C+G".
	Type      string
	GPUMemory *int64 // bytes
}

// ProcessInfo is what the OS knows about a process.
type ProcessInfo struct {
	User       string
	CPUPercent *float64
	MemPercent *float64
	Elapsed    string
	Command    string
}

// Versions describes the driver stack.
type Versions struct {
	Driver string
	CUDA   string
}

// Provider enumerates and queries devices.
//
// Devices failing is fatal at startup; an empty list is valid. A Query error
// only degrades that one device.
type Provider interface {
	Devices(ctx context.Context) ([]Device, error)
	Query(ctx context.Context, d Device) (DeviceStatus, error)
	Processes(ctx context.Context) ([]Process, error)
	Versions(ctx context.Context) (Versions, error)
}

// ProcessInfoProvider looks up OS attributes for GPU processes on a host
// ("" is the local machine). PIDs it can't resolve are absent from the result.
type ProcessInfoProvider interface {
	Lookup(ctx context.Context, host string, pids []int) (map[int]ProcessInfo, error)
}

// Ref returns a pointer to v.
func Ref[T any](v T) *T {
	return &v
}
