package snapshot

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rileyhilliard/gpuwatch/internal/telemetry"
)

// Process is an immutable view of one GPU process at one poll.
type Process struct {
	// Ref identifies the process. It is only compared, never queried.
	Ref telemetry.Process

	User       string
	GPUMemory  string
	CPUPercent string
	MemPercent string
	Elapsed    string
	Command    string

	// Sort keys.
	GPUMemoryBytes int64
	CPU            float64
	Mem            float64
}

// Key identifies a process across polls.
func (p Process) Key() string {
	return fmt.Sprintf("%s/%d", p.Ref.Host, p.Ref.PID)
}

// NewProcess derives a snapshot. When ok is false the OS lookup failed and
// its fields show N/A.
func NewProcess(ref telemetry.Process, info telemetry.ProcessInfo, ok bool) Process {
	p := Process{
		Ref:        ref,
		User:       NA,
		GPUMemory:  Bytes(ref.GPUMemory),
		CPUPercent: NA,
		MemPercent: NA,
		Elapsed:    NA,
		Command:    NA,
	}
	if ref.GPUMemory != nil {
		p.GPUMemoryBytes = *ref.GPUMemory
	}
	if !ok {
		return p
	}

	p.User = orNA(info.User)
	p.Elapsed = orNA(info.Elapsed)
	p.Command = orNA(strings.TrimSpace(info.Command))
	if info.CPUPercent != nil {
		p.CPU = *info.CPUPercent
		p.CPUPercent = fmt.Sprintf("%.1f", *info.CPUPercent)
	}
	if info.MemPercent != nil {
		p.Mem = *info.MemPercent
		p.MemPercent = fmt.Sprintf("%.1f", *info.MemPercent)
	}
	return p
}

// ProcessFilter narrows the process list. Zero value keeps everything.
type ProcessFilter struct {
	// Compute keeps processes with a compute context (C or C+G).
	Compute bool
	// Graphics keeps processes with a graphics context (G or C+G).
	Graphics bool
	Users    []string
	PIDs     []int
}

// Match reports whether p passes every configured rule. User matching needs
// OS info, so it runs on snapshots rather than raw processes.
func (f ProcessFilter) Match(p Process) bool {
	if f.Compute && !strings.Contains(p.Ref.Type, "C") {
		return false
	}
	if f.Graphics && !strings.Contains(p.Ref.Type, "G") {
		return false
	}
	if len(f.Users) > 0 && !slices.Contains(f.Users, p.User) {
		return false
	}
	if len(f.PIDs) > 0 && !slices.Contains(f.PIDs, p.Ref.PID) {
		return false
	}
	return true
}
