package telemetry

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/rileyhilliard/gpuwatch/internal/logger"
)

const bytesPerMiB = 1024 * 1024

// statusFields is the --query-gpu column list ParseDeviceStatus expects, in order.
var statusFields = []string{
	"name",
	"persistence_mode",
	"pci.bus_id",
	"display_active",
	"ecc.errors.uncorrected.volatile.total",
	"fan.speed",
	"temperature.gpu",
	"pstate",
	"power.draw",
	"power.limit",
	"memory.used",
	"memory.total",
	"utilization.gpu",
	"compute_mode",
	"mig.mode.current",
}

var (
	driverVersionRe = regexp.MustCompile(`Driver Version:\s*([0-9.]+)`)
	cudaVersionRe   = regexp.MustCompile(`CUDA Version:\s*([0-9.]+)`)
)

// SMI is a Provider backed by the nvidia-smi CLI, run through a Runner so the
// same code serves local and SSH hosts.
type SMI struct {
	runner Runner
	host   string
	log    logger.Logger

	mu     sync.Mutex
	byUUID map[string]Device
}

// NewSMI creates a provider for host ("" for this machine).
func NewSMI(runner Runner, host string) *SMI {
	return &SMI{
		runner: runner,
		host:   host,
		log:    logger.NewEnvLogger("[smi]"),
		byUUID: make(map[string]Device),
	}
}

func (s *SMI) where() string {
	if s.host == "" {
		return "this machine"
	}
	return "'" + s.host + "'"
}

// Devices lists the GPUs nvidia-smi can see.
func (s *SMI) Devices(ctx context.Context) ([]Device, error) {
	out, err := s.runner.Run(ctx, "nvidia-smi --query-gpu=index,uuid --format=csv,noheader,nounits")
	if err != nil {
		if isNoDevices(string(out)) || isNoDevices(err.Error()) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrProviderUnavailable,
			fmt.Sprintf("Can't list GPUs on %s", s.where()),
			"Is the NVIDIA driver installed? Try: nvidia-smi")
	}

	devices, err := ParseDeviceList(string(out), s.host)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrProviderUnavailable,
			fmt.Sprintf("Unexpected nvidia-smi output on %s", s.where()),
			"Check that nvidia-smi works on its own")
	}

	s.mu.Lock()
	for _, d := range devices {
		s.byUUID[d.UUID] = d
	}
	s.mu.Unlock()

	s.log.Debug("found %d device(s) on %s", len(devices), s.where())
	return devices, nil
}

// Query reads the current metrics of one device.
func (s *SMI) Query(ctx context.Context, d Device) (DeviceStatus, error) {
	cmd := fmt.Sprintf("nvidia-smi --query-gpu=%s --format=csv,noheader,nounits -i %d",
		strings.Join(statusFields, ","), d.Index)
	out, err := s.runner.Run(ctx, cmd)
	if err != nil {
		return DeviceStatus{}, errors.Wrap(err, fmt.Sprintf("Query of GPU %s failed", d.ID))
	}

	status, err := ParseDeviceStatus(string(out))
	if err != nil {
		return DeviceStatus{}, errors.Wrap(err, fmt.Sprintf("Query of GPU %s failed", d.ID))
	}
	return status, nil
}

// Processes lists compute processes. nvidia-smi can't report graphics
// contexts in CSV form, so every process here is type "C".
func (s *SMI) Processes(ctx context.Context) ([]Process, error) {
	out, err := s.runner.Run(ctx, "nvidia-smi --query-compute-apps=gpu_uuid,pid,used_memory --format=csv,noheader,nounits")
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Listing GPU processes on %s failed", s.where()))
	}

	s.mu.Lock()
	byUUID := make(map[string]Device, len(s.byUUID))
	for k, v := range s.byUUID {
		byUUID[k] = v
	}
	s.mu.Unlock()

	procs, err := ParseComputeApps(string(out), func(uuid string) (string, bool) {
		d, ok := byUUID[uuid]
		return d.ID, ok
	})
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Listing GPU processes on %s failed", s.where()))
	}
	for i := range procs {
		procs[i].Host = s.host
	}
	return procs, nil
}

// Versions reads the driver and CUDA versions from the nvidia-smi banner.
func (s *SMI) Versions(ctx context.Context) (Versions, error) {
	out, err := s.runner.Run(ctx, "nvidia-smi")
	if err != nil && len(out) == 0 {
		return Versions{}, errors.Wrap(err, fmt.Sprintf("Reading driver version on %s failed", s.where()))
	}
	return ParseVersions(string(out)), nil
}

// ParseDeviceList parses `nvidia-smi --query-gpu=index,uuid` CSV output.
// Devices on a remote host get IDs of the form "host:index".
func ParseDeviceList(output, host string) ([]Device, error) {
	output = strings.TrimSpace(output)
	if output == "" || isNoDevices(output) {
		return nil, nil
	}

	var devices []Device
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := splitCSV(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("device line has insufficient fields: expected 2, got %d", len(fields))
		}
		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("failed to parse device index '%s': %w", fields[0], err)
		}
		devices = append(devices, Device{
			ID:    deviceID(host, index),
			Host:  host,
			Index: index,
			UUID:  fields[1],
		})
	}
	return devices, nil
}

// ParseDeviceStatus parses one CSV line holding statusFields.
func ParseDeviceStatus(output string) (DeviceStatus, error) {
	fields := splitCSV(strings.TrimSpace(output))
	if len(fields) < len(statusFields) {
		return DeviceStatus{}, fmt.Errorf("nvidia-smi output has insufficient fields: expected %d, got %d",
			len(statusFields), len(fields))
	}

	var (
		st  DeviceStatus
		err error
	)
	st.Name = text(fields[0])
	st.PersistenceMode = text(fields[1])
	st.BusID = text(fields[2])
	st.DisplayActive = text(fields[3])
	if st.ECCErrors, err = parseInt64(fields[4], "ECC errors"); err != nil {
		return DeviceStatus{}, err
	}
	if st.FanSpeed, err = parseInt(fields[5], "fan speed"); err != nil {
		return DeviceStatus{}, err
	}
	if st.Temperature, err = parseInt(fields[6], "temperature"); err != nil {
		return DeviceStatus{}, err
	}
	st.PerformanceState = text(fields[7])
	if st.PowerDraw, err = parseFloat(fields[8], "power draw"); err != nil {
		return DeviceStatus{}, err
	}
	if st.PowerLimit, err = parseFloat(fields[9], "power limit"); err != nil {
		return DeviceStatus{}, err
	}
	if st.MemoryUsed, err = parseMiB(fields[10], "memory used"); err != nil {
		return DeviceStatus{}, err
	}
	if st.MemoryTotal, err = parseMiB(fields[11], "memory total"); err != nil {
		return DeviceStatus{}, err
	}
	if st.GPUUtilization, err = parseInt(fields[12], "GPU utilization"); err != nil {
		return DeviceStatus{}, err
	}
	st.ComputeMode = text(fields[13])
	st.MIGMode = text(fields[14])
	return st, nil
}

// ParseComputeApps parses `nvidia-smi --query-compute-apps=gpu_uuid,pid,used_memory`
// output. resolve maps a GPU UUID to a device ID; rows for unknown devices
// (hidden by filters, for example) are skipped.
func ParseComputeApps(output string, resolve func(uuid string) (string, bool)) ([]Process, error) {
	output = strings.TrimSpace(output)
	if output == "" || strings.Contains(strings.ToLower(output), "no running") {
		return nil, nil
	}

	var procs []Process
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := splitCSV(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("process line has insufficient fields: expected 3, got %d", len(fields))
		}
		deviceID, ok := resolve(fields[0])
		if !ok {
			continue
		}
		pid, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("failed to parse PID '%s': %w", fields[1], err)
		}
		mem, err := parseMiB(fields[2], "process memory")
		if err != nil {
			return nil, err
		}
		procs = append(procs, Process{PID: pid, DeviceID: deviceID, Type: "C", GPUMemory: mem})
	}
	return procs, nil
}

// ParseVersions extracts versions from the nvidia-smi banner. Missing
// values come back as "N/A".
func ParseVersions(output string) Versions {
	v := Versions{Driver: "N/A", CUDA: "N/A"}
	if m := driverVersionRe.FindStringSubmatch(output); m != nil {
		v.Driver = m[1]
	}
	if m := cudaVersionRe.FindStringSubmatch(output); m != nil {
		v.CUDA = m[1]
	}
	return v
}

func deviceID(host string, index int) string {
	if host == "" {
		return strconv.Itoa(index)
	}
	return fmt.Sprintf("%s:%d", host, index)
}

func isNoDevices(s string) bool {
	return strings.Contains(strings.ToLower(s), "no devices")
}

func splitCSV(line string) []string {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// isNA reports whether nvidia-smi left a field unset.
func isNA(s string) bool {
	switch s {
	case "", "N/A", "[N/A]", "[Not Supported]", "Not Supported", "[Unknown Error]":
		return true
	}
	return false
}

func text(s string) string {
	if isNA(s) {
		return ""
	}
	return s
}

func parseInt(s, what string) (*int, error) {
	if isNA(s) {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s '%s': %w", what, s, err)
	}
	return &v, nil
}

func parseInt64(s, what string) (*int64, error) {
	if isNA(s) {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s '%s': %w", what, s, err)
	}
	return &v, nil
}

func parseFloat(s, what string) (*float64, error) {
	if isNA(s) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s '%s': %w", what, s, err)
	}
	return &v, nil
}

// parseMiB converts a MiB count to bytes.
func parseMiB(s, what string) (*int64, error) {
	v, err := parseInt64(s, what)
	if v == nil || err != nil {
		return nil, err
	}
	b := *v * bytesPerMiB
	return &b, nil
}
