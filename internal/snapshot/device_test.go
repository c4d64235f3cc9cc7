package snapshot

import (
	"errors"
	"testing"

	"github.com/rileyhilliard/gpuwatch/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

func status(util int, usedMiB, totalMiB int64) telemetry.DeviceStatus {
	return telemetry.DeviceStatus{
		Name:            "NVIDIA A100-SXM4-80GB",
		PersistenceMode: "Enabled",
		DisplayActive:   "Disabled",
		FanSpeed:        telemetry.Ref(30),
		Temperature:     telemetry.Ref(41),
		PowerDraw:       telemetry.Ref(68.5),
		PowerLimit:      telemetry.Ref(400.0),
		MemoryUsed:      telemetry.Ref(usedMiB * 1024 * 1024),
		MemoryTotal:     telemetry.Ref(totalMiB * 1024 * 1024),
		GPUUtilization:  telemetry.Ref(util),
		ComputeMode:     "Exclusive_Process",
	}
}

func TestThresholds(t *testing.T) {
	th := Thresholds{Low: 10, High: 75}

	tests := []struct {
		value    float64
		expected LoadClass
	}{
		{0, Light},
		{9.9, Light},
		{10, Moderate},
		{74, Moderate},
		{75, Heavy},
		{100, Heavy},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, th.Classify(tt.value), "value %v", tt.value)
	}

	assert.True(t, DefaultGPUThresholds.Valid())
	assert.True(t, DefaultMemoryThresholds.Valid())
	assert.False(t, Thresholds{Low: 0, High: 50}.Valid())
	assert.False(t, Thresholds{Low: 50, High: 50}.Valid())
	assert.False(t, Thresholds{Low: 10, High: 100}.Valid())

	assert.Equal(t, "heavy", Heavy.String())
	assert.Equal(t, "LoadClass(7)", LoadClass(7).String())
}

func TestNewDevice(t *testing.T) {
	ref := telemetry.Device{ID: "0"}
	d := NewDevice(ref, status(45, 1024, 81920), nil, DefaultGPUThresholds, DefaultMemoryThresholds)

	assert.Equal(t, "A100-SXM4-80GB", d.Name)
	assert.Equal(t, "On", d.PersistenceMode)
	assert.Equal(t, "Off", d.DisplayActive)
	assert.Equal(t, "30%", d.FanSpeed)
	assert.Equal(t, "41C", d.Temperature)
	assert.Equal(t, "68W / 400W", d.PowerStatus)
	assert.Equal(t, "1.0GiB / 80GiB", d.MemoryUsage)
	assert.Equal(t, "45%", d.GPUUtilization)
	assert.Equal(t, "E. Process", d.ComputeMode)
	assert.Equal(t, NA, d.ECCErrors)
	assert.Equal(t, NA, d.BusID)
	assert.InDelta(t, 1.25, d.MemoryPercent, 0.001)
	assert.Equal(t, Moderate, d.GPULoad)
	assert.Equal(t, Light, d.MemoryLoad)
	assert.Equal(t, Moderate, d.Load)
	assert.Equal(t, ref.ID, d.ID())
}

func TestNewDevice_Derivations(t *testing.T) {
	st := status(0, 0, 1)
	st.Name = "NVIDIA GeForce RTX 4090 Laptop GPU"
	st.FanSpeed = telemetry.Ref(100)
	st.GPUUtilization = nil

	d := NewDevice(telemetry.Device{ID: "0"}, st, nil, DefaultGPUThresholds, DefaultMemoryThresholds)

	assert.Equal(t, "GeForce RTX 4090..", d.Name)
	assert.Equal(t, "MAX", d.FanSpeed)
	assert.Equal(t, NA, d.GPUUtilization)
	assert.False(t, d.GPUKnown)
	assert.Equal(t, Moderate, d.GPULoad, "unknown utilization is moderate")
}

func TestNewDevice_FleetName(t *testing.T) {
	ref := telemetry.Device{ID: "gpu-a:1", Host: "gpu-a", Index: 1}
	d := NewDevice(ref, status(10, 1, 10), nil, DefaultGPUThresholds, DefaultMemoryThresholds)

	assert.Equal(t, "gpu-a:A100-SXM4-..", d.Name)
}

func TestNewDevice_QueryFailure(t *testing.T) {
	d := NewDevice(telemetry.Device{ID: "3"}, telemetry.DeviceStatus{}, errors.New("timeout"),
		DefaultGPUThresholds, DefaultMemoryThresholds)

	assert.True(t, d.Failed)
	assert.Equal(t, "3", d.ID())
	assert.Equal(t, NA, d.Name)
	assert.Equal(t, NA, d.MemoryUsage)
	assert.False(t, d.GPUKnown)
}

func TestNewDevice_LoadClasses(t *testing.T) {
	gpu := Thresholds{Low: 10, High: 75}
	mem := Thresholds{Low: 10, High: 80}

	idle := NewDevice(telemetry.Device{ID: "0"}, status(2, 100, 10000), nil, gpu, mem)
	busy := NewDevice(telemetry.Device{ID: "1"}, status(50, 100, 10000), nil, gpu, mem)
	hot := NewDevice(telemetry.Device{ID: "2"}, status(95, 100, 10000), nil, gpu, mem)
	full := NewDevice(telemetry.Device{ID: "3"}, status(2, 9500, 10000), nil, gpu, mem)

	assert.Equal(t, Light, idle.Load)
	assert.Equal(t, Moderate, busy.Load)
	assert.Equal(t, Heavy, hot.Load)
	assert.Equal(t, Heavy, full.Load, "memory pressure alone is enough")
}

func TestBytes(t *testing.T) {
	assert.Equal(t, NA, Bytes(nil))
	assert.Equal(t, "512MiB", Bytes(telemetry.Ref(int64(512*1024*1024))))
	assert.Equal(t, "0B", Bytes(telemetry.Ref(int64(0))))
}
