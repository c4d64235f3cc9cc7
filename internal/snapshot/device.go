package snapshot

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/rileyhilliard/gpuwatch/internal/telemetry"
)

// NA is shown wherever a value couldn't be read.
const NA = "N/A"

// NameWidth is the widest device name a row has room for.
const NameWidth = 18

// Device is an immutable view of one device at one poll. Display strings
// are worked out once here so drawing only copies them.
type Device struct {
	// Ref identifies the device. It is only compared, never queried.
	Ref telemetry.Device

	Name             string
	PersistenceMode  string
	BusID            string
	DisplayActive    string
	ECCErrors        string
	FanSpeed         string
	Temperature      string
	PerformanceState string
	PowerStatus      string
	MemoryUsage      string
	GPUUtilization   string
	ComputeMode      string
	MIGMode          string

	GPUPercent    float64
	GPUKnown      bool
	MemoryPercent float64
	MemoryKnown   bool

	GPULoad    LoadClass
	MemoryLoad LoadClass
	// Load is the heavier of GPULoad and MemoryLoad.
	Load LoadClass

	// Failed is set when the query for this poll errored; every field is N/A.
	Failed bool
}

// ID is the stable identifier of the device Ref points at. Compare IDs to
// tell whether two snapshots describe the same device.
func (d Device) ID() string { return d.Ref.ID }

// NewDevice derives a snapshot from a raw status. A non-nil queryErr yields
// a placeholder snapshot instead.
func NewDevice(ref telemetry.Device, st telemetry.DeviceStatus, queryErr error, gpu, mem Thresholds) Device {
	if queryErr != nil {
		return failedDevice(ref)
	}

	d := Device{
		Ref:              ref,
		Name:             deviceName(ref.Host, st.Name),
		PersistenceMode:  onOff(st.PersistenceMode),
		BusID:            orNA(st.BusID),
		DisplayActive:    onOff(st.DisplayActive),
		ECCErrors:        NA,
		FanSpeed:         NA,
		Temperature:      NA,
		PerformanceState: orNA(st.PerformanceState),
		PowerStatus:      powerStatus(st.PowerDraw, st.PowerLimit),
		MemoryUsage:      memoryUsage(st.MemoryUsed, st.MemoryTotal),
		GPUUtilization:   NA,
		ComputeMode:      computeMode(st.ComputeMode),
		MIGMode:          orNA(st.MIGMode),
	}

	if st.ECCErrors != nil {
		d.ECCErrors = fmt.Sprintf("%d", *st.ECCErrors)
	}
	if st.FanSpeed != nil {
		d.FanSpeed = fmt.Sprintf("%d%%", *st.FanSpeed)
		if *st.FanSpeed >= 100 {
			d.FanSpeed = "MAX"
		}
	}
	if st.Temperature != nil {
		d.Temperature = fmt.Sprintf("%dC", *st.Temperature)
	}
	if st.GPUUtilization != nil {
		d.GPUPercent = float64(*st.GPUUtilization)
		d.GPUKnown = true
		d.GPUUtilization = fmt.Sprintf("%d%%", *st.GPUUtilization)
	}
	if st.MemoryUsed != nil && st.MemoryTotal != nil && *st.MemoryTotal > 0 {
		d.MemoryPercent = 100 * float64(*st.MemoryUsed) / float64(*st.MemoryTotal)
		d.MemoryKnown = true
	}

	d.GPULoad = classifyKnown(gpu, d.GPUPercent, d.GPUKnown)
	d.MemoryLoad = classifyKnown(mem, d.MemoryPercent, d.MemoryKnown)
	d.Load = maxClass(d.GPULoad, d.MemoryLoad)
	return d
}

func failedDevice(ref telemetry.Device) Device {
	return Device{
		Ref:              ref,
		Name:             NA,
		PersistenceMode:  NA,
		BusID:            NA,
		DisplayActive:    NA,
		ECCErrors:        NA,
		FanSpeed:         NA,
		Temperature:      NA,
		PerformanceState: NA,
		PowerStatus:      NA,
		MemoryUsage:      NA,
		GPUUtilization:   NA,
		ComputeMode:      NA,
		MIGMode:          NA,
		GPULoad:          Moderate,
		MemoryLoad:       Moderate,
		Load:             Moderate,
		Failed:           true,
	}
}

// deviceName drops the vendor prefix, qualifies fleet devices with their
// host and cuts the name to NameWidth cells.
func deviceName(host, name string) string {
	if name == "" {
		name = NA
	}
	name = strings.TrimPrefix(name, "NVIDIA ")
	if host != "" {
		name = host + ":" + name
	}
	return runewidth.Truncate(name, NameWidth, "..")
}

func onOff(s string) string {
	switch s {
	case "Enabled":
		return "On"
	case "Disabled":
		return "Off"
	}
	return orNA(s)
}

// computeMode shortens e.g. "Exclusive_Process" to "E. Process".
func computeMode(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	return orNA(strings.ReplaceAll(s, "Exclusive", "E."))
}

func orNA(s string) string {
	if s == "" {
		return NA
	}
	return s
}

func powerStatus(draw, limit *float64) string {
	if draw == nil && limit == nil {
		return NA
	}
	return watts(draw) + " / " + watts(limit)
}

func watts(v *float64) string {
	if v == nil {
		return NA
	}
	return fmt.Sprintf("%.0fW", *v)
}

func memoryUsage(used, total *int64) string {
	if used == nil && total == nil {
		return NA
	}
	return Bytes(used) + " / " + Bytes(total)
}

// Bytes formats a byte count compactly, e.g. "1.5GiB".
func Bytes(v *int64) string {
	if v == nil || *v < 0 {
		return NA
	}
	return strings.ReplaceAll(humanize.IBytes(uint64(*v)), " ", "")
}
