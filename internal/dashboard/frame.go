package dashboard

import (
	"fmt"
	"strings"
)

// Table geometry shared by the device and process panels.
const (
	// BaseWidth is the width of the fixed tables.
	BaseWidth = 79
	// BarWidth is the terminal width from which per-device bars are drawn.
	BarWidth = 100
)

var (
	headerTop     = "╒" + strings.Repeat("═", BaseWidth-2) + "╕"
	headerRule    = "├" + strings.Repeat("─", 31) + "┬" + strings.Repeat("─", 22) + "┬" + strings.Repeat("─", 22) + "┤"
	headerBottom  = "╞" + strings.Repeat("═", 31) + "╪" + strings.Repeat("═", 22) + "╪" + strings.Repeat("═", 22) + "╡"
	dataLine      = "│" + strings.Repeat(" ", 31) + "│" + strings.Repeat(" ", 22) + "│" + strings.Repeat(" ", 22) + "│"
	separatorLine = "├" + strings.Repeat("─", 31) + "┼" + strings.Repeat("─", 22) + "┼" + strings.Repeat("─", 22) + "┤"
	tableBottom   = "╘" + strings.Repeat("═", 31) + "╧" + strings.Repeat("═", 22) + "╧" + strings.Repeat("═", 22) + "╛"

	wideRule   = "╞" + strings.Repeat("═", BaseWidth-2) + "╡"
	wideBottom = "╘" + strings.Repeat("═", BaseWidth-2) + "╛"
	noDevices  = padRight("│  No visible devices found", BaseWidth-1) + "│"
)

const (
	titleCompact = "│ GPU Fan Temp Perf Pwr:Usg/Cap │         Memory-Usage │ GPU-Util  Compute M. │"
	titleFull1   = "│ GPU  Name        Persistence-M│ Bus-Id        Disp.A │ Volatile Uncorr. ECC │"
	titleFull2   = "│ Fan  Temp  Perf  Pwr:Usage/Cap│         Memory-Usage │ GPU-Util  Compute M. │"
)

// headerLines returns the table header below the clock line.
func headerLines(driver, cuda string, devices int, compact, mig bool) []string {
	lines := []string{
		headerTop,
		fmt.Sprintf("│ NVIDIA-SMI %-12s Driver Version: %-12s CUDA Version: %-8s │", driver, driver, cuda),
	}
	if devices == 0 {
		return append(lines, wideRule, noDevices, wideBottom)
	}

	lines = append(lines, headerRule)
	if compact {
		lines = append(lines, titleCompact)
	} else {
		title := titleFull1
		if mig {
			title = strings.Replace(title, "Volatile Uncorr. ECC", "MIG M.   Uncorr. ECC", 1)
		}
		lines = append(lines, title, titleFull2)
	}
	return append(lines, headerBottom)
}

// frameLines returns the header plus empty device rows, extended to width
// when bars are drawn.
func frameLines(driver, cuda string, devices int, compact, mig bool, width int) []string {
	frame := headerLines(driver, cuda, devices, compact, mig)
	if devices == 0 {
		return frame
	}

	extra := width - BaseWidth
	data, sep := dataLine, separatorLine
	bars := width >= BarWidth
	if bars {
		data += strings.Repeat(" ", extra-1) + "│"
		sep = trimLast(sep) + "┼" + strings.Repeat("─", extra-1) + "┤"
	}

	for i := 0; i < devices; i++ {
		if !compact {
			frame = append(frame, data)
		}
		frame = append(frame, data, sep)
	}
	frame[len(frame)-1] = tableBottom

	if bars {
		top := len(frame) - 1 - devices*rowsPerDevice(compact)
		frame[top] = trimLast(frame[top]) + "╪" + strings.Repeat("═", extra-1) + "╕"
		last := len(frame) - 1
		frame[last] = trimLast(frame[last]) + "╧" + strings.Repeat("═", extra-1) + "╛"
	}
	return frame
}

func rowsPerDevice(compact bool) int {
	if compact {
		return 2
	}
	return 3
}

// DeviceHeight is the device panel height, clock line included.
func DeviceHeight(devices int, compact bool) int {
	if devices == 0 {
		return 6
	}
	return 4 + rowsPerDevice(compact)*(devices+1)
}

func trimLast(s string) string {
	r := []rune(s)
	return string(r[:len(r)-1])
}
