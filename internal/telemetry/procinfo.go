package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rileyhilliard/gpuwatch/internal/errors"
)

// PS is a ProcessInfoProvider that asks ps on each host.
type PS struct {
	runners map[string]Runner
}

// NewPS creates a lookup over runners keyed by host ("" for local).
func NewPS(runners map[string]Runner) *PS {
	return &PS{runners: runners}
}

// Lookup runs a single ps for all pids on host.
func (p *PS) Lookup(ctx context.Context, host string, pids []int) (map[int]ProcessInfo, error) {
	if len(pids) == 0 {
		return map[int]ProcessInfo{}, nil
	}
	runner, ok := p.runners[host]
	if !ok {
		return nil, errors.New(errors.ErrProviderQuery, fmt.Sprintf("No runner for host '%s'", host), "")
	}

	list := make([]string, len(pids))
	for i, pid := range pids {
		list[i] = strconv.Itoa(pid)
	}
	out, err := runner.Run(ctx, "ps -o pid=,user=,pcpu=,pmem=,etime=,args= -p "+strings.Join(list, ","))
	// ps exits non-zero when some PIDs are gone; keep whatever it printed.
	if err != nil && len(out) == 0 {
		return nil, errors.Wrap(err, "Process lookup failed")
	}
	return ParsePS(string(out)), nil
}

// ParsePS parses `ps -o pid=,user=,pcpu=,pmem=,etime=,args=` output.
// Malformed lines are skipped.
func ParsePS(output string) map[int]ProcessInfo {
	result := make(map[int]ProcessInfo)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		info := ProcessInfo{
			User:    fields[1],
			Elapsed: fields[4],
		}
		if v, err := strconv.ParseFloat(fields[2], 64); err == nil {
			info.CPUPercent = &v
		}
		if v, err := strconv.ParseFloat(fields[3], 64); err == nil {
			info.MemPercent = &v
		}
		if len(fields) > 5 {
			info.Command = strings.Join(fields[5:], " ")
		}
		result[pid] = info
	}
	return result
}
