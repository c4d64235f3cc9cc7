package snapshot

import (
	"context"
	"sort"

	"github.com/rileyhilliard/gpuwatch/internal/history"
	"github.com/rileyhilliard/gpuwatch/internal/logger"
	"github.com/rileyhilliard/gpuwatch/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

// maxParallelQueries bounds concurrent provider queries per take.
const maxParallelQueries = 8

// DeviceSource takes device snapshots.
type DeviceSource struct {
	Provider telemetry.Provider
	Devices  []telemetry.Device
	GPU      Thresholds
	Memory   Thresholds
	// History, when set, gets one sample per metric per successful query
	// and forgets devices that are no longer tracked.
	History *history.Registry
	Log     logger.Logger
}

// Take queries each device once. A failing device becomes a placeholder
// snapshot; Take itself never fails.
func (s DeviceSource) Take(ctx context.Context) ([]Device, error) {
	log := s.Log
	if log == nil {
		log = logger.Noop()
	}

	out := make([]Device, len(s.Devices))
	var g errgroup.Group
	g.SetLimit(maxParallelQueries)
	for i, d := range s.Devices {
		g.Go(func() error {
			st, err := s.Provider.Query(ctx, d)
			if err != nil {
				log.Warn("device %s: %v", d.ID, err)
			}
			out[i] = NewDevice(d, st, err, s.GPU, s.Memory)
			return nil
		})
	}
	_ = g.Wait()

	if s.History != nil {
		ids := make([]string, len(out))
		for i, d := range out {
			ids[i] = d.ID()
			if d.GPUKnown {
				s.History.Record(history.Key{Entity: d.ID(), Metric: history.MetricGPU}, d.GPUPercent)
			}
			if d.MemoryKnown {
				s.History.Record(history.Key{Entity: d.ID(), Metric: history.MetricMemory}, d.MemoryPercent)
			}
		}
		s.History.Retain(ids)
	}
	return out, nil
}

// ProcessSource takes process snapshots for the tracked devices.
type ProcessSource struct {
	Provider telemetry.Provider
	Info     telemetry.ProcessInfoProvider
	Devices  []telemetry.Device
	Filter   ProcessFilter
	Log      logger.Logger
}

// Take lists GPU processes, resolves their OS attributes with one lookup
// per host and applies the filter. Processes on untracked devices are
// dropped. A failed lookup leaves that host's processes with N/A fields.
func (s ProcessSource) Take(ctx context.Context) ([]Process, error) {
	log := s.Log
	if log == nil {
		log = logger.Noop()
	}

	procs, err := s.Provider.Processes(ctx)
	if err != nil {
		return nil, err
	}

	tracked := make(map[string]bool, len(s.Devices))
	for _, d := range s.Devices {
		tracked[d.ID] = true
	}

	byHost := make(map[string][]int)
	kept := procs[:0:0]
	for _, p := range procs {
		if !tracked[p.DeviceID] {
			continue
		}
		kept = append(kept, p)
		byHost[p.Host] = append(byHost[p.Host], p.PID)
	}

	infos := make(map[string]map[int]telemetry.ProcessInfo, len(byHost))
	hosts := make([]string, 0, len(byHost))
	for h := range byHost {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	for _, h := range hosts {
		if s.Info == nil {
			break
		}
		m, err := s.Info.Lookup(ctx, h, byHost[h])
		if err != nil {
			log.Warn("process info on %q: %v", h, err)
			continue
		}
		infos[h] = m
	}

	out := make([]Process, 0, len(kept))
	for _, p := range kept {
		info, ok := infos[p.Host][p.PID]
		snap := NewProcess(p, info, ok)
		if s.Filter.Match(snap) {
			out = append(out, snap)
		}
	}
	return out, nil
}
