package telemetry

import (
	"context"
	"fmt"
	"sync"

	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/rileyhilliard/gpuwatch/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Fleet merges several hosts into one Provider. Device IDs are prefixed
// with the host so they stay unique.
type Fleet struct {
	hosts     []string
	providers map[string]Provider
	log       logger.Logger
}

// NewFleet creates a fleet over the given per-host providers. hosts fixes
// the display order.
func NewFleet(hosts []string, providers map[string]Provider) *Fleet {
	return &Fleet{
		hosts:     hosts,
		providers: providers,
		log:       logger.NewEnvLogger("[fleet]"),
	}
}

// Hosts returns the hosts in display order.
func (f *Fleet) Hosts() []string {
	return f.hosts
}

// NewSSHFleet builds a fleet running nvidia-smi on each host over SSH,
// along with the matching process lookup.
func NewSSHFleet(hosts []string, pool *Pool) (*Fleet, *PS) {
	providers := make(map[string]Provider, len(hosts))
	runners := make(map[string]Runner, len(hosts))
	for _, h := range hosts {
		r := SSHRunner{Host: h, Pool: pool}
		runners[h] = r
		providers[h] = NewSMI(r, h)
	}
	return NewFleet(hosts, providers), NewPS(runners)
}

// Devices enumerates every host in parallel. Any host failing to enumerate
// fails the whole fleet, since its devices would silently go missing.
func (f *Fleet) Devices(ctx context.Context) ([]Device, error) {
	perHost := make([][]Device, len(f.hosts))

	g, ctx := errgroup.WithContext(ctx)
	for i, h := range f.hosts {
		g.Go(func() error {
			devices, err := f.providers[h].Devices(ctx)
			if err != nil {
				return err
			}
			perHost[i] = devices
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrProviderUnavailable,
			"Can't list GPUs across the fleet",
			"Check every host in --hosts answers: ssh <host> nvidia-smi")
	}

	var all []Device
	for _, devices := range perHost {
		all = append(all, devices...)
	}
	return all, nil
}

// Query delegates to the device's host.
func (f *Fleet) Query(ctx context.Context, d Device) (DeviceStatus, error) {
	p, ok := f.providers[d.Host]
	if !ok {
		return DeviceStatus{}, errors.New(errors.ErrProviderQuery, fmt.Sprintf("Unknown host '%s'", d.Host), "")
	}
	return p.Query(ctx, d)
}

// Processes gathers processes from all hosts. A host that fails is logged
// and left out; the others still show.
func (f *Fleet) Processes(ctx context.Context) ([]Process, error) {
	var (
		mu  sync.Mutex
		all = make([][]Process, len(f.hosts))
	)

	var g errgroup.Group
	for i, h := range f.hosts {
		g.Go(func() error {
			procs, err := f.providers[h].Processes(ctx)
			if err != nil {
				f.log.Warn("processes on %s: %v", h, err)
				return nil
			}
			mu.Lock()
			all[i] = procs
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var out []Process
	for _, procs := range all {
		out = append(out, procs...)
	}
	return out, nil
}

// Versions reports the first host that answers.
func (f *Fleet) Versions(ctx context.Context) (Versions, error) {
	var lastErr error
	for _, h := range f.hosts {
		v, err := f.providers[h].Versions(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return Versions{Driver: "N/A", CUDA: "N/A"}, nil
	}
	return Versions{}, lastErr
}
