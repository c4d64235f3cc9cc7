package telemetry

import (
	"sync"
	"time"

	"github.com/rileyhilliard/gpuwatch/pkg/sshutil"
	"golang.org/x/sync/singleflight"
)

// Pool keeps one SSH connection per host alive between polls so each
// refresh doesn't pay for a new handshake.
type Pool struct {
	mu          sync.Mutex
	connections map[string]*sshutil.Client
	timeout     time.Duration
	dial        func(host string, timeout time.Duration) (*sshutil.Client, error)
	alive       func(*sshutil.Client) bool
	// dials collapses concurrent Gets for one host into a single handshake.
	dials singleflight.Group
}

// NewPool creates a new SSH connection pool.
func NewPool(timeout time.Duration) *Pool {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Pool{
		connections: make(map[string]*sshutil.Client),
		timeout:     timeout,
		dial:        sshutil.Dial,
		alive:       isAlive,
	}
}

// Get returns the pooled connection for host, dialing a new one if there is
// none or the old one stopped answering. Concurrent callers for the same
// host share one dial.
func (p *Pool) Get(host string) (*sshutil.Client, error) {
	p.mu.Lock()
	client, exists := p.connections[host]
	p.mu.Unlock()

	if exists {
		if p.alive(client) {
			return client, nil
		}
		p.Drop(host, client)
	}

	v, err, _ := p.dials.Do(host, func() (any, error) {
		p.mu.Lock()
		if pooled, ok := p.connections[host]; ok {
			p.mu.Unlock()
			return pooled, nil
		}
		p.mu.Unlock()

		fresh, err := p.dial(host, p.timeout)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.connections[host] = fresh
		p.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sshutil.Client), nil
}

// Close closes all connections in the pool and clears it.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for host, client := range p.connections {
		_ = client.Close()
		delete(p.connections, host)
	}
}

// Drop closes client and removes it, but only if it is still the pooled
// connection for host. Another caller may have redialed in the meantime.
func (p *Pool) Drop(host string, client *sshutil.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.connections[host] == client {
		delete(p.connections, host)
	}
	_ = client.Close()
}

// Size returns the number of connections in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.connections)
}

// isAlive sends a keepalive request, which is cheaper than opening a session.
func isAlive(client *sshutil.Client) bool {
	if client == nil || client.Client == nil {
		return false
	}
	_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}
