package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rileyhilliard/gpuwatch/internal/errors"
)

// Runner executes a shell command and returns its stdout. On failure the
// returned stdout may still hold partial output.
type Runner interface {
	Run(ctx context.Context, cmd string) ([]byte, error)
}

// LocalRunner runs commands through sh on this machine.
type LocalRunner struct{}

// Run executes cmd with sh -c.
func (LocalRunner) Run(ctx context.Context, cmd string) ([]byte, error) {
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%w: %s", err, msg)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

// SSHRunner runs commands on a remote host through a shared connection pool.
type SSHRunner struct {
	Host string
	Pool *Pool
}

// Run executes cmd on the remote host. A transport failure drops the
// connection it ran on so the next poll redials.
func (r SSHRunner) Run(ctx context.Context, cmd string) ([]byte, error) {
	client, err := r.Pool.Get(r.Host)
	if err != nil {
		return nil, err
	}
	out, err := client.Exec(ctx, cmd)
	if errors.IsCode(err, errors.ErrSSH) {
		r.Pool.Drop(r.Host, client)
	}
	return out, err
}
