package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Exec runs cmd on the remote host and returns its stdout. A non-zero exit
// status is an error carrying the trimmed stderr. Cancelling ctx closes the
// session, which aborts the remote command.
func (c *Client) Exec(ctx context.Context, cmd string) ([]byte, error) {
	session, err := c.NewSession()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to open an SSH session on '%s'", c.Host),
			"Connection may have been closed. It will be retried on the next poll.")
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = session.Close()
		return nil, ctx.Err()
	case err = <-done:
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if stderrors.As(err, &exitErr) {
			return stdout.Bytes(), fmt.Errorf("%s on %s exited with status %d: %s",
				firstWord(cmd), c.Host, exitErr.ExitStatus(), strings.TrimSpace(stderr.String()))
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to run %s on '%s'", firstWord(cmd), c.Host),
			"Check the command exists on the remote host.")
	}
	return stdout.Bytes(), nil
}

func firstWord(cmd string) string {
	if f := strings.Fields(cmd); len(f) > 0 {
		return f[0]
	}
	return cmd
}
