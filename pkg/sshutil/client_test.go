package sshutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoSSH skips the test unless GPUWATCH_TEST_SSH_HOST names a reachable host.
func skipIfNoSSH(t *testing.T) string {
	t.Helper()
	host := os.Getenv("GPUWATCH_TEST_SSH_HOST")
	if host == "" {
		t.Skip("Skipping SSH test: GPUWATCH_TEST_SSH_HOST not set")
	}
	return host
}

func TestDialAndExec(t *testing.T) {
	host := skipIfNoSSH(t)

	client, err := Dial(host, 10*time.Second)
	require.NoError(t, err)
	defer client.Close()

	out, err := client.Exec(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Contains(t, string(out), "hello")

	_, err = client.Exec(context.Background(), "sh -c 'echo boom >&2; exit 3'")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 3")
	assert.Contains(t, err.Error(), "boom")
}

func TestResolveSSHSettings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GPUWATCH_SSH_USER", "")

	tests := []struct {
		name     string
		host     string
		hostname string
		user     string
		port     string
	}{
		{"simple host", "example.com", "example.com", "", "22"},
		{"user at host", "testuser@example.com", "example.com", "testuser", "22"},
		{"host with port", "example.com:2222", "example.com", "", "2222"},
		{"full format", "admin@server.example.com:2222", "server.example.com", "admin", "2222"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := resolveSSHSettings(tt.host)
			assert.Equal(t, tt.hostname, s.hostname)
			assert.Equal(t, tt.port, s.port)
			if tt.user != "" {
				assert.Equal(t, tt.user, s.user)
			}
		})
	}
}

func TestResolveSSHSettings_FromConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".ssh"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".ssh", "config"), []byte(`
Host gpu-a
    HostName 10.0.0.5
    User ml
    Port 2200
    IdentityFile ~/.ssh/id_gpu
`), 0o600))

	s := resolveSSHSettings("gpu-a")
	assert.Equal(t, "10.0.0.5", s.hostname)
	assert.Equal(t, "ml", s.user)
	assert.Equal(t, "2200", s.port)
	assert.Equal(t, filepath.Join(home, ".ssh", "id_gpu"), s.identityFile)
	assert.Equal(t, "10.0.0.5:2200", s.address())

	s = resolveSSHSettings("someone@gpu-a")
	assert.Equal(t, "someone", s.user, "explicit user wins over config")
}

func TestExpandPath(t *testing.T) {
	home := homeDir()

	assert.Equal(t, filepath.Join(home, "test"), expandPath("~/test"))
	assert.Equal(t, "/absolute/path", expandPath("/absolute/path"))
	assert.Equal(t, "relative/path", expandPath("relative/path"))
}

func TestSuggestions(t *testing.T) {
	assert.Contains(t, suggestionForDialError(errors.New("connection refused")), "Is SSH running")
	assert.Contains(t, suggestionForDialError(errors.New("no route to host")), "Can't route")
	assert.Contains(t, suggestionForDialError(errors.New("i/o timeout")), "timed out")
	assert.Contains(t, suggestionForDialError(errors.New("random error")), "reachable")

	assert.Contains(t, suggestionForHandshakeError(errors.New("ssh: unable to authenticate")), "Auth failed")
	assert.Contains(t, suggestionForHandshakeError(errors.New("knownhosts: host key mismatch")), "Host key")
	assert.Contains(t, suggestionForHandshakeError(errors.New("random error")), "Try: ssh")
}

func TestFirstWord(t *testing.T) {
	assert.Equal(t, "nvidia-smi", firstWord("nvidia-smi --query-gpu=index"))
	assert.Equal(t, "", firstWord(""))
}
