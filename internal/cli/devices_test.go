package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/gpuwatch/internal/config"
	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/rileyhilliard/gpuwatch/internal/telemetry"
	"github.com/rileyhilliard/gpuwatch/pkg/sshutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withSSHConfig points host expansion at an SSH config holding content.
func withSSHConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	orig := sshHostEntries
	sshHostEntries = func() ([]sshutil.SSHHostEntry, error) {
		return sshutil.ParseSSHConfigFile(path)
	}
	t.Cleanup(func() { sshHostEntries = orig })
}

const fleetSSHConfig = `
Host gpu-a
    HostName 10.0.0.1

Host gpu-b
    HostName 10.0.0.2

Host build
    HostName 10.0.0.3

Host *
    User ml
`

func TestExpandHosts_GlobMatchesConfigAliases(t *testing.T) {
	withSSHConfig(t, fleetSSHConfig)

	hosts, err := expandHosts([]string{"gpu-*", "10.0.0.9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"gpu-a", "gpu-b", "10.0.0.9"}, hosts)
}

func TestExpandHosts_NoSSHConfigKeepsPlainNames(t *testing.T) {
	orig := sshHostEntries
	sshHostEntries = func() ([]sshutil.SSHHostEntry, error) {
		return sshutil.ParseSSHConfigFile(filepath.Join(t.TempDir(), "missing"))
	}
	t.Cleanup(func() { sshHostEntries = orig })

	hosts, err := expandHosts([]string{"gpu1", "gpu-*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"gpu1"}, hosts)
}

func TestExpandHosts_NothingMatches(t *testing.T) {
	withSSHConfig(t, fleetSSHConfig)

	_, err := expandHosts([]string{"tpu-*"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "No SSH hosts match tpu-*")
}

func TestNewSource_HostPatternBuildsFleet(t *testing.T) {
	withSSHConfig(t, fleetSSHConfig)
	cfg := config.DefaultConfig()
	cfg.Provider.Hosts = []string{"gpu-*"}

	src, err := newSource(cfg)
	require.NoError(t, err)
	defer src.close()

	fleet, ok := src.provider.(*telemetry.Fleet)
	require.True(t, ok)
	assert.Equal(t, []string{"gpu-a", "gpu-b"}, fleet.Hosts())
	assert.NotNil(t, src.info)
}

func TestNewSource_UnmatchedHostPattern(t *testing.T) {
	withSSHConfig(t, fleetSSHConfig)
	cfg := config.DefaultConfig()
	cfg.Provider.Hosts = []string{"tpu-*"}

	_, err := newSource(cfg)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}
