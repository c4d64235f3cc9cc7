package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"~", home},
		{"~/logs/gpuwatch.log", filepath.Join(home, "logs/gpuwatch.log")},
		{"~alice/x", "~alice/x"},
		{"/var/log/x", "/var/log/x"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandTilde(tt.input))
		})
	}
}

func TestExpand(t *testing.T) {
	t.Setenv("USER", "alice")
	host, _ := os.Hostname()

	assert.Equal(t, "/tmp/alice/gpuwatch.log", Expand("/tmp/${USER}/gpuwatch.log"))
	assert.Equal(t, "/tmp/"+host+".log", Expand("/tmp/${HOSTNAME}.log"))
	assert.Equal(t, "", Expand(""))
}
