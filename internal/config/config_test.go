package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "thread", cfg.Strategy)
	assert.Equal(t, 8, cfg.Threads)
	assert.Equal(t, 4, cfg.Processes)
	assert.Equal(t, "table", cfg.Output)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesWithDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "strategy: hybrid\nprocesses: 6\n"))
	require.NoError(t, err)

	assert.Equal(t, "hybrid", cfg.Strategy)
	assert.Equal(t, 6, cfg.Processes)
	assert.Equal(t, 8, cfg.Threads)
	assert.Equal(t, "table", cfg.Output)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "strategi: thread\n", "field strategi not found"},
		{"malformed", "threads: [1, 2\n", "parsing config file"},
		{"bad strategy", "strategy: telepathy\n", "invalid strategy"},
		{"zero threads", "threads: 0\n", "threads must be > 0"},
		{"negative processes", "processes: -3\n", "processes must be > 0"},
		{"bad output", "output: xml\n", "invalid output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/tmp/home")

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "dirsize", filepath.Base(filepath.Dir(path)))
	assert.Equal(t, "config.yaml", filepath.Base(path))
}
