package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rivulet/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "info", cfg.LogLevel)
	require.Len(t, cfg.Adapters, 1)
	require.Equal(t, "local", cfg.Adapters[0].ID)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rivulet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
token: file-token
adapters:
  - id: local
    priority: 5
`), 0o644))
	t.Setenv("RIVULET_CONFIG", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Addr)
	require.Equal(t, "file-token", cfg.Token)
	require.Len(t, cfg.Adapters, 1)
	require.Equal(t, 5, cfg.Adapters[0].Priority)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rivulet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o644))
	t.Setenv("RIVULET_CONFIG", path)
	t.Setenv("RIVULET_ADDR", ":7070")
	t.Setenv("RIVULET_TOKEN", "env-token")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Addr)
	require.Equal(t, "env-token", cfg.Token)
}

func TestDBPathDerivedFromDataDir(t *testing.T) {
	t.Setenv("RIVULET_DATA_DIR", "/var/lib/rivulet")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/var/lib/rivulet", "rivulet.db"), cfg.DBPath)
}

func TestLoadMissingConfigFileFails(t *testing.T) {
	t.Setenv("RIVULET_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := config.Load()
	require.Error(t, err)
}
