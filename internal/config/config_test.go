package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/compose-network/bolt/internal/config"
)

func TestLoad_AppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
runner:
  num_tries: 5
api:
  listen_addr: ":9999"
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, 5, cfg.Runner.NumTries)
	require.Equal(t, ":9999", cfg.API.ListenAddr)
	// untouched keys keep their defaults
	require.Equal(t, 200, cfg.API.JobHistorySize)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
runner:
  num_tries: 0
`), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}
