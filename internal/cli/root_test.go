package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigPath(t *testing.T, path string) {
	t.Helper()
	prev := cfgPath
	cfgPath = path
	t.Cleanup(func() { cfgPath = prev })
}

func TestLoadConfig_MissingDefaultFallsBack(t *testing.T) {
	t.Setenv("PORT", "")
	t.Chdir(t.TempDir())
	withConfigPath(t, defaultConfigPath)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadConfig_MissingExplicitPathFails(t *testing.T) {
	t.Chdir(t.TempDir())
	withConfigPath(t, "missing.yaml")

	_, err := loadConfig()
	require.Error(t, err)
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("PORT", "")
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 4000\nlogging:\n  level: debug\n"), 0o600))
	withConfigPath(t, path)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)

	log := setupLogging(cfg)
	assert.NotNil(t, log)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "check", "countries"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
