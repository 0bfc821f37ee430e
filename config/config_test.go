package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.Auth.MaxFailedAttempts)
	assert.Equal(t, 5, cfg.Auth.LockoutWindowMinutes)
	assert.Equal(t, "admin123", cfg.Auth.DefaultAdminPassword)
	assert.Equal(t, "csv", cfg.Storage.LockoutBackend)
	assert.Equal(t, 64*1024, cfg.Auth.Argon2.MemoryKB)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
general:
  logLevel: debug
auth:
  maxFailedAttempts: 5
  lockoutWindowMinutes: 15
storage:
  lockoutBackend: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.General.LogLevel)
	assert.Equal(t, 5, cfg.Auth.MaxFailedAttempts)
	assert.Equal(t, 15, cfg.Auth.LockoutWindowMinutes)
	assert.Equal(t, "sqlite", cfg.Storage.LockoutBackend)
	// untouched values keep their defaults
	assert.Equal(t, 8080, cfg.HTTP.Port)
	// relative data dir resolves against the config file location
	assert.Equal(t, filepath.Join(dir, "data"), cfg.General.DataDir)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad log level", "general:\n  logLevel: verbose\n"},
		{"bad lockout backend", "storage:\n  lockoutBackend: redis\n"},
		{"bad max attempts", "auth:\n  maxFailedAttempts: 0\n"},
		{"bad port", "http:\n  port: 99999\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvAdminPassword, "from-env")
	t.Setenv(EnvJWTSecret, "secret-from-env")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "from-env", cfg.Auth.DefaultAdminPassword)
	assert.Equal(t, "secret-from-env", cfg.HTTP.JWT.Secret)
}

func TestApplyEnvOverrides_LegacyName(t *testing.T) {
	t.Setenv(EnvAdminPassword, "")
	t.Setenv(EnvAdminPasswordLegacy, "legacy-pw")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "legacy-pw", cfg.Auth.DefaultAdminPassword)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Auth.MaxFailedAttempts = 7
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Auth.MaxFailedAttempts)
}
