package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
addr = ":9090"

[storage]
upload_timeout = "30s"

[storage.fallback]
api_url = "http://fallback:5001"

[eviction]
retention = "72h"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "30s", cfg.Storage.UploadTimeout)
	assert.Equal(t, "http://fallback:5001", cfg.Storage.Fallback.APIURL)
	assert.Equal(t, DefaultFallbackGW, cfg.Storage.Fallback.GatewayURL)
	assert.Equal(t, DefaultPrimaryAPI, cfg.Storage.Primary.APIURL)
	assert.Equal(t, "72h", cfg.Eviction.Retention)
	assert.Equal(t, DefaultEvictSchedule, cfg.Eviction.Schedule)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.Storage.MaxUploadBytes)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\naddr="), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("INGESTD_TEST_DOTENV", "")
	os.Unsetenv("INGESTD_TEST_DOTENV")

	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultEnvPath), []byte("INGESTD_TEST_DOTENV=loaded\n"), 0o644))

	_, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "loaded", os.Getenv("INGESTD_TEST_DOTENV"))
}
