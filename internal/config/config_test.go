package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load("")
	assert.Equal(t, ":8443", cfg.ListenAddr)
	assert.Equal(t, ProfileStandard, cfg.Profile)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"listenAddr":":9000","profile":"radius"}`), 0o600))

	cfg := Load(path)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, Profile("radius"), cfg.Profile)
	assert.Equal(t, "dataset.json", cfg.DatasetFile, "unset fields keep their defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"listenAddr":":9000"}`), 0o600))

	t.Setenv("PIR_LISTEN_ADDR", ":9999")
	t.Setenv("PIR_LOG_LEVEL", "debug")

	cfg := Load(path)
	assert.Equal(t, ":9999", cfg.ListenAddr, "environment variables take precedence over the file")
	assert.Equal(t, "debug", cfg.LogLevel)
}
