package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "LOCAL", cfg.Privacy.DefaultMode)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Contains(t, cfg.Models, "local")
}

func TestLoadAppliesFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\nprivacy:\n  default_mode: HYBRID\n"), 0o644))

	t.Setenv("EMBER_SERVER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "HYBRID", cfg.Privacy.DefaultMode)
}

func TestLoadWithoutPathReturnsDefaulted(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestValidateRejectsBadPrivacyMode(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Privacy.DefaultMode = "BOGUS"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadServerPort(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Server.Port = 99999
	assert.Error(t, cfg.Validate())
}

func TestDumpWritesYAML(t *testing.T) {
	cfg := NewDefaultConfig()
	out, err := cfg.Dump()
	require.NoError(t, err)
	assert.Contains(t, out, "port: 8080")
}
