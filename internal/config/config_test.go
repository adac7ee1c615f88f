package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "figbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1:38450", cfg.Addr())
	assert.Equal(t, "http://127.0.0.1:38450", cfg.BaseURL())
	assert.Equal(t, 25*time.Second, cfg.WaitPlugin)
	assert.Equal(t, 30*time.Second, cfg.OpTimeout)
	assert.Equal(t, 2500*time.Millisecond, cfg.LivenessWindow)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile_Overlay(t *testing.T) {
	path := writeFile(t, `
port: 40000
op_timeout: 45s
liveness_window: 1500ms
journal: "-"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40000, cfg.Port)
	assert.Equal(t, 45*time.Second, cfg.OpTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.LivenessWindow)
	assert.Equal(t, JournalDisabled, cfg.Journal)
	// Untouched keys keep their defaults.
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 25*time.Second, cfg.WaitPlugin)
}

func TestLoadFile_EmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile_UnknownKey(t *testing.T) {
	_, err := Load(writeFile(t, "prot: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prot")
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseEnv_OverridesFile(t *testing.T) {
	path := writeFile(t, "port: 40000\nhost: 0.0.0.0\n")
	t.Setenv("FIGBRIDGE_PORT", "41000")
	t.Setenv("FIGBRIDGE_WAIT_PLUGIN", "3s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 41000, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 3*time.Second, cfg.WaitPlugin)
}

func TestParseEnv_Invalid(t *testing.T) {
	t.Setenv("FIGBRIDGE_PORT", "not-a-port")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"zero op timeout", func(c *Config) { c.OpTimeout = 0 }},
		{"negative wait", func(c *Config) { c.WaitPlugin = -time.Second }},
		{"zero window", func(c *Config) { c.LivenessWindow = 0 }},
		{"zero reap interval", func(c *Config) { c.ReapInterval = 0 }},
		{"zero reap age", func(c *Config) { c.ReapMaxAge = 0 }},
		{"negative backups", func(c *Config) { c.LogMaxBackups = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
