package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kernel/mindmap/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("KERNEL_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.PollInterval)
	assert.True(t, cfg.Headless)
	assert.Equal(t, profile.DefaultName, cfg.Profile)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cdp_url: ws://127.0.0.1:9222/devtools/browser/abc
timeout: 3s
headless: false
profile: legacy
profiles:
  legacy:
    containers:
      - "#old-map"
    node: ".tree-node"
`), 0o644))
	t.Setenv("MINDMAP_TIMEOUT", "5s")
	t.Setenv("KERNEL_API_KEY", "sk-kernel")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/abc", cfg.CDPURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.False(t, cfg.Headless)
	assert.Equal(t, "sk-kernel", cfg.KernelAPIKey)

	p, err := cfg.ResolveProfile()
	require.NoError(t, err)
	assert.Equal(t, "legacy", p.Name)
	assert.Equal(t, profile.SelectorSet{"#old-map"}, p.Containers)
	assert.Equal(t, ".tree-node", p.Node)
	assert.Equal(t, profile.Default().Labels, p.Labels)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be positive"},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }, "poll_interval must be positive"},
		{"negative debounce", func(c *Config) { c.Debounce = -time.Second }, "debounce"},
		{"unknown profile", func(c *Config) { c.Profile = "nope" }, `unknown profile "nope"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
