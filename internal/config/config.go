// Package config loads the CLI configuration: built-in defaults, then
// ~/.config/mindmap/config.yaml, then MINDMAP_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/kernel/mindmap/internal/bridge"
	"github.com/kernel/mindmap/internal/profile"
	"github.com/kernel/mindmap/internal/search"
	"github.com/kernel/mindmap/internal/settings"
	"github.com/kernel/mindmap/internal/watch"
)

// EnvPrefix marks environment overrides, e.g. MINDMAP_CDP_URL.
const EnvPrefix = "MINDMAP_"

// Config holds everything the commands need to reach a page.
type Config struct {
	// CDPURL attaches to a running browser instead of launching one.
	CDPURL       string        `koanf:"cdp_url"`
	Headless     bool          `koanf:"headless"`
	KernelAPIKey string        `koanf:"kernel_api_key"`
	Timeout      time.Duration `koanf:"timeout"`
	PollInterval time.Duration `koanf:"poll_interval"`
	Debounce     time.Duration `koanf:"debounce"`

	Profile  string                     `koanf:"profile"`
	Profiles map[string]profile.Profile `koanf:"profiles"`

	SettingsPath string `koanf:"settings_path"`
	CachePath    string `koanf:"cache_path"`
	Listen       string `koanf:"listen"`

	OpenAIModel   string `koanf:"openai_model"`
	OpenAIBaseURL string `koanf:"openai_base_url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Headless:     true,
		Timeout:      10 * time.Second,
		PollInterval: 200 * time.Millisecond,
		Debounce:     watch.DefaultDebounce,
		Profile:      profile.DefaultName,
		SettingsPath: settings.DefaultPath(),
		CachePath:    search.DefaultCachePath(),
		Listen:       bridge.DefaultAddr,
	}
}

// DefaultPath is config.yaml in the user's config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "mindmap", "config.yaml")
}

// Load reads the optional .env file, the YAML file at path and the
// environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to access config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.KernelAPIKey == "" {
		cfg.KernelAPIKey = os.Getenv("KERNEL_API_KEY")
	}
	return cfg, nil
}

// Validate checks durations and the selected profile.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must be non-negative, got %s", c.Debounce)
	}
	if _, err := c.ResolveProfile(); err != nil {
		return err
	}
	return nil
}

// ResolveProfile returns the selected profile merged over the default.
func (c *Config) ResolveProfile() (profile.Profile, error) {
	return profile.Resolve(c.Profile, c.Profiles)
}
