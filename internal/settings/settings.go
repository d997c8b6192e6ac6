// Package settings holds the user preferences shared by every companion
// surface and the stores that persist them. Writes are last-write-wins.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Theme selects the toolbar and terminal palette.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	case ThemeAuto:
		return ThemeAuto, nil
	}
	return "", fmt.Errorf("invalid theme %q: must be one of light, dark, auto", s)
}

// UnboundedDepth lets auto-expand open every level.
const UnboundedDepth = -1

// Settings is the persisted preference record.
type Settings struct {
	AutoExpand     bool  `json:"autoExpand" koanf:"autoExpand" yaml:"autoExpand"`
	HotkeysEnabled bool  `json:"hotkeysEnabled" koanf:"hotkeysEnabled" yaml:"hotkeysEnabled"`
	DefaultDepth   int   `json:"defaultDepth" koanf:"defaultDepth" yaml:"defaultDepth"`
	Theme          Theme `json:"theme" koanf:"theme" yaml:"theme"`
}

// Defaults apply to every key missing from storage.
func Defaults() Settings {
	return Settings{
		AutoExpand:     true,
		HotkeysEnabled: true,
		DefaultDepth:   UnboundedDepth,
		Theme:          ThemeAuto,
	}
}

// Validate rejects values the options page would not produce.
func (s Settings) Validate() error {
	if s.DefaultDepth < UnboundedDepth {
		return fmt.Errorf("invalid defaultDepth %d: must be -1 or greater", s.DefaultDepth)
	}
	if _, err := ParseTheme(string(s.Theme)); err != nil {
		return err
	}
	return nil
}

// Normalize replaces invalid values with their defaults.
func (s Settings) Normalize() Settings {
	d := Defaults()
	if s.DefaultDepth < UnboundedDepth {
		s.DefaultDepth = d.DefaultDepth
	}
	if t, err := ParseTheme(string(s.Theme)); err != nil {
		s.Theme = d.Theme
	} else {
		s.Theme = t
	}
	return s
}

// Keys lists the setting names in display order.
var Keys = []string{"autoExpand", "hotkeysEnabled", "defaultDepth", "theme"}

// Get returns the value of key as a string.
func (s Settings) Get(key string) (string, error) {
	switch canonical(key) {
	case "autoExpand":
		return strconv.FormatBool(s.AutoExpand), nil
	case "hotkeysEnabled":
		return strconv.FormatBool(s.HotkeysEnabled), nil
	case "defaultDepth":
		return strconv.Itoa(s.DefaultDepth), nil
	case "theme":
		return string(s.Theme), nil
	}
	return "", fmt.Errorf("unknown setting %q: must be one of %s", key, strings.Join(Keys, ", "))
}

// Set parses value into key.
func (s Settings) Set(key, value string) (Settings, error) {
	switch canonical(key) {
	case "autoExpand":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return s, fmt.Errorf("invalid autoExpand %q: %w", value, err)
		}
		s.AutoExpand = b
	case "hotkeysEnabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return s, fmt.Errorf("invalid hotkeysEnabled %q: %w", value, err)
		}
		s.HotkeysEnabled = b
	case "defaultDepth":
		n, err := strconv.Atoi(value)
		if err != nil {
			return s, fmt.Errorf("invalid defaultDepth %q: %w", value, err)
		}
		s.DefaultDepth = n
	case "theme":
		t, err := ParseTheme(value)
		if err != nil {
			return s, err
		}
		s.Theme = t
	default:
		return s, fmt.Errorf("unknown setting %q: must be one of %s", key, strings.Join(Keys, ", "))
	}
	return s, s.Validate()
}

func canonical(key string) string {
	k := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(key))
	for _, known := range Keys {
		if strings.ToLower(known) == k {
			return known
		}
	}
	return key
}

// Store persists settings. Load applies defaults for anything missing.
// Watch calls fn with the new record after every change until stop is called.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
	Watch(fn func(Settings)) (stop func(), err error)
}
