package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pterm/pterm"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment overrides, e.g. MINDMAP_THEME=dark.
const EnvPrefix = "MINDMAP_"

// FileStore keeps settings in a YAML file. Environment variables with
// EnvPrefix override the file on every load.
type FileStore struct {
	path   string
	Logger *pterm.Logger

	mu       sync.Mutex
	watchers map[int]*watcher
	nextID   int
}

type watcher struct {
	mu   sync.Mutex
	fn   func(Settings)
	last Settings
	init bool
}

func (w *watcher) deliver(s Settings) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.init && w.last == s {
		return
	}
	w.last, w.init = s, true
	w.fn(s)
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, Logger: &pterm.DefaultLogger, watchers: make(map[int]*watcher)}
}

// DefaultPath is settings.yaml in the user's config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "mindmap", "settings.yaml")
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads the file and environment overrides on top of the defaults.
// A missing file is not an error. Invalid values fall back to defaults.
func (s *FileStore) Load(ctx context.Context) (Settings, error) {
	k := koanf.New(".")

	if _, err := os.Stat(s.path); err == nil {
		if err := k.Load(file.Provider(s.path), yaml.Parser()); err != nil {
			return Defaults(), fmt.Errorf("failed to read settings %s: %w", s.path, err)
		}
	} else if !os.IsNotExist(err) {
		return Defaults(), fmt.Errorf("failed to access settings %s: %w", s.path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(key string) string {
		return canonical(strings.TrimPrefix(key, EnvPrefix))
	}), nil); err != nil {
		return Defaults(), fmt.Errorf("failed to load settings overrides: %w", err)
	}

	out := Defaults()
	if err := k.Unmarshal("", &out); err != nil {
		return Defaults(), fmt.Errorf("failed to decode settings: %w", err)
	}
	return out.Normalize(), nil
}

// Save validates and writes the whole record, then notifies watchers.
func (s *FileStore) Save(ctx context.Context, v Settings) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if err := s.write(v); err != nil {
		return err
	}
	s.broadcast(ctx)
	return nil
}

func (s *FileStore) write(v Settings) error {
	data, err := yamlv3.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings to %s: %w", s.path, err)
	}
	return nil
}

// Reset writes the defaults over every key.
func (s *FileStore) Reset(ctx context.Context) error {
	return s.Save(ctx, Defaults())
}

// Watch delivers the record after every change, whether made through this
// store or by another process editing the file. The file is created with
// defaults when it does not exist yet.
func (s *FileStore) Watch(fn func(Settings)) (func(), error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(Defaults()); err != nil {
			return nil, err
		}
	}

	w := &watcher{fn: fn}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers[id] = w
	s.mu.Unlock()

	provider := file.Provider(s.path)
	err := provider.Watch(func(event interface{}, err error) {
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("settings watch failed", s.Logger.Args("path", s.path, "error", err))
			}
			return
		}
		v, err := s.Load(context.Background())
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("failed to reload settings", s.Logger.Args("error", err))
			}
			return
		}
		w.deliver(v)
	})
	if err != nil {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to watch settings: %w", err)
	}

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
		_ = provider.Unwatch()
	}, nil
}

func (s *FileStore) broadcast(ctx context.Context) {
	v, err := s.Load(ctx)
	if err != nil {
		return
	}
	s.mu.Lock()
	ws := make([]*watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		ws = append(ws, w)
	}
	s.mu.Unlock()
	for _, w := range ws {
		w.deliver(v)
	}
}
