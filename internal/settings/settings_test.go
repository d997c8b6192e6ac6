package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWhenNothingStored(t *testing.T) {
	want := Settings{AutoExpand: true, HotkeysEnabled: true, DefaultDepth: -1, Theme: ThemeAuto}

	fs := NewFileStore(filepath.Join(t.TempDir(), "missing", "settings.yaml"))
	got, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = NewMemoryStore().Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStore_PartialFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defaultDepth: 2\ntheme: purple\n"), 0o644))

	fs := NewFileStore(path)
	got, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, got.DefaultDepth)
	assert.Equal(t, ThemeAuto, got.Theme)
	assert.True(t, got.AutoExpand)

	t.Setenv("MINDMAP_THEME", "dark")
	t.Setenv("MINDMAP_AUTO_EXPAND", "false")
	got, err = fs.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, got.Theme)
	assert.False(t, got.AutoExpand)
	assert.Equal(t, 2, got.DefaultDepth)
}

func TestFileStore_SaveRoundTripAndValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	fs := NewFileStore(path)
	ctx := context.Background()

	want := Settings{AutoExpand: false, HotkeysEnabled: false, DefaultDepth: 3, Theme: ThemeLight}
	require.NoError(t, fs.Save(ctx, want))
	got, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hotkeysEnabled: false")

	assert.Error(t, fs.Save(ctx, Settings{DefaultDepth: -2, Theme: ThemeAuto}))
	assert.Error(t, fs.Save(ctx, Settings{Theme: "neon"}))

	require.NoError(t, fs.Reset(ctx))
	got, err = fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

type recorder struct {
	mu   sync.Mutex
	seen []Settings
}

func (r *recorder) add(s Settings) {
	r.mu.Lock()
	r.seen = append(r.seen, s)
	r.mu.Unlock()
}

func (r *recorder) last() (Settings, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return Settings{}, 0
	}
	return r.seen[len(r.seen)-1], len(r.seen)
}

func TestFileStore_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	fs := NewFileStore(path)
	ctx := context.Background()

	rec := &recorder{}
	stop, err := fs.Watch(rec.add)
	require.NoError(t, err)
	defer stop()
	_, err = os.Stat(path)
	require.NoError(t, err)

	dark := Defaults()
	dark.Theme = ThemeDark
	require.NoError(t, fs.Save(ctx, dark))
	require.Eventually(t, func() bool {
		got, _ := rec.last()
		return got.Theme == ThemeDark
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("theme: light\n"), 0o644))
	require.Eventually(t, func() bool {
		got, _ := rec.last()
		return got.Theme == ThemeLight
	}, 3*time.Second, 20*time.Millisecond)
}

func TestMemoryStore_WatchAndLastWriteWins(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	rec := &recorder{}
	stop, err := m.Watch(rec.add)
	require.NoError(t, err)

	a := Defaults()
	a.DefaultDepth = 1
	b := Defaults()
	b.DefaultDepth = 4
	require.NoError(t, m.Save(ctx, a))
	require.NoError(t, m.Save(ctx, b))

	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, got.DefaultDepth)
	last, n := rec.last()
	assert.Equal(t, 4, last.DefaultDepth)
	assert.Equal(t, 2, n)

	stop()
	require.NoError(t, m.Save(ctx, a))
	_, n = rec.last()
	assert.Equal(t, 2, n)
}

func TestLive(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	live, err := NewLive(ctx, m)
	require.NoError(t, err)
	defer live.Close()
	assert.Equal(t, Defaults(), live.Current())

	off := Defaults()
	off.HotkeysEnabled = false
	require.NoError(t, m.Save(ctx, off))
	assert.False(t, live.Current().HotkeysEnabled)

	assert.Equal(t, off, Static(off).Current())
}

func TestGetSet(t *testing.T) {
	s := Defaults()

	s, err := s.Set("default-depth", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, s.DefaultDepth)

	s, err = s.Set("hotkeys_enabled", "false")
	require.NoError(t, err)
	v, err := s.Get("hotkeysEnabled")
	require.NoError(t, err)
	assert.Equal(t, "false", v)

	_, err = s.Set("theme", "neon")
	assert.Error(t, err)
	_, err = s.Set("defaultDepth", "-3")
	assert.Error(t, err)
	_, err = s.Set("nope", "1")
	assert.Error(t, err)
	_, err = s.Get("nope")
	assert.Error(t, err)
}
