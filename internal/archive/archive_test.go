package archive

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/kernel/mindmap/internal/hostpage"
	"github.com/kernel/mindmap/internal/outline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(dir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func page(body string) string {
	return "<html><body>" + body + "</body></html>"
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	out := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = string(data)
	}
	return out
}

func TestExport(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"biology.html":              page(hostpage.Container(hostpage.Sample())),
		"notes/history.htm":         page(hostpage.Container(hostpage.Deep(2))),
		"empty.html":                page(`<p>no map here</p>`),
		"readme.txt":                "ignored",
		"node_modules/dep/map.html": page(hostpage.Container(hostpage.Sample())),
	})
	dest := filepath.Join(t.TempDir(), "maps.zip")

	var progress []int
	stats, err := Export(context.Background(), src, dest, Options{
		Format:   outline.FormatText,
		Progress: func(pct int) { progress = append(progress, pct) },
		Verbose:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, 2, stats.Exported)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, []string{"empty.html"}, stats.SkippedPaths)
	assert.Equal(t, 7, stats.Entries)
	assert.Equal(t, []int{33, 66, 100}, progress)

	files := readZip(t, dest)
	assert.Equal(t, map[string]string{
		"biology.txt":       "- Root\n  - Child 1\n    - Grandchild 1\n  - Child 2",
		"notes/history.txt": "- Root\n  - Level 1\n    - Level 2",
	}, files)
}

func TestExport_NoSnapshots(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"a.txt": "x"})

	stats, err := Export(context.Background(), src, filepath.Join(t.TempDir(), "out.zip"), Options{})
	assert.Error(t, err)
	assert.Equal(t, 0, stats.Files)
}

func TestExport_Cancelled(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"a.html": page(hostpage.Container(hostpage.Sample()))})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Export(ctx, src, filepath.Join(t.TempDir(), "out.zip"), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEntryName(t *testing.T) {
	assert.Equal(t, "a/b.md", EntryName("a/b.html", outline.FormatMarkdown))
	assert.Equal(t, "c.json", EntryName("c.htm", outline.FormatJSON))
}
