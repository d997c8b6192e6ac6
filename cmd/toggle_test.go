package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kernel/mindmap/internal/companion"
	"github.com/kernel/mindmap/internal/hostpage"
	"github.com/kernel/mindmap/internal/toggle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expandedSample() hostpage.NodeSpec {
	s := hostpage.Sample()
	s.Children[0].Expanded = true
	return s
}

func TestToggle_ExpandAllWalksWithoutHostButton(t *testing.T) {
	setupStdoutCapture(t)
	pages := &fakePages{layout: hostpage.Sample()}
	c := ToggleCmd{env: testEnv(pages)}

	err := c.Run(context.Background(), ToggleInput{Target: "saved.html", Direction: toggle.Expand, Depth: toggle.Unbounded})
	require.NoError(t, err)

	assert.True(t, pages.last().Expanded("c1"))
	assert.Equal(t, 1, pages.closedCount())
	out := outBuf.String()
	assert.Contains(t, out, "Expanded saved.html: 1 toggles activated")
	assert.Contains(t, out, "4 labelled nodes")
}

func TestToggle_CollapseAll(t *testing.T) {
	setupStdoutCapture(t)
	pages := &fakePages{layout: expandedSample()}
	c := ToggleCmd{env: testEnv(pages)}

	err := c.Run(context.Background(), ToggleInput{Target: "saved.html", Direction: toggle.Collapse, Depth: toggle.Unbounded})
	require.NoError(t, err)

	assert.False(t, pages.last().Expanded("c1"))
	assert.Contains(t, outBuf.String(), "Collapsed saved.html")
}

func TestToggle_DepthBound(t *testing.T) {
	setupStdoutCapture(t)
	pages := &fakePages{layout: hostpage.Deep(4)}
	c := ToggleCmd{env: testEnv(pages)}

	err := c.Run(context.Background(), ToggleInput{Target: "saved.html", Direction: toggle.Expand, Depth: 2})
	require.NoError(t, err)

	page := pages.last()
	assert.True(t, page.Expanded("n1"))
	assert.True(t, page.Expanded("n2"))
	assert.False(t, page.Expanded("n3"))
	assert.Contains(t, outBuf.String(), "2 toggles activated")
}

func TestToggle_SaveWritesSnapshot(t *testing.T) {
	setupStdoutCapture(t)
	pages := &fakePages{layout: hostpage.Sample()}
	c := ToggleCmd{env: testEnv(pages)}
	dest := filepath.Join(t.TempDir(), "expanded.html")

	err := c.Run(context.Background(), ToggleInput{Target: "saved.html", Direction: toggle.Expand, Depth: toggle.Unbounded, Save: dest})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), `aria-expanded="true"`)
	assert.Contains(t, outBuf.String(), "Saved page to "+dest)
}

func TestToggle_JSONOutput(t *testing.T) {
	setupStdoutCapture(t)
	read := captureStdout(t)
	pages := &fakePages{layout: hostpage.Sample()}
	c := ToggleCmd{env: testEnv(pages)}

	err := c.Run(context.Background(), ToggleInput{Target: "saved.html", Direction: toggle.Expand, Depth: toggle.Unbounded, Output: "json"})
	require.NoError(t, err)

	var got ToggleOutput
	require.NoError(t, json.Unmarshal([]byte(read()), &got))
	assert.Equal(t, ToggleOutput{
		Target:      "saved.html",
		Direction:   toggle.Expand.String(),
		Method:      companion.MethodWalk,
		Activations: 1,
		Entries:     4,
	}, got)
}

func TestToggle_NoMindMap(t *testing.T) {
	setupStdoutCapture(t)
	pages := &fakePages{html: "<html><body><p>nothing here</p></body></html>"}
	c := ToggleCmd{env: testEnv(pages)}

	err := c.Run(context.Background(), ToggleInput{Target: "saved.html", Direction: toggle.Expand, Depth: toggle.Unbounded})
	require.Error(t, err)
	assert.Contains(t, outBuf.String(), "Could not expand saved.html")
}

func writeSavedPage(t *testing.T, markup string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "saved.html")
	require.NoError(t, os.WriteFile(path, []byte("<html><body>"+markup+"</body></html>"), 0o644))
	return path
}

func TestToggle_SavedPageExpandsAndSaves(t *testing.T) {
	setupStdoutCapture(t)
	read := captureStdout(t)
	src := writeSavedPage(t, hostpage.Container(hostpage.Sample()))
	dest := filepath.Join(t.TempDir(), "expanded.html")
	c := ToggleCmd{env: testEnv(browserPages{})}

	err := c.Run(context.Background(), ToggleInput{Target: src, Direction: toggle.Expand, Depth: toggle.Unbounded, Save: dest, Output: "json"})
	require.NoError(t, err)

	var got ToggleOutput
	require.NoError(t, json.Unmarshal([]byte(read()), &got))
	assert.Equal(t, 1, got.Activations)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), `aria-expanded="true"`)
	assert.NotContains(t, string(data), `aria-expanded="false"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestToggle_SavedPageCollapses(t *testing.T) {
	setupStdoutCapture(t)
	src := writeSavedPage(t, hostpage.Container(expandedSample()))
	dest := filepath.Join(t.TempDir(), "collapsed.html")
	c := ToggleCmd{env: testEnv(browserPages{})}

	err := c.Run(context.Background(), ToggleInput{Target: src, Direction: toggle.Collapse, Depth: toggle.Unbounded, Save: dest})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), `aria-expanded="false"`)
	assert.Contains(t, string(data), `aria-label="Expand"`)
	assert.Contains(t, outBuf.String(), "Collapsed "+src)
}

func TestWriteSnapshot(t *testing.T) {
	page, err := hostpage.New(hostpage.Sample())
	require.NoError(t, err)
	p := &Page{Doc: page, Snapshot: page.Document}

	dest := filepath.Join(t.TempDir(), "out.html")
	require.NoError(t, writeSnapshot(p, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), `class="mind-map-container"`)

	err = writeSnapshot(p, filepath.Join(t.TempDir(), "missing", "out.html"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create")
}
