package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kernel/mindmap/internal/hostpage"
	"github.com/kernel/mindmap/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var searchNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newSearchCmd(t *testing.T, pages PageOpener) SearchCmd {
	t.Helper()
	cache, err := search.OpenCache(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return SearchCmd{env: testEnv(pages), cache: cache, now: func() time.Time { return searchNow }}
}

func queryJSON(t *testing.T, c SearchCmd, in SearchQueryInput) []search.Result {
	t.Helper()
	read := captureStdout(t)
	in.Output = "json"
	require.NoError(t, c.Query(context.Background(), in))
	var results []search.Result
	require.NoError(t, json.Unmarshal([]byte(read()), &results))
	return results
}

func TestSearch_IndexThenQuery(t *testing.T) {
	setupStdoutCapture(t)
	c := newSearchCmd(t, &fakePages{layout: hostpage.Sample()})

	require.NoError(t, c.Index(context.Background(), SearchIndexInput{Target: "saved.html"}))
	assert.Contains(t, outBuf.String(), "Indexed 4 nodes from saved.html")

	results := queryJSON(t, c, SearchQueryInput{Query: "grandchild", DateRange: "all", Type: "all"})
	require.Len(t, results, 1)
	assert.Equal(t, "mindmap:g1", results[0].Item.ID)
	assert.Equal(t, "Root > Child 1 > Grandchild 1", results[0].Item.Content)

	results = queryJSON(t, c, SearchQueryInput{DateRange: "all", Type: "mindmap", Tags: []string{"depth-1"}})
	assert.Len(t, results, 2)
}

func TestSearch_ImportAndFilter(t *testing.T) {
	setupStdoutCapture(t)
	c := newSearchCmd(t, nil)
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "n1", "type": "note", "title": "Photosynthesis", "content": "Light reactions in the chloroplast", "tags": ["biology"], "createdAt": "2024-05-09T12:00:00Z"},
		{"id": "s1", "type": "source", "title": "Old paper", "content": "Photosynthesis review", "createdAt": "2024-01-01T00:00:00Z"},
		{"id": "s2", "type": "source", "title": "Undated", "content": "No date"}
	]`), 0o644))

	require.NoError(t, c.Import(context.Background(), path))
	assert.Contains(t, outBuf.String(), "Imported 3 items")

	results := queryJSON(t, c, SearchQueryInput{Query: "photosynthesis", DateRange: "last-7d", Type: "all"})
	require.Len(t, results, 1)
	assert.Equal(t, "n1", results[0].Item.ID)

	results = queryJSON(t, c, SearchQueryInput{DateRange: "last-24h", Type: "source"})
	require.Len(t, results, 1)
	assert.Equal(t, "s2", results[0].Item.ID, "items without a date are stamped on import")

	results = queryJSON(t, c, SearchQueryInput{DateRange: "all", Type: "all", Limit: 2})
	assert.Len(t, results, 2)
}

func TestSearch_ImportRejectsBadItems(t *testing.T) {
	setupStdoutCapture(t)
	c := newSearchCmd(t, nil)
	dir := t.TempDir()

	noID := filepath.Join(dir, "noid.json")
	require.NoError(t, os.WriteFile(noID, []byte(`[{"type": "note", "title": "x"}]`), 0o644))
	assert.ErrorContains(t, c.Import(context.Background(), noID), "has no id")

	badType := filepath.Join(dir, "badtype.json")
	require.NoError(t, os.WriteFile(badType, []byte(`[{"id": "x", "type": "all"}]`), 0o644))
	assert.ErrorContains(t, c.Import(context.Background(), badType), "type must be")

	assert.Error(t, c.Import(context.Background(), filepath.Join(dir, "missing.json")))
}

func TestSearch_QueryRejectsBadFilters(t *testing.T) {
	setupStdoutCapture(t)
	c := newSearchCmd(t, nil)
	ctx := context.Background()

	assert.Error(t, c.Query(ctx, SearchQueryInput{DateRange: "last-year", Type: "all"}))
	assert.Error(t, c.Query(ctx, SearchQueryInput{DateRange: "all", Type: "video"}))
}

func TestSearch_QueryTableAndClear(t *testing.T) {
	setupStdoutCapture(t)
	c := newSearchCmd(t, &fakePages{layout: hostpage.Sample()})
	ctx := context.Background()
	require.NoError(t, c.Index(ctx, SearchIndexInput{Target: "saved.html"}))

	outBuf.Reset()
	require.NoError(t, c.Query(ctx, SearchQueryInput{Query: "child", DateRange: "all", Type: "all"}))
	assert.Contains(t, outBuf.String(), "Child 2")
	assert.Contains(t, outBuf.String(), "items matched")

	outBuf.Reset()
	require.NoError(t, c.Clear(ctx))
	assert.Contains(t, outBuf.String(), "Removed 4 cached items")

	outBuf.Reset()
	require.NoError(t, c.Query(ctx, SearchQueryInput{Query: "child", DateRange: "all", Type: "all"}))
	assert.Contains(t, outBuf.String(), "No matches")
}
