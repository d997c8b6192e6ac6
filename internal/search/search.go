// Package search indexes notes, sources and mind-map entries for fuzzy
// lookup with advanced filters.
package search

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kernel/mindmap/internal/outline"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// Type is the kind of an indexed item.
type Type string

const (
	TypeAny     Type = "all"
	TypeNote    Type = "note"
	TypeSource  Type = "source"
	TypeMindMap Type = "mindmap"
)

// ParseType accepts all, note, source and mindmap. Empty means all.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case "", TypeAny:
		return TypeAny, nil
	case TypeNote, TypeSource, TypeMindMap:
		return t, nil
	}
	return "", fmt.Errorf("invalid source type %q (expected all, note, source or mindmap)", s)
}

// Item is one searchable record.
type Item struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
}

// DateRange limits results to recently created items.
type DateRange string

const (
	AllTime DateRange = "all"
	Last24h DateRange = "last-24h"
	Last7d  DateRange = "last-7d"
	Last30d DateRange = "last-30d"
)

// ParseDateRange accepts all, last-24h, last-7d and last-30d. Empty means all.
func ParseDateRange(s string) (DateRange, error) {
	switch r := DateRange(strings.ToLower(strings.TrimSpace(s))); r {
	case "", AllTime:
		return AllTime, nil
	case Last24h, Last7d, Last30d:
		return r, nil
	}
	return "", fmt.Errorf("invalid date range %q (expected all, last-24h, last-7d or last-30d)", s)
}

// Since returns the earliest creation time the range admits, or the zero
// time for AllTime.
func (r DateRange) Since(now time.Time) time.Time {
	switch r {
	case Last24h:
		return now.Add(-24 * time.Hour)
	case Last7d:
		return now.Add(-7 * 24 * time.Hour)
	case Last30d:
		return now.Add(-30 * 24 * time.Hour)
	}
	return time.Time{}
}

// Filters narrow a result set. Zero values filter nothing.
type Filters struct {
	DateRange        DateRange `json:"dateRange,omitempty"`
	SourceType       Type      `json:"sourceType,omitempty"`
	MinContentLength int       `json:"contentLength,omitempty"`
	// Tags must all be present on an item.
	Tags []string `json:"tags,omitempty"`
}

// Keep reports whether it passes every filter.
func (f Filters) Keep(it Item, now time.Time) bool {
	if since := f.DateRange.Since(now); !since.IsZero() && it.CreatedAt.Before(since) {
		return false
	}
	if f.SourceType != "" && f.SourceType != TypeAny && it.Type != f.SourceType {
		return false
	}
	if f.MinContentLength > 0 && len([]rune(it.Content)) < f.MinContentLength {
		return false
	}
	return lo.Every(it.Tags, f.Tags)
}

// Result is a matched item. Lower distances rank first; an empty query
// matches everything at distance zero.
type Result struct {
	Item     Item `json:"item"`
	Distance int  `json:"distance"`
}

// Index is an in-memory searchable collection, safe for concurrent use.
type Index struct {
	// Now is used by date filters.
	Now func() time.Time

	mu    sync.RWMutex
	items []Item
}

// NewIndex returns an index holding items.
func NewIndex(items ...Item) *Index {
	idx := &Index{Now: time.Now}
	idx.Add(items...)
	return idx
}

// Add inserts items, replacing any with the same ID.
func (idx *Index) Add(items ...Item) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, it := range items {
		if _, i, ok := lo.FindIndexOf(idx.items, func(x Item) bool { return x.ID == it.ID }); ok {
			idx.items[i] = it
			continue
		}
		idx.items = append(idx.items, it)
	}
}

// Reset replaces the whole collection.
func (idx *Index) Reset(items ...Item) {
	idx.mu.Lock()
	idx.items = nil
	idx.mu.Unlock()
	idx.Add(items...)
}

// Len returns the number of indexed items.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.items)
}

// Items returns a copy of the collection in insertion order.
func (idx *Index) Items() []Item {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]Item(nil), idx.items...)
}

// Search ranks items against query across title, content and tags, then
// applies the filters.
func (idx *Index) Search(query string, f Filters) []Result {
	query = strings.TrimSpace(query)
	now := time.Now()
	if idx.Now != nil {
		now = idx.Now()
	}

	var out []Result
	for _, it := range idx.Items() {
		d := 0
		if query != "" {
			d = distance(query, it)
			if d < 0 {
				continue
			}
		}
		if !f.Keep(it, now) {
			continue
		}
		out = append(out, Result{Item: it, Distance: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

// distance is the best fold-normalized rank over the searchable fields, or
// -1 when no field matches.
func distance(query string, it Item) int {
	best := -1
	for _, field := range append([]string{it.Title, it.Content}, it.Tags...) {
		r := fuzzy.RankMatchNormalizedFold(query, field)
		if r >= 0 && (best < 0 || r < best) {
			best = r
		}
	}
	return best
}

// FromOutline turns mind-map entries into items. Content carries the path
// of ancestor labels so a search finds a node by its branch.
func FromOutline(doc outline.Document, createdAt time.Time) []Item {
	ancestors := doc.Ancestors()
	items := make([]Item, 0, len(doc))
	for i, e := range doc {
		path := append(append([]string(nil), ancestors[i]...), e.Label)
		items = append(items, Item{
			ID:        "mindmap:" + e.ID,
			Type:      TypeMindMap,
			Title:     e.Label,
			Content:   strings.Join(path, " > "),
			Tags:      []string{fmt.Sprintf("depth-%d", e.Depth)},
			CreatedAt: createdAt,
		})
	}
	return items
}
