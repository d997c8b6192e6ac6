package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Cache persists indexed items between runs in SQLite.
type Cache struct {
	db   *sql.DB
	path string
}

// DefaultCachePath is the cache location under the user cache directory.
func DefaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "mindmap", "search.db")
}

// OpenCache creates or opens the cache at path. ":memory:" keeps it in
// process.
func OpenCache(path string) (*Cache, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open search cache: %w", err)
	}
	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open search cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate search cache: %w", err)
	}
	return &Cache{db: db, path: path}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL CHECK(type IN ('note','source','mindmap')),
    title TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    created_at INTEGER NOT NULL,
    seq INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_type ON items(type);
`

// Path is where the cache lives.
func (c *Cache) Path() string { return c.path }

// Put upserts items in one transaction.
func (c *Cache) Put(ctx context.Context, items ...Item) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM items`).Scan(&seq); err != nil {
		return fmt.Errorf("failed to read cache sequence: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO items (id, type, title, content, tags, created_at, seq)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    type = excluded.type,
    title = excluded.title,
    content = excluded.content,
    tags = excluded.tags,
    created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		tags, err := json.Marshal(nonNil(it.Tags))
		if err != nil {
			return fmt.Errorf("failed to encode tags of %s: %w", it.ID, err)
		}
		seq++
		if _, err := stmt.ExecContext(ctx, it.ID, string(it.Type), it.Title, it.Content, string(tags), it.CreatedAt.UnixMilli(), seq); err != nil {
			return fmt.Errorf("failed to store %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

// All returns every cached item in insertion order.
func (c *Cache) All(ctx context.Context) ([]Item, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, type, title, content, tags, created_at FROM items ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query search cache: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it      Item
			typ     string
			tags    string
			created int64
		)
		if err := rows.Scan(&it.ID, &typ, &it.Title, &it.Content, &tags, &created); err != nil {
			return nil, fmt.Errorf("failed to read cached item: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &it.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags of %s: %w", it.ID, err)
		}
		it.Type = Type(typ)
		it.CreatedAt = time.UnixMilli(created)
		items = append(items, it)
	}
	return items, rows.Err()
}

// Clear deletes every cached item and returns how many there were.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM items`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear search cache: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
