package artwork

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is a resolved cover art upload
type Entry struct {
	Path        string // Normalized local path
	Fingerprint string // Change fingerprint of the file when it was uploaded
	URL         string // Remote URL returned by the image host
	Width       int    // Resize parameters used, zero when uploaded as-is
	Height      int
	CreatedAt   time.Time
}

// Cache stores resolved uploads in SQLite, keyed by local path. At most one
// entry exists per path; a new fingerprint replaces the old entry.
type Cache struct {
	db *sql.DB
}

// OpenCache opens or creates the cache database. ":memory:" gives a cache
// that lives as long as the process.
func OpenCache(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps an in-memory database shared by all queries
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS art_cache (
			path TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			url TEXT NOT NULL,
			width INTEGER NOT NULL DEFAULT 0,
			height INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database connection
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the entry for path, if any, regardless of its fingerprint
func (c *Cache) Get(ctx context.Context, path string) (Entry, bool, error) {
	query := `
		SELECT path, fingerprint, url, width, height, created_at
		FROM art_cache
		WHERE path = ?
	`

	var e Entry
	var created int64
	err := c.db.QueryRowContext(ctx, query, path).Scan(
		&e.Path, &e.Fingerprint, &e.URL, &e.Width, &e.Height, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to query cache: %w", err)
	}
	e.CreatedAt = time.Unix(created, 0)
	return e, true, nil
}

// Put stores e, replacing any previous entry for the same path
func (c *Cache) Put(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO art_cache (path, fingerprint, url, width, height, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			url = excluded.url,
			width = excluded.width,
			height = excluded.height,
			created_at = excluded.created_at
	`

	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := c.db.ExecContext(ctx, query,
		e.Path, e.Fingerprint, e.URL, e.Width, e.Height, created.Unix(),
	); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry for path
func (c *Cache) Delete(ctx context.Context, path string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM art_cache WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (c *Cache) count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM art_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}
