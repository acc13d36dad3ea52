package main

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// ResponseCache stores raw API response bodies in sqlite, keyed by request
// URL, and serves them until they expire. Plays data barely changes within a
// day, so a 12-hour TTL keeps traffic off the BGG API.
type ResponseCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewResponseCache opens (or creates) the cache database at dbPath.
func NewResponseCache(dbPath string, ttl time.Duration) (*ResponseCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS responses(
				url TEXT PRIMARY KEY,
				body BLOB,
				fetched_at INTEGER
			);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &ResponseCache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached body for url if present and fresh. Expired rows are
// evicted on the way out.
func (c *ResponseCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	row := c.db.QueryRowContext(ctx, `SELECT body, fetched_at FROM responses WHERE url = ?`, url)
	var body []byte
	var fetchedAt int64
	if err := row.Scan(&body, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if c.now().Unix()-fetchedAt > int64(c.ttl.Seconds()) {
		_, err := c.db.ExecContext(ctx, `DELETE FROM responses WHERE url = ?`, url)
		return nil, false, err
	}
	return body, true, nil
}

// Set stores body for url, replacing any previous entry.
func (c *ResponseCache) Set(ctx context.Context, url string, body []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO responses(url, body, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET body=excluded.body, fetched_at=excluded.fetched_at`,
		url, body, c.now().Unix())
	return err
}

// Purge removes every expired row. Called at startup so stale entries from
// previous runs don't sit in the file forever.
func (c *ResponseCache) Purge(ctx context.Context) error {
	cutoff := c.now().Add(-c.ttl).Unix()
	_, err := c.db.ExecContext(ctx, `DELETE FROM responses WHERE fetched_at <= ?`, cutoff)
	return err
}

// Close closes the underlying database.
func (c *ResponseCache) Close() error {
	return c.db.Close()
}
