// Package cache is a small sqlite-backed TTL cache for backend
// catalog responses, bounding how often server-rendered pages hit the
// backend.
package cache

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

func New(dbPath string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS catalog_entries (
			scope TEXT NOT NULL,
			key TEXT NOT NULL,
			data TEXT NOT NULL,
			fetched_at DATETIME NOT NULL,
			PRIMARY KEY (scope, key)
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, ttl: ttl}, nil
}

// Get loads the cached entry for (scope, key) into dest. It reports
// false on a miss, an expired entry or undecodable data.
func (c *Cache) Get(scope, key string, dest any) bool {
	var data string
	var fetchedAt time.Time

	err := c.db.QueryRow(
		`SELECT data, fetched_at FROM catalog_entries WHERE scope = ? AND key = ?`,
		scope, key,
	).Scan(&data, &fetchedAt)

	if err != nil {
		return false
	}

	if time.Since(fetchedAt) > c.ttl {
		return false
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		log.Printf("Cache: failed to unmarshal entry %s/%s: %v", scope, key, err)
		return false
	}

	return true
}

// Set stores v under (scope, key). Failures are logged, never
// returned: a broken cache write must not fail the page render.
func (c *Cache) Set(scope, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Cache: failed to marshal entry %s/%s: %v", scope, key, err)
		return
	}

	_, err = c.db.Exec(
		`INSERT INTO catalog_entries (scope, key, data, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(scope, key)
		 DO UPDATE SET data = excluded.data, fetched_at = excluded.fetched_at`,
		scope, key, string(data), time.Now(),
	)
	if err != nil {
		log.Printf("Cache: failed to store entry %s/%s: %v", scope, key, err)
	}
}

func (c *Cache) Close() error {
	return c.db.Close()
}
