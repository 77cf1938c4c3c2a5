package geocode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"igosint/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS places (
	lat_key    TEXT NOT NULL,
	lng_key    TEXT NOT NULL,
	address    TEXT NOT NULL,
	lat        REAL NOT NULL,
	lng        REAL NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (lat_key, lng_key)
);`

// Cache answers from a SQLite database and falls back to next on a miss.
// Coordinates are keyed at five decimals, about one meter.
type Cache struct {
	db     *sql.DB
	next   Reverser
	logger logger.Logger
}

// OpenCache opens or creates the cache database at path
func OpenCache(path string, next Reverser, log logger.Logger) (*Cache, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geocode cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open geocode cache: %w", err)
	}

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000; PRAGMA journal_mode = WAL;`); err != nil {
		log.WithError(err).Debug("Could not enable WAL for geocode cache")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create geocode cache schema: %w", err)
	}

	return &Cache{db: db, next: next, logger: log.WithField("component", "geocode_cache")}, nil
}

func key(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}

// Reverse returns the cached place or asks next and stores its answer
func (c *Cache) Reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	var p Place
	err := c.db.QueryRowContext(ctx,
		`SELECT address, lat, lng FROM places WHERE lat_key = ? AND lng_key = ?`,
		key(lat), key(lng),
	).Scan(&p.Address, &p.Lat, &p.Lng)
	switch {
	case err == nil:
		return &p, nil
	case !errors.Is(err, sql.ErrNoRows):
		c.logger.WithError(err).Warn("Geocode cache lookup failed")
	}

	place, err := c.next.Reverse(ctx, lat, lng)
	if err != nil {
		return nil, err
	}

	if _, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO places (lat_key, lng_key, address, lat, lng, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		key(lat), key(lng), place.Address, place.Lat, place.Lng, time.Now().Unix(),
	); err != nil {
		c.logger.WithError(err).Warn("Failed to store geocode result")
	}
	return place, nil
}

// Len returns the number of cached places
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM places`).Scan(&n)
	return n, err
}

// Close closes the database
func (c *Cache) Close() error {
	return c.db.Close()
}
