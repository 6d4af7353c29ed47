// Package store is the SQLite-backed cache of extracted reference pages.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"updater/internal/core"
)

// DefaultTTL is how long an extraction stays fresh.
const DefaultTTL = 24 * time.Hour

const (
	dbFile = "updater.db"
	table  = "extractions"
)

// Store caches extracted reference text keyed by URL.
type Store struct {
	db   *sql.DB
	path string
	ttl  time.Duration
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore opens (creating if needed) the cache database in dataDir.
func NewStore(dataDir string, ttl time.Duration, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serialises writers; one connection avoids SQLITE_BUSY under fan-out
	db.SetMaxOpenConns(1)

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{db: db, path: dbPath, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS extractions (
		url TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the cached reference for url if it is younger than the TTL.
func (s *Store) Lookup(ctx context.Context, url string) (core.Reference, bool, error) {
	query, args, err := sq.Select("url", "title", "text").
		From(table).
		Where(sq.Eq{"url": url}).
		Where(sq.Gt{"fetched_at": s.now().Add(-s.ttl).UnixMilli()}).
		ToSql()
	if err != nil {
		return core.Reference{}, false, err
	}

	var ref core.Reference
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&ref.URL, &ref.Title, &ref.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Reference{}, false, nil
	}
	if err != nil {
		return core.Reference{}, false, fmt.Errorf("failed to scan extraction: %w", err)
	}
	return ref, true, nil
}

// Save stores ref, replacing any previous entry for its URL.
func (s *Store) Save(ctx context.Context, ref core.Reference) error {
	query, args, err := sq.Replace(table).
		Columns("url", "title", "text", "fetched_at").
		Values(ref.URL, ref.Title, ref.Text, s.now().UnixMilli()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to cache extraction: %w", err)
	}
	return nil
}

// Prune removes entries older than the TTL and returns how many were dropped.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	query, args, err := sq.Delete(table).
		Where(sq.LtOrEq{"fetched_at": s.now().Add(-s.ttl).UnixMilli()}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	return res.RowsAffected()
}

// Stats describes the cache contents.
type Stats struct {
	Entries   int
	Fresh     int
	SizeBytes int64
}

// Stats returns entry counts and the database file size.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	total, args, err := sq.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return stats, err
	}
	if err := s.db.QueryRowContext(ctx, total, args...).Scan(&stats.Entries); err != nil {
		return stats, fmt.Errorf("failed to count entries: %w", err)
	}

	fresh, args, err := sq.Select("COUNT(*)").
		From(table).
		Where(sq.Gt{"fetched_at": s.now().Add(-s.ttl).UnixMilli()}).
		ToSql()
	if err != nil {
		return stats, err
	}
	if err := s.db.QueryRowContext(ctx, fresh, args...).Scan(&stats.Fresh); err != nil {
		return stats, fmt.Errorf("failed to count fresh entries: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}
