package storage

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// SQLiteOption configures a SQLite medium.
type SQLiteOption func(*SQLite)

// WithSQLiteQueryTimeout sets the per-query timeout. Defaults to DefaultQueryTimeout.
func WithSQLiteQueryTimeout(d time.Duration) SQLiteOption {
	return func(s *SQLite) { s.queryTimeout = d }
}

// SQLite is a file-backed Medium using modernc.org/sqlite (pure Go, no CGO).
// Entries survive process restarts when a file path is used.
type SQLite struct {
	db           *sql.DB
	queryTimeout time.Duration
	once         sync.Once
}

var _ Medium = (*SQLite)(nil)

// NewSQLite opens (or creates) the database at path. An empty path or
// ":memory:" selects an in-memory database.
func NewSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLite, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "storage: open sqlite %q", path)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "storage: enable WAL")
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "storage: create kv table")
	}

	s := &SQLite{db: db, queryTimeout: DefaultQueryTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SQLite) Read(ctx context.Context, key string) ([]byte, bool, error) {
	qctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()
	var data []byte
	err := s.db.QueryRowContext(qctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *SQLite) Write(ctx context.Context, key string, data []byte) error {
	qctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()
	_, err := s.db.ExecContext(qctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, data,
	)
	return err
}

func (s *SQLite) Remove(ctx context.Context, key string) (bool, error) {
	qctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()
	result, err := s.db.ExecContext(qctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *SQLite) Keys(ctx context.Context, prefix string) ([]string, error) {
	qctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()
	// prefixes may contain LIKE wildcards
	rows, err := s.db.QueryContext(qctx,
		`SELECT key FROM kv WHERE substr(key, 1, ?) = ?`, len([]rune(prefix)), prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLite) Close() error {
	var err error
	s.once.Do(func() {
		err = s.db.Close()
	})
	return err
}
