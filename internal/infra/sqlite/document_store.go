package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"trivia-night/internal/app"
	"trivia-night/internal/domain"
)

// Open opens (or creates) a SQLite database at path. A single connection is
// kept so that ":memory:" databases are shared by every caller.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// DocumentStore keeps documents in a single "documents" table.
type DocumentStore struct {
	db      *sql.DB
	maxSize int
}

func NewDocumentStore(ctx context.Context, db *sql.DB, maxSize int) (*DocumentStore, error) {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents (
		key        TEXT    NOT NULL,
		shared     INTEGER NOT NULL DEFAULT 0,
		value      TEXT    NOT NULL,
		updated_at TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
		PRIMARY KEY (key, shared)
	)`)
	if err != nil {
		return nil, fmt.Errorf("creating table: %w", err)
	}
	if maxSize <= 0 {
		maxSize = domain.MaxDocumentSize
	}
	return &DocumentStore{db: db, maxSize: maxSize}, nil
}

func (s *DocumentStore) Get(ctx context.Context, key string, shared bool) (app.Record, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM documents WHERE key = ? AND shared = ?`, key, shared,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return app.Record{}, false, nil
	}
	if err != nil {
		return app.Record{}, false, fmt.Errorf("%w: sqlite get %s: %w", domain.ErrBackend, key, err)
	}
	return app.Record{Key: key, Value: value, Shared: shared}, true, nil
}

func (s *DocumentStore) Set(ctx context.Context, key, value string, shared bool) (app.Record, error) {
	if len(value) > s.maxSize {
		return app.Record{}, fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrTooLarge, key, len(value), s.maxSize)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (key, shared, value) VALUES (?, ?, ?)
		 ON CONFLICT(key, shared) DO UPDATE SET value = excluded.value,
		 updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		key, shared, value,
	)
	if err != nil {
		return app.Record{}, fmt.Errorf("%w: sqlite set %s: %w", domain.ErrBackend, key, err)
	}
	return app.Record{Key: key, Value: value, Shared: shared}, nil
}

func (s *DocumentStore) Delete(ctx context.Context, key string, shared bool) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ? AND shared = ?`, key, shared); err != nil {
		return fmt.Errorf("%w: sqlite delete %s: %w", domain.ErrBackend, key, err)
	}
	return nil
}

func (s *DocumentStore) List(ctx context.Context, prefix string, shared bool) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM documents WHERE shared = ? AND substr(key, 1, length(?)) = ? ORDER BY key`,
		shared, prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite list %s: %w", domain.ErrBackend, prefix, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%w: sqlite scan: %w", domain.ErrBackend, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: sqlite list %s: %w", domain.ErrBackend, prefix, err)
	}
	return keys, nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
