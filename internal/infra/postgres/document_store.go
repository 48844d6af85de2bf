package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-night/internal/app"
	"trivia-night/internal/domain"
)

// DocumentStore keeps documents in the "documents" table created by the migrations package.
type DocumentStore struct {
	pool    *pgxpool.Pool
	maxSize int
}

func NewDocumentStore(pool *pgxpool.Pool, maxSize int) *DocumentStore {
	if maxSize <= 0 {
		maxSize = domain.MaxDocumentSize
	}
	return &DocumentStore{pool: pool, maxSize: maxSize}
}

func (s *DocumentStore) Get(ctx context.Context, key string, shared bool) (app.Record, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM documents WHERE key=$1 AND shared=$2`, key, shared).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return app.Record{}, false, nil
	}
	if err != nil {
		return app.Record{}, false, fmt.Errorf("%w: load document %s: %w", domain.ErrBackend, key, err)
	}
	return app.Record{Key: key, Value: value, Shared: shared}, true, nil
}

func (s *DocumentStore) Set(ctx context.Context, key, value string, shared bool) (app.Record, error) {
	if len(value) > s.maxSize {
		return app.Record{}, fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrTooLarge, key, len(value), s.maxSize)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (key, shared, value, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (key, shared) DO UPDATE SET value=EXCLUDED.value, updated_at=EXCLUDED.updated_at`,
		key, shared, value)
	if err != nil {
		return app.Record{}, fmt.Errorf("%w: store document %s: %w", domain.ErrBackend, key, err)
	}
	return app.Record{Key: key, Value: value, Shared: shared}, nil
}

func (s *DocumentStore) Delete(ctx context.Context, key string, shared bool) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE key=$1 AND shared=$2`, key, shared); err != nil {
		return fmt.Errorf("%w: delete document %s: %w", domain.ErrBackend, key, err)
	}
	return nil
}

func (s *DocumentStore) List(ctx context.Context, prefix string, shared bool) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM documents WHERE shared=$1 AND left(key, length($2::text)) = $2::text ORDER BY key`, shared, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list documents %s: %w", domain.ErrBackend, prefix, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%w: scan document key: %w", domain.ErrBackend, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list documents %s: %w", domain.ErrBackend, prefix, err)
	}
	return keys, nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
