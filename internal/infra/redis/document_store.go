package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"trivia-night/internal/app"
	"trivia-night/internal/domain"
)

const (
	sharedPrefix = "shared:"
	scanCount    = 100
)

// DocumentStore is a Redis-backed implementation of app.Store.
// Each document is a plain string value:
//
//	SET shared:game:{CODE} {json}   (shared)
//	SET game:{CODE} {json}          (private)
//
// A zero TTL keeps documents until they are deleted.
type DocumentStore struct {
	client  *redis.Client
	ttl     time.Duration
	maxSize int
}

func NewDocumentStore(client *redis.Client, ttl time.Duration, maxSize int) *DocumentStore {
	if maxSize <= 0 {
		maxSize = domain.MaxDocumentSize
	}
	return &DocumentStore{client: client, ttl: ttl, maxSize: maxSize}
}

func (s *DocumentStore) Get(ctx context.Context, key string, shared bool) (app.Record, bool, error) {
	value, err := s.client.Get(ctx, s.key(key, shared)).Result()
	if errors.Is(err, redis.Nil) {
		return app.Record{}, false, nil
	}
	if err != nil {
		return app.Record{}, false, fmt.Errorf("%w: redis get %s: %w", domain.ErrBackend, key, err)
	}
	return app.Record{Key: key, Value: value, Shared: shared}, true, nil
}

func (s *DocumentStore) Set(ctx context.Context, key, value string, shared bool) (app.Record, error) {
	if len(value) > s.maxSize {
		return app.Record{}, fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrTooLarge, key, len(value), s.maxSize)
	}
	if err := s.client.Set(ctx, s.key(key, shared), value, s.ttl).Err(); err != nil {
		return app.Record{}, fmt.Errorf("%w: redis set %s: %w", domain.ErrBackend, key, err)
	}
	return app.Record{Key: key, Value: value, Shared: shared}, nil
}

func (s *DocumentStore) Delete(ctx context.Context, key string, shared bool) error {
	if err := s.client.Del(ctx, s.key(key, shared)).Err(); err != nil {
		return fmt.Errorf("%w: redis del %s: %w", domain.ErrBackend, key, err)
	}
	return nil
}

// List scans the namespace for keys starting with prefix.
func (s *DocumentStore) List(ctx context.Context, prefix string, shared bool) ([]string, error) {
	pattern := escapeGlob(s.key(prefix, shared)) + "*"
	keys := make([]string, 0)
	iter := s.client.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if shared {
			k = strings.TrimPrefix(k, sharedPrefix)
		} else if strings.HasPrefix(k, sharedPrefix) {
			continue
		}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: redis scan %s: %w", domain.ErrBackend, prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *DocumentStore) key(key string, shared bool) string {
	if shared {
		return sharedPrefix + key
	}
	return key
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
