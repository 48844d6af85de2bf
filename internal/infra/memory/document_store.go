package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"trivia-night/internal/app"
)

const sharedPrefix = "shared:"

// DocumentStore is an in-memory implementation of app.Store.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]string
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string]string),
	}
}

func (s *DocumentStore) Get(_ context.Context, key string, shared bool) (app.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.docs[fullKey(key, shared)]
	if !ok {
		return app.Record{}, false, nil
	}
	return app.Record{Key: key, Value: value, Shared: shared}, true, nil
}

func (s *DocumentStore) Set(_ context.Context, key, value string, shared bool) (app.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[fullKey(key, shared)] = value
	return app.Record{Key: key, Value: value, Shared: shared}, nil
}

func (s *DocumentStore) Delete(_ context.Context, key string, shared bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, fullKey(key, shared))
	return nil
}

// List returns keys in the requested namespace that start with prefix, sorted.
func (s *DocumentStore) List(_ context.Context, prefix string, shared bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0)
	for k := range s.docs {
		isShared := strings.HasPrefix(k, sharedPrefix)
		if isShared != shared {
			continue
		}
		key := strings.TrimPrefix(k, sharedPrefix)
		if !shared {
			key = k
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *DocumentStore) Ping(context.Context) error {
	return nil
}

func fullKey(key string, shared bool) string {
	if shared {
		return sharedPrefix + key
	}
	return key
}
