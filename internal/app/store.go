package app

import "context"

// Record is one stored document.
type Record struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Shared bool   `json:"shared"`
}

// Store abstracts the remote document store (in-memory, Redis, Postgres, SQLite, HTTP gateway).
// Shared documents live in a separate namespace from private ones.
type Store interface {
	// Get returns ok=false when no document exists for key.
	Get(ctx context.Context, key string, shared bool) (rec Record, ok bool, err error)
	Set(ctx context.Context, key, value string, shared bool) (Record, error)
	// Delete of a missing key is not an error.
	Delete(ctx context.Context, key string, shared bool) error
	List(ctx context.Context, prefix string, shared bool) ([]string, error)
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}
