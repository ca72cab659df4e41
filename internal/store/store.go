package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("not found")

// Entry is one persisted key/value pair.
type Entry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Store is the client's persistent key/value storage. It survives process
// restarts and holds small scalars such as the session token.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Entry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
