package db

import (
	"context"
	"time"
)

// Store is the row-store facade combining all sub-interfaces.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SetItem holds a single key+value pair for pipelined writes.
type SetItem struct {
	Key   string
	Value []byte
}

// KVStore provides the key-value operations the repositories build on.
// Keys are opaque strings; the repository layer imposes the rowdex key
// scheme on top.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// MultiGet returns one element per requested key, nil for keys that
	// do not exist. A missing key is not an error: hydration of search
	// hits must tolerate rows deleted after they were indexed.
	MultiGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMulti(ctx context.Context, items []SetItem) error
	Del(ctx context.Context, key string) error
	// DelPrefix deletes every key with the given prefix and reports how
	// many were removed.
	DelPrefix(ctx context.Context, prefix string) (int, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Scan returns all keys with the given prefix, sorted.
	Scan(ctx context.Context, prefix string) ([]string, error)
}
