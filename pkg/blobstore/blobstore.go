// Package blobstore persists opaque byte values under string keys. It backs
// saved layouts and viewer preferences.
package blobstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("blobstore: closed")

// Store is a key/value store for small JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Kinds accepted by Open.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Open builds a store of the given kind. path is a directory for file stores
// and a database file for sqlite stores; it is ignored for memory stores.
func Open(kind, path string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemory(), nil
	case KindFile:
		return NewFile(path)
	case KindSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("blobstore: unknown kind %q", kind)
	}
}

func validKey(key string) error {
	if key == "" {
		return errors.New("blobstore: key is required")
	}
	return nil
}
