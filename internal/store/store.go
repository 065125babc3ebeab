// Package store provides the string key-value storage that chapters,
// the chapter list and playback settings live in.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by GetItem when the key holds no value.
var ErrNotFound = errors.New("store: key not found")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// KV is an asynchronous string store. Every call may fail; callers treat
// failures as missing data.
type KV interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Store is a KV that owns resources.
type Store interface {
	KV
	Close() error
}

// Backend selects a Store implementation.
type Backend string

const (
	BackendBadger Backend = "badger"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// Open opens the store for backend rooted at dir.
func Open(backend Backend, dir string) (Store, error) {
	switch backend {
	case BackendBadger, "":
		return OpenBadger(dir)
	case BackendSQLite:
		return OpenSQLite(dir)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
