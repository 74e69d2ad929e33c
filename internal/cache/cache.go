// Package cache provides named, versioned response caches. A Storage holds
// any number of namespaces; each namespace is a key/value store of
// responses. Handles are opened once at startup and shared by every
// component that reads or populates them.
package cache

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	ErrClosed   = errors.New("cache storage is closed")
	ErrNilEntry = errors.New("nil cache entry")
)

// Entry is a stored response.
type Entry struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Clone returns a deep copy of e, so callers never share a body slice with
// the store.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	return &Entry{
		Status:   e.Status,
		Header:   e.Header.Clone(),
		Body:     append([]byte(nil), e.Body...),
		StoredAt: e.StoredAt,
	}
}

// Cache is a single namespace.
type Cache interface {
	Name() string
	Match(ctx context.Context, key string) (*Entry, bool, error)
	Put(ctx context.Context, key string, e *Entry) error
	Delete(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
}

// Storage owns every namespace of the application.
type Storage interface {
	Open(ctx context.Context, name string) (Cache, error)
	Names(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) (bool, error)
	Close() error
}
