// Package repository persists url mappings and the counters their ids are
// allocated from. Backends are chosen by the scheme of the store URI.
package repository

//go:generate mockgen -destination=../mocks/repository.go -package=mocks github.com/darkodi/shorturl/internal/repository Allocator,Registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/darkodi/shorturl/internal/model"
)

// URLCounter is the counter series short ids are drawn from.
const URLCounter = "url_count"

var (
	ErrNotFound      = errors.New("url not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrEmptyCounter  = errors.New("counter name cannot be empty")
	ErrUnknownScheme = errors.New("unsupported store scheme")
)

// StoreError wraps any failure of the backing store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// Allocator hands out sequence numbers. Allocate increments the named counter
// and returns the new value in one atomic store operation.
type Allocator interface {
	Allocate(ctx context.Context, name string) (int64, error)
}

// Registry maps original URLs to short ids and back.
type Registry interface {
	FindByURL(ctx context.Context, originalURL string) (*model.URLMapping, error)
	FindByID(ctx context.Context, shortID int64) (*model.URLMapping, error)
	// Insert fails with ErrDuplicateKey when either the URL or the id is taken.
	Insert(ctx context.Context, originalURL string, shortID int64) (*model.URLMapping, error)
}

// Store is a backend providing both the allocator and the registry.
type Store interface {
	Allocator
	Registry
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the store named by uri:
//
//	redis://host:port/db, rediss://...   Redis
//	postgres://..., postgresql://...     PostgreSQL
//	sqlite://path, sqlite://:memory:     SQLite
func Open(ctx context.Context, uri string) (Store, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, uri)
	}

	switch strings.ToLower(scheme) {
	case "redis", "rediss":
		return NewRedisStore(ctx, uri)
	case "postgres", "postgresql":
		return NewSQLStore(ctx, "postgres", uri)
	case "sqlite", "sqlite3":
		return NewSQLStore(ctx, "sqlite3", rest)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}
