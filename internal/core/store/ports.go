package store

import (
	"context"
	"errors"
	"sort"
)

var (
	// ErrNotFound is returned when no document exists under the given key.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Insert when the key is taken.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrVersionConflict is returned by Update when the expected version does
	// not match the stored one (a concurrent writer won).
	ErrVersionConflict = errors.New("document version conflict")
	// ErrUnavailable wraps transport failures of the backing engine. The
	// outcome of the attempted operation is unknown; callers decide whether
	// to retry.
	ErrUnavailable = errors.New("store unavailable")
)

// Document is a versioned record. Version starts at 1 on insert and increases
// by one on every successful update.
type Document struct {
	Key     string
	Version int64
	Data    []byte
}

// Store defines the key-addressed document store port following hexagonal
// architecture. Updates are conditional on the caller's last observed version,
// which is how every lifecycle transition detects and rejects stale writes.
type Store interface {
	// Get retrieves the document stored under key.
	Get(ctx context.Context, key string) (*Document, error)

	// Insert creates a new document at version 1. Fails with ErrAlreadyExists
	// if the key is taken.
	Insert(ctx context.Context, key string, data []byte) (*Document, error)

	// Update replaces the document body if and only if the stored version
	// equals expectedVersion. Fails with ErrVersionConflict otherwise.
	Update(ctx context.Context, key string, data []byte, expectedVersion int64) (*Document, error)

	// List returns every document whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Document, error)

	// Ping checks if the backing engine is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

// sortDocs orders documents by key for deterministic List results.
func sortDocs(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
}
