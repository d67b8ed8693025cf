package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryAdapter implements the Store interface with an in-process map. It is
// the default backend and the test double for everything layered on the port.
type MemoryAdapter struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryAdapter creates an empty in-memory store.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		docs: make(map[string]Document),
	}
}

// Get retrieves the document stored under key.
func (m *MemoryAdapter) Get(ctx context.Context, key string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	out := cloneDoc(doc)
	return &out, nil
}

// Insert creates a new document at version 1.
func (m *MemoryAdapter) Insert(ctx context.Context, key string, data []byte) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, key)
	}

	doc := Document{Key: key, Version: 1, Data: append([]byte(nil), data...)}
	m.docs[key] = doc

	out := cloneDoc(doc)
	return &out, nil
}

// Update replaces the document body conditionally on expectedVersion.
func (m *MemoryAdapter) Update(ctx context.Context, key string, data []byte, expectedVersion int64) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if doc.Version != expectedVersion {
		return nil, fmt.Errorf("%w: %s expected %d, have %d", ErrVersionConflict, key, expectedVersion, doc.Version)
	}

	doc.Version++
	doc.Data = append([]byte(nil), data...)
	m.docs[key] = doc

	out := cloneDoc(doc)
	return &out, nil
}

// List returns every document whose key starts with prefix, ordered by key.
func (m *MemoryAdapter) List(ctx context.Context, prefix string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Document
	for key, doc := range m.docs {
		if strings.HasPrefix(key, prefix) {
			out = append(out, cloneDoc(doc))
		}
	}

	sortDocs(out)
	return out, nil
}

// Ping always succeeds for the in-memory backend.
func (m *MemoryAdapter) Ping(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory backend.
func (m *MemoryAdapter) Close() error { return nil }

func cloneDoc(doc Document) Document {
	doc.Data = append([]byte(nil), doc.Data...)
	return doc
}
