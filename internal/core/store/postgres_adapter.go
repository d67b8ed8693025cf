package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentsSchema = `
CREATE TABLE IF NOT EXISTS engine_documents (
	key     TEXT PRIMARY KEY,
	version BIGINT NOT NULL,
	data    JSONB  NOT NULL
)`

// PostgresAdapter implements the Store interface on Postgres. Conditional
// updates use a version-guarded UPDATE so a stale writer affects zero rows.
type PostgresAdapter struct {
	pool *pgxpool.Pool
}

// NewPostgresAdapter connects to Postgres and bootstraps the documents table.
func NewPostgresAdapter(ctx context.Context, postgresURL string) (*PostgresAdapter, error) {
	pool, err := pgxpool.New(ctx, postgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}

	if _, err := pool.Exec(ctx, documentsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	return &PostgresAdapter{pool: pool}, nil
}

// Get retrieves the document stored under key.
func (p *PostgresAdapter) Get(ctx context.Context, key string) (*Document, error) {
	doc := Document{Key: key}

	err := p.pool.QueryRow(ctx,
		`SELECT version, data FROM engine_documents WHERE key = $1`, key,
	).Scan(&doc.Version, &doc.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}

	return &doc, nil
}

// Insert creates a new document at version 1.
func (p *PostgresAdapter) Insert(ctx context.Context, key string, data []byte) (*Document, error) {
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO engine_documents (key, version, data) VALUES ($1, 1, $2)
		 ON CONFLICT (key) DO NOTHING`, key, data)
	if err != nil {
		return nil, fmt.Errorf("%w: insert %s: %v", ErrUnavailable, key, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, key)
	}

	return &Document{Key: key, Version: 1, Data: append([]byte(nil), data...)}, nil
}

// Update replaces the document body conditionally on expectedVersion.
func (p *PostgresAdapter) Update(ctx context.Context, key string, data []byte, expectedVersion int64) (*Document, error) {
	tag, err := p.pool.Exec(ctx,
		`UPDATE engine_documents SET version = version + 1, data = $3
		 WHERE key = $1 AND version = $2`, key, expectedVersion, data)
	if err != nil {
		return nil, fmt.Errorf("%w: update %s: %v", ErrUnavailable, key, err)
	}
	if tag.RowsAffected() == 0 {
		// Zero rows means either the key is gone or the version moved.
		if _, getErr := p.Get(ctx, key); errors.Is(getErr, ErrNotFound) {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: %s expected %d", ErrVersionConflict, key, expectedVersion)
	}

	return &Document{Key: key, Version: expectedVersion + 1, Data: append([]byte(nil), data...)}, nil
}

// List returns every document whose key starts with prefix, ordered by key.
func (p *PostgresAdapter) List(ctx context.Context, prefix string) ([]Document, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT key, version, data FROM engine_documents WHERE key LIKE $1 || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, prefix, err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.Key, &doc.Version, &doc.Data); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", ErrUnavailable, prefix, err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, prefix, err)
	}

	return out, nil
}

// Ping checks if Postgres is reachable.
func (p *PostgresAdapter) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresAdapter) Close() error {
	p.pool.Close()
	return nil
}
