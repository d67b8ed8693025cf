package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// envelope is the on-wire shape of a document in Redis: the version travels
// with the body so a WATCH-guarded transaction can compare it atomically.
type envelope struct {
	Version int64           `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// RedisAdapter implements the Store interface using Redis. Conditional updates
// rely on WATCH + MULTI/EXEC: a concurrent write to the key aborts the
// transaction and surfaces as ErrVersionConflict.
type RedisAdapter struct {
	client *redis.Client
}

// NewRedisAdapter creates a new Redis store adapter.
// The redisURL should be in the format: redis://[:password@]host[:port][/database]
func NewRedisAdapter(redisURL string) (*RedisAdapter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	return &RedisAdapter{client: client}, nil
}

// Get retrieves the document stored under key.
func (r *RedisAdapter) Get(ctx context.Context, key string) (*Document, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}

	return decodeEnvelope(key, val)
}

// Insert creates a new document at version 1 using SETNX semantics.
func (r *RedisAdapter) Insert(ctx context.Context, key string, data []byte) (*Document, error) {
	body, err := json.Marshal(envelope{Version: 1, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document %s: %w", key, err)
	}

	ok, err := r.client.SetNX(ctx, key, body, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: insert %s: %v", ErrUnavailable, key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, key)
	}

	return &Document{Key: key, Version: 1, Data: append([]byte(nil), data...)}, nil
}

// Update replaces the document body conditionally on expectedVersion.
func (r *RedisAdapter) Update(ctx context.Context, key string, data []byte, expectedVersion int64) (*Document, error) {
	var out *Document

	txf := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		if err != nil {
			return fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
		}

		var env envelope
		if err := json.Unmarshal(val, &env); err != nil {
			return fmt.Errorf("failed to unmarshal document %s: %w", key, err)
		}
		if env.Version != expectedVersion {
			return fmt.Errorf("%w: %s expected %d, have %d", ErrVersionConflict, key, expectedVersion, env.Version)
		}

		env.Version++
		env.Data = data

		body, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("failed to marshal document %s: %w", key, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, body, 0)
			return nil
		})
		if err != nil {
			return err
		}

		out = &Document{Key: key, Version: env.Version, Data: append([]byte(nil), data...)}
		return nil
	}

	err := r.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		// The watched key changed mid-transaction; by construction that means
		// the version moved.
		return nil, fmt.Errorf("%w: %s", ErrVersionConflict, key)
	}
	if err != nil {
		return nil, err
	}

	return out, nil
}

// List returns every document whose key starts with prefix, ordered by key.
func (r *RedisAdapter) List(ctx context.Context, prefix string) ([]Document, error) {
	var out []Document

	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		val, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // deleted between SCAN and GET
		}
		if err != nil {
			return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
		}

		doc, err := decodeEnvelope(key, val)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan %s: %v", ErrUnavailable, prefix, err)
	}

	sortDocs(out)
	return out, nil
}

// Ping checks if Redis is reachable.
func (r *RedisAdapter) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisAdapter) Close() error {
	return r.client.Close()
}

func decodeEnvelope(key string, val []byte) (*Document, error) {
	var env envelope
	if err := json.Unmarshal(val, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", key, err)
	}
	return &Document{Key: key, Version: env.Version, Data: env.Data}, nil
}
