package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisAdapter(t *testing.T) *RedisAdapter {
	t.Helper()

	mr := miniredis.RunT(t)
	adapter, err := NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	return adapter
}

func TestRedisAdapter_InsertGet(t *testing.T) {
	adapter := newRedisAdapter(t)
	ctx := context.Background()

	doc, err := adapter.Insert(ctx, "request:abc", []byte(`{"status":"PENDING"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)

	got, err := adapter.Get(ctx, "request:abc")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.JSONEq(t, `{"status":"PENDING"}`, string(got.Data))
}

func TestRedisAdapter_InsertDuplicate(t *testing.T) {
	adapter := newRedisAdapter(t)
	ctx := context.Background()

	_, err := adapter.Insert(ctx, "driver:d1", []byte(`{}`))
	require.NoError(t, err)

	_, err = adapter.Insert(ctx, "driver:d1", []byte(`{}`))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRedisAdapter_GetNotFound(t *testing.T) {
	adapter := newRedisAdapter(t)

	_, err := adapter.Get(context.Background(), "request:missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisAdapter_UpdateCAS(t *testing.T) {
	adapter := newRedisAdapter(t)
	ctx := context.Background()

	_, err := adapter.Insert(ctx, "request:abc", []byte(`{"v":1}`))
	require.NoError(t, err)

	doc, err := adapter.Update(ctx, "request:abc", []byte(`{"v":2}`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.Version)

	_, err = adapter.Update(ctx, "request:abc", []byte(`{"v":3}`), 1)
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := adapter.Get(ctx, "request:abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got.Data))
}

func TestRedisAdapter_UpdateMissing(t *testing.T) {
	adapter := newRedisAdapter(t)

	_, err := adapter.Update(context.Background(), "request:missing", []byte(`{}`), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisAdapter_List(t *testing.T) {
	adapter := newRedisAdapter(t)
	ctx := context.Background()

	for _, key := range []string{"request:b", "request:a", "driver:x"} {
		_, err := adapter.Insert(ctx, key, []byte(`{}`))
		require.NoError(t, err)
	}

	docs, err := adapter.List(ctx, "request:")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "request:a", docs[0].Key)
	assert.Equal(t, "request:b", docs[1].Key)
}

func TestRedisAdapter_Ping(t *testing.T) {
	adapter := newRedisAdapter(t)
	assert.NoError(t, adapter.Ping(context.Background()))
}

func TestRedisAdapter_InvalidURL(t *testing.T) {
	_, err := NewRedisAdapter("invalid://url")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse Redis URL")
}
