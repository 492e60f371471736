package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blobStores(t *testing.T) map[string]BlobStore {
	t.Helper()

	db, err := InitDB(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	files, err := NewFileBlobStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	return map[string]BlobStore{
		"memory": NewMemoryBlobStore(),
		"sqlite": NewSQLiteBlobRepository(db),
		"file":   files,
	}
}

func TestBlobStores_GetMissing(t *testing.T) {
	for name, store := range blobStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "todos_nobody")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBlobStores_SetGetOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, store := range blobStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, "todos_default", []byte(`[{"id":"a"}]`)))
			got, err := store.Get(ctx, "todos_default")
			require.NoError(t, err)
			assert.Equal(t, `[{"id":"a"}]`, string(got))

			require.NoError(t, store.Set(ctx, "todos_default", []byte(`[]`)))
			got, err = store.Get(ctx, "todos_default")
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(got))
		})
	}
}

func TestBlobStores_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	for name, store := range blobStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, "todos_alice", []byte("alice")))
			require.NoError(t, store.Set(ctx, "todos_bob", []byte("bob")))

			got, err := store.Get(ctx, "todos_alice")
			require.NoError(t, err)
			assert.Equal(t, "alice", string(got))
		})
	}
}

func TestMemoryBlobStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBlobStore()
	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileBlobStore_SanitizesKeys(t *testing.T) {
	store, err := NewFileBlobStore(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(store.dir, "todos_.._etc.json"), store.path("todos/../etc"))
}

func TestRedisBlobStore_UnreachableIsNotNotFound(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	store := NewRedisBlobStore(client, "tasksync:")
	defer store.Close()

	_, err := store.Get(context.Background(), "todos_default")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
