package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"rubric-orchestrator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentStore_PutGetRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "content")
	store, err := NewContentStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "My Plan.txt", []byte("v1")))
	require.NoError(t, store.Put(ctx, "My Plan.txt", []byte("v2")))

	data, err := store.Get(ctx, "My Plan.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no partial files are left behind")

	require.NoError(t, store.Remove(ctx, "My Plan.txt"))
	_, err = store.Get(ctx, "My Plan.txt")
	assert.ErrorIs(t, err, domain.ErrContentNotFound)
	assert.NoError(t, store.Remove(ctx, "My Plan.txt"))
}

func TestContentStore_RemoveAll(t *testing.T) {
	store, err := NewContentStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.txt", []byte("a")))
	require.NoError(t, store.Put(ctx, "b.md", []byte("b")))
	require.NoError(t, store.RemoveAll(ctx))

	_, err = store.Get(ctx, "a.txt")
	assert.ErrorIs(t, err, domain.ErrContentNotFound)
	_, err = store.Get(ctx, "b.md")
	assert.ErrorIs(t, err, domain.ErrContentNotFound)
}

func TestContentStore_RejectsInvalidNames(t *testing.T) {
	store, err := NewContentStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "../etc/passwd", "a/b.txt", "x.partial"} {
		_, err := store.Get(ctx, name)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest, name)
		assert.ErrorIs(t, store.Put(ctx, name, []byte("x")), domain.ErrInvalidRequest, name)
	}
}
