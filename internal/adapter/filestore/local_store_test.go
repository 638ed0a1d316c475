package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rubric-orchestrator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Save(ctx, "../My Plan.txt", strings.NewReader("deductible"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, "-My_Plan.txt"))
	assert.NotContains(t, key, "/")

	data, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "deductible", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(dir, "uploads", key))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, key))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	assert.ErrorIs(t, store.Delete(context.Background(), ""), domain.ErrInvalidRequest)
}

func TestLocalStore_SaveCanceled(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Save(ctx, "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
