package kdgo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/kdgo/blobstore"
)

func TestClose(t *testing.T) {
	db, err := New([]float32{0, 0, 1, 1}, 2)
	require.NoError(t, err)

	require.NoError(t, db.Close())
	require.NoError(t, db.Close()) // idempotent

	_, err = db.FindClosest([]float32{0, 0})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = db.FindClosestBatch(context.Background(), [][]float32{{0, 0}})
	assert.ErrorIs(t, err, ErrClosed)

	err = db.SaveSnapshot(filepath.Join(t.TempDir(), "closed.kdgo"))
	assert.ErrorIs(t, err, ErrClosed)

	err = db.SaveToBlob(context.Background(), blobstore.NewMemoryStore(), "closed.kdgo")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseNil(t *testing.T) {
	var db *KDGo[float32]
	assert.NoError(t, db.Close())
}

func TestCloseWithWorkerPool(t *testing.T) {
	db, err := New([]float32{0, 0, 1, 1}, 2, WithWorkerPool(), WithWorkers(2))
	require.NoError(t, err)

	matches, err := db.FindClosestBatch(context.Background(), [][]float32{{0, 0}, {1, 1}})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	require.NoError(t, db.Close())

	_, err = db.FindClosestBatch(context.Background(), [][]float32{{0, 0}})
	assert.ErrorIs(t, err, ErrClosed)
}
