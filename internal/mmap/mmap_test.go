package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestOpenAndRead(t *testing.T) {
	content := []byte("the quick brown fox")
	path := writeTempFile(t, content)

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())

	p := make([]byte, 5)
	n, err := m.ReadAt(p, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "quick", string(p))
}

func TestOpenEmptyFile(t *testing.T) {
	path := writeTempFile(t, nil)

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Zero(t, m.Size())
	assert.Empty(t, m.Bytes())

	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadAtBounds(t *testing.T) {
	path := writeTempFile(t, []byte("0123456789"))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	_, err = m.ReadAt(make([]byte, 1), -1)
	assert.ErrorIs(t, err, ErrInvalidOffset)

	_, err = m.ReadAt(make([]byte, 1), 10)
	assert.ErrorIs(t, err, io.EOF)

	// Short read at the tail returns what is there plus EOF.
	p := make([]byte, 4)
	n, err := m.ReadAt(p, 8)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)
	assert.Equal(t, "89", string(p[:n]))
}

func TestCloseIdempotent(t *testing.T) {
	path := writeTempFile(t, []byte("data"))

	m, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
}

func TestAdvise(t *testing.T) {
	path := writeTempFile(t, []byte("advised content here"))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.NoError(t, m.Advise(AccessRandom))
	assert.NoError(t, m.Advise(AccessSequential))
	assert.NoError(t, m.Advise(AccessWillNeed))
	assert.NoError(t, m.Advise(AccessDefault))
}
