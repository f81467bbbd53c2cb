package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/kdgo/internal/mmap"
)

// LocalStore stores blobs as files under a root directory. Blob names use
// forward slashes regardless of platform. Reads are memory-mapped, writes
// go through a temp file and rename so a crash never leaves a partial
// blob visible.
type LocalStore struct {
	root string
}

var _ BlobStore = (*LocalStore)(nil)

// NewLocalStore creates the root directory if needed and returns a store
// rooted there.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create root %s: %w", root, err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) path(name string) (string, error) {
	if name == "" || !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(s.root, filepath.FromSlash(name)), nil
}

func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", name, err)
	}
	// Snapshot loads read sections front to back but the caching layer
	// above may hop around, so leave the kernel readahead hint neutral.
	if err := m.Advise(mmap.AccessRandom); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("advise blob %s: %w", name, err)
	}
	return &localBlob{m: m}, nil
}

func (s *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(p)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp for %s: %w", name, err)
	}
	return &localWritableBlob{f: f, final: p}, nil
}

func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *LocalStore) Delete(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", name, err)
	}
	return nil
}

func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// localBlob serves reads from a memory mapping.
type localBlob struct {
	m *mmap.Mapping
}

var _ Mappable = (*localBlob)(nil)

func (b *localBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return b.m.ReadAt(p, off)
}

func (b *localBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewSectionReader(ctx, b, off, length), nil
}

func (b *localBlob) Size() int64 { return int64(b.m.Size()) }

func (b *localBlob) Close() error { return b.m.Close() }

func (b *localBlob) Bytes() ([]byte, error) {
	data := b.m.Bytes()
	if data == nil && b.m.Size() > 0 {
		return nil, mmap.ErrClosed
	}
	return data, nil
}

// localWritableBlob writes to a temp file and renames it into place on
// Close.
type localWritableBlob struct {
	f     *os.File
	final string
	done  bool
}

func (w *localWritableBlob) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *localWritableBlob) Sync() error {
	return w.f.Sync()
}

func (w *localWritableBlob) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	tmp := w.f.Name()
	cleanup := func(err error) error {
		_ = w.f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.f.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync temp blob: %w", err))
	}
	if err := w.f.Chmod(0o644); err != nil {
		return cleanup(fmt.Errorf("chmod temp blob: %w", err))
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp blob: %w", err)
	}
	if err := os.Rename(tmp, w.final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp blob: %w", err)
	}
	if dir, err := os.Open(filepath.Dir(w.final)); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}
	return nil
}

func (w *localWritableBlob) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.f.Close()
	return os.Remove(w.f.Name())
}
