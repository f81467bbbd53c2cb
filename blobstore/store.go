// Package blobstore abstracts where snapshots live: local disk, memory,
// S3-compatible object stores, or any of those behind a block cache.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound).
// The default maps to os.ErrNotExist so local filesystem errors pass
// through unchanged.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for storing and retrieving immutable data
// blobs.
type BlobStore interface {
	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create starts a streaming write. The blob becomes visible under
	// name when the returned handle is closed successfully.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a complete blob in one call.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to stored data.
type Blob interface {
	// ReadAt reads len(p) bytes starting at off, io.ReaderAt style but
	// context-aware.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange streams length bytes starting at off. Short ranges at the
	// tail of the blob are truncated, not errors.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	// Size returns the blob size in bytes.
	Size() int64
	Close() error
}

// WritableBlob is a streaming write handle returned by Create.
//
// The intended use is to defer Abort and Close on success:
//
//	w, err := store.Create(ctx, name)
//	if err != nil {
//		return err
//	}
//	defer w.Abort()
//	// ... write ...
//	return w.Close()
type WritableBlob interface {
	io.Writer
	// Sync flushes written data where the backend supports it.
	Sync() error
	// Close commits the blob. After Abort it is a no-op.
	Close() error
	// Abort discards the write; nothing becomes visible under the name.
	// After Close it is a no-op. Safe to call more than once.
	Abort() error
}

// Mappable is an optional interface for Blobs whose bytes are directly
// addressable (memory-mapped files). The slice is valid until Close.
type Mappable interface {
	Bytes() ([]byte, error)
}

// sectionReader adapts a Blob's ReadAt into an io.ReadCloser over
// [off, off+length), clamped to the blob size.
type sectionReader struct {
	ctx   context.Context
	blob  Blob
	off   int64
	limit int64
}

// NewSectionReader returns an io.ReadCloser over one range of b. Closing
// it does not close b.
func NewSectionReader(ctx context.Context, b Blob, off, length int64) io.ReadCloser {
	limit := off + length
	if size := b.Size(); limit > size {
		limit = size
	}
	return &sectionReader{ctx: ctx, blob: b, off: off, limit: limit}
}

func (r *sectionReader) Read(p []byte) (int, error) {
	if r.off >= r.limit {
		return 0, io.EOF
	}
	if remaining := r.limit - r.off; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	return n, err
}

func (r *sectionReader) Close() error { return nil }
