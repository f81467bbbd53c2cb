// Package minio provides a blobstore.BlobStore for MinIO and other
// S3-compatible object stores reachable through the MinIO client.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/kdgo/blobstore"
)

var errUploadAborted = errors.New("upload aborted")

// Config holds connection settings for NewStoreFromConfig.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
}

// Store serves blobs from a MinIO bucket under an optional key prefix.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ blobstore.BlobStore = (*Store)(nil)

// NewStore creates a store on an existing client.
func NewStore(client *minio.Client, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// NewStoreFromConfig dials the endpoint with static credentials.
func NewStoreFromConfig(cfg Config, bucket, prefix string) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Endpoint, err)
	}
	return NewStore(client, bucket, prefix), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.key(name), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("blob %s: %w", name, blobstore.ErrNotFound)
		}
		return nil, fmt.Errorf("stat object %s: %w", name, err)
	}
	return &minioBlob{store: s, key: s.key(name), size: info.Size}, nil
}

func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	w := &minioWritableBlob{pw: pw, done: make(chan error, 1)}
	// Size -1 streams the pipe as a multipart upload of unknown length.
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		})
		if err != nil {
			pr.CloseWithError(err)
		}
		w.done <- err
	}()
	return w, nil
}

func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("remove object %s: %w", name, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	base := s.prefix
	if base != "" {
		base += "/"
	}
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    base + prefix,
		Recursive: true,
	})

	var names []string
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		names = append(names, strings.TrimPrefix(obj.Key, base))
	}
	sort.Strings(names)
	return names, nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// minioBlob reads object bytes with ranged GETs.
type minioBlob struct {
	store *Store
	key   string
	size  int64
}

func (b *minioBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= b.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	end := off + int64(len(p)) - 1
	short := false
	if end > b.size-1 {
		end = b.size - 1
		short = true
		p = p[:end-off+1]
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, fmt.Errorf("set range: %w", err)
	}
	obj, err := b.store.client.GetObject(ctx, b.store.bucket, b.key, opts)
	if err != nil {
		return 0, fmt.Errorf("get range of %s: %w", b.key, err)
	}
	defer obj.Close()

	n, err := io.ReadFull(obj, p)
	if err != nil {
		return n, fmt.Errorf("read object body: %w", err)
	}
	if short {
		return n, io.EOF
	}
	return n, nil
}

func (b *minioBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || off > b.size {
		return nil, fmt.Errorf("range offset %d out of bounds", off)
	}
	if length <= 0 || off == b.size {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	end := off + length - 1
	if end > b.size-1 {
		end = b.size - 1
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return nil, fmt.Errorf("set range: %w", err)
	}
	obj, err := b.store.client.GetObject(ctx, b.store.bucket, b.key, opts)
	if err != nil {
		return nil, fmt.Errorf("get range of %s: %w", b.key, err)
	}
	return obj, nil
}

func (b *minioBlob) Size() int64 { return b.size }

func (b *minioBlob) Close() error { return nil }

// minioWritableBlob feeds an in-flight upload through a pipe.
type minioWritableBlob struct {
	pw       *io.PipeWriter
	done     chan error
	closeErr error
	once     sync.Once
}

func (w *minioWritableBlob) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Sync is a no-op. Objects become visible atomically when the upload
// completes on Close.
func (w *minioWritableBlob) Sync() error { return nil }

func (w *minioWritableBlob) Close() error {
	w.once.Do(func() {
		_ = w.pw.Close()
		w.closeErr = <-w.done
	})
	return w.closeErr
}

func (w *minioWritableBlob) Abort() error {
	w.once.Do(func() {
		// Failing the pipe makes the upload bail without completing, so no
		// object appears.
		w.pw.CloseWithError(errUploadAborted)
		<-w.done
	})
	return nil
}
