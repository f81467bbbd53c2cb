package s3

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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/kdgo/blobstore"
)

var errUploadAborted = errors.New("upload aborted")

// Client is the subset of the S3 API the store uses. *s3.Client satisfies
// it; tests substitute fakes.
type Client interface {
	s3.ListObjectsV2APIClient
	manager.UploadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// UploadConfig tunes multipart uploads.
type UploadConfig struct {
	// PartSize in bytes. S3 requires at least 5 MiB.
	PartSize int64
	// Concurrency is the number of parts uploaded in parallel.
	Concurrency int
}

// DefaultUploadConfig returns the defaults used by NewStore.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:    8 * 1024 * 1024,
		Concurrency: 5,
	}
}

// Option configures a Store.
type Option func(*Store)

// WithUploadConfig overrides the multipart upload settings.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(s *Store) {
		s.upload = cfg
	}
}

// Store serves blobs from an S3 bucket under an optional key prefix.
// Reads use ranged GETs so callers never download more than they ask
// for; writes stream through the upload manager.
type Store struct {
	client   Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	upload   UploadConfig
}

var _ blobstore.BlobStore = (*Store)(nil)

// NewStore creates a store on an existing client.
func NewStore(client Client, bucket, prefix string, optFns ...Option) *Store {
	s := &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		upload: DefaultUploadConfig(),
	}
	for _, fn := range optFns {
		fn(s)
	}
	s.uploader = manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = s.upload.PartSize
		u.Concurrency = s.upload.Concurrency
	})
	return s
}

// NewDefaultStore creates a store using credentials and region from the
// default AWS config chain (environment, shared config, instance role).
func NewDefaultStore(ctx context.Context, bucket, prefix string, optFns ...Option) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, prefix, optFns...), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("blob %s: %w", name, blobstore.ErrNotFound)
		}
		return nil, fmt.Errorf("head object %s: %w", name, err)
	}
	return &s3Blob{store: s, key: s.key(name), size: aws.ToInt64(out.ContentLength)}, nil
}

func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	w := &s3WritableBlob{pw: pw, done: make(chan error, 1)}
	// The upload outlives Create; it completes when the caller closes the
	// writable blob. Canceling ctx before then aborts the upload.
	go func() {
		_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(name)),
			Body:   pr,
		})
		if err != nil {
			pr.CloseWithError(err)
		}
		w.done <- err
	}()
	return w, nil
}

func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	base := s.prefix
	if base != "" {
		base += "/"
	}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(base + prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			names = append(names, strings.TrimPrefix(aws.ToString(obj.Key), base))
		}
	}
	sort.Strings(names)
	return names, nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}

// s3Blob reads object bytes with ranged GETs.
type s3Blob struct {
	store *Store
	key   string
	size  int64
}

func (b *s3Blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
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

	out, err := b.store.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.store.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, fmt.Errorf("get range of %s: %w", b.key, err)
	}
	defer out.Body.Close()

	n, err := io.ReadFull(out.Body, p)
	if err != nil {
		return n, fmt.Errorf("read object body: %w", err)
	}
	if short {
		return n, io.EOF
	}
	return n, nil
}

func (b *s3Blob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
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

	out, err := b.store.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.store.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return nil, fmt.Errorf("get range of %s: %w", b.key, err)
	}
	return out.Body, nil
}

func (b *s3Blob) Size() int64 { return b.size }

func (b *s3Blob) Close() error { return nil }

// s3WritableBlob feeds an in-flight upload through a pipe.
type s3WritableBlob struct {
	pw       *io.PipeWriter
	done     chan error
	closeErr error
	once     sync.Once
}

func (w *s3WritableBlob) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Sync is a no-op. S3 objects become visible atomically when the upload
// completes on Close.
func (w *s3WritableBlob) Sync() error { return nil }

func (w *s3WritableBlob) Close() error {
	w.once.Do(func() {
		_ = w.pw.Close()
		w.closeErr = <-w.done
	})
	return w.closeErr
}

func (w *s3WritableBlob) Abort() error {
	w.once.Do(func() {
		// Failing the pipe makes the uploader bail without completing, so
		// no object appears.
		w.pw.CloseWithError(errUploadAborted)
		<-w.done
	})
	return nil
}
