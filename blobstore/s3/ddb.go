package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/kdgo/blobstore"
)

// CurrentSnapshot is the virtual blob name the commit store resolves to
// the most recently committed snapshot.
const CurrentSnapshot = "CURRENT"

// ErrConcurrentModification is returned when a commit loses the race for
// its version number to another writer.
var ErrConcurrentModification = errors.New("concurrent snapshot commit")

// DDBClient is the subset of the DynamoDB API the commit store uses.
// *dynamodb.Client satisfies it.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Version is one committed snapshot generation.
type Version struct {
	Number       uint64
	SnapshotPath string
}

// DDBCommitStore layers versioned, atomic snapshot publishing over any
// BlobStore. Writes to the CurrentSnapshot name land under a fresh
// versioned path and are then committed to a DynamoDB table with a
// conditional put, so concurrent publishers cannot clobber each other;
// the loser gets ErrConcurrentModification. Opens of CurrentSnapshot
// resolve to the latest committed version.
//
// The table needs a string partition key base_uri and a numeric sort key
// version. A lost race can leave an uncommitted blob behind; such
// orphans are invisible to readers and safe to garbage collect.
type DDBCommitStore struct {
	blobstore.BlobStore
	ddb     DDBClient
	table   string
	baseURI string
}

// NewDDBCommitStore wraps store with commit tracking in the given table.
// baseURI identifies this index within the table, letting one table
// serve many indexes.
func NewDDBCommitStore(store blobstore.BlobStore, ddb DDBClient, table, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{
		BlobStore: store,
		ddb:       ddb,
		table:     table,
		baseURI:   baseURI,
	}
}

func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name != CurrentSnapshot {
		return s.BlobStore.Open(ctx, name)
	}
	latest, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return s.BlobStore.Open(ctx, latest.SnapshotPath)
}

func (s *DDBCommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if name != CurrentSnapshot {
		return s.BlobStore.Create(ctx, name)
	}
	next, err := s.nextVersion(ctx)
	if err != nil {
		return nil, err
	}
	w, err := s.BlobStore.Create(ctx, next.SnapshotPath)
	if err != nil {
		return nil, err
	}
	return &committingBlob{WritableBlob: w, store: s, ctx: ctx, version: next}, nil
}

func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name != CurrentSnapshot {
		return s.BlobStore.Put(ctx, name, data)
	}
	next, err := s.nextVersion(ctx)
	if err != nil {
		return err
	}
	if err := s.BlobStore.Put(ctx, next.SnapshotPath, data); err != nil {
		return err
	}
	return s.commit(ctx, next)
}

func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	if name == CurrentSnapshot {
		return fmt.Errorf("cannot delete %s: commit history is append-only", CurrentSnapshot)
	}
	return s.BlobStore.Delete(ctx, name)
}

// Latest returns the most recently committed version. It returns
// blobstore.ErrNotFound when nothing has been committed yet.
func (s *DDBCommitStore) Latest(ctx context.Context) (Version, error) {
	out, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("base_uri = :b"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":b": &ddbtypes.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return Version{}, fmt.Errorf("query latest version: %w", err)
	}
	if len(out.Items) == 0 {
		return Version{}, fmt.Errorf("no committed snapshot for %s: %w", s.baseURI, blobstore.ErrNotFound)
	}
	return parseVersion(out.Items[0])
}

func (s *DDBCommitStore) nextVersion(ctx context.Context) (Version, error) {
	latest, err := s.Latest(ctx)
	if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return Version{}, err
	}
	n := latest.Number + 1
	return Version{
		Number:       n,
		SnapshotPath: fmt.Sprintf("snapshots/%020d.kdgo", n),
	}, nil
}

func (s *DDBCommitStore) commit(ctx context.Context, v Version) error {
	_, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]ddbtypes.AttributeValue{
			"base_uri":      &ddbtypes.AttributeValueMemberS{Value: s.baseURI},
			"version":       &ddbtypes.AttributeValueMemberN{Value: strconv.FormatUint(v.Number, 10)},
			"snapshot_path": &ddbtypes.AttributeValueMemberS{Value: v.SnapshotPath},
			"committed_at":  &ddbtypes.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var conditionFailed *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return fmt.Errorf("version %d already committed: %w", v.Number, ErrConcurrentModification)
		}
		return fmt.Errorf("commit version %d: %w", v.Number, err)
	}
	return nil
}

func parseVersion(item map[string]ddbtypes.AttributeValue) (Version, error) {
	num, ok := item["version"].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return Version{}, errors.New("commit item has no numeric version attribute")
	}
	n, err := strconv.ParseUint(num.Value, 10, 64)
	if err != nil {
		return Version{}, fmt.Errorf("parse version %q: %w", num.Value, err)
	}
	p, ok := item["snapshot_path"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return Version{}, errors.New("commit item has no snapshot_path attribute")
	}
	return Version{Number: n, SnapshotPath: p.Value}, nil
}

// committingBlob commits its version once the underlying upload closes
// cleanly.
type committingBlob struct {
	blobstore.WritableBlob
	store   *DDBCommitStore
	ctx     context.Context
	version Version
	done    bool
}

func (w *committingBlob) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.WritableBlob.Close(); err != nil {
		return err
	}
	return w.store.commit(w.ctx, w.version)
}

func (w *committingBlob) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.WritableBlob.Abort()
}
