package kdgo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/kdgo/blobstore"
	"github.com/hupe1980/kdgo/kdtree"
	"github.com/hupe1980/kdgo/persistence"
	"github.com/hupe1980/kdgo/point"
	"github.com/hupe1980/kdgo/resource"
)

// snapshotBufferSize is the buffering applied around blob streams so
// rate limiting and compression see large writes.
const snapshotBufferSize = 256 * 1024

// snapshotSections assembles the serializable view of the index. All
// slices alias live index memory; they are read, never written.
func (db *KDGo[S]) snapshotSections() *persistence.Snapshot[S] {
	bounds := db.spatial.Bounds()
	return &persistence.Snapshot[S]{
		Dims: db.dims,
		Data: db.dense.Data(),
		Dense: &persistence.DenseSections[S]{
			Nodes: db.dense.Nodes(),
			Prims: db.dense.Prims(),
		},
		Spatial: &persistence.SpatialSections[S]{
			Nodes:     db.spatial.Nodes(),
			Prims:     db.spatial.Prims(),
			Parents:   db.spatial.Parents(),
			BoundsMin: bounds.Min,
			BoundsMax: bounds.Max,
		},
	}
}

// fromSnapshot rebuilds the tree pair from deserialized sections. Both
// layouts are validated before any query can run.
func fromSnapshot[S point.Scalar](snap *persistence.Snapshot[S], o options) (*KDGo[S], error) {
	if snap.Dense == nil || snap.Spatial == nil {
		return nil, errors.New("snapshot does not carry both tree layouts")
	}
	dense, err := kdtree.NewDense(snap.Dense.Nodes, snap.Dense.Prims, snap.Data, snap.Dims)
	if err != nil {
		return nil, fmt.Errorf("dense section: %w", err)
	}
	bounds := kdtree.Bounds[S]{Min: snap.Spatial.BoundsMin, Max: snap.Spatial.BoundsMax}
	spatial, err := kdtree.NewSpatial(snap.Spatial.Nodes, snap.Spatial.Prims, snap.Spatial.Parents, bounds, snap.Data, snap.Dims)
	if err != nil {
		return nil, fmt.Errorf("spatial section: %w", err)
	}
	return newIndex(dense, spatial, o), nil
}

// SaveSnapshot writes the index to a local file, atomically replacing
// any existing file at path. The codec set by WithSnapshotCompression
// applies.
func (db *KDGo[S]) SaveSnapshot(path string) error {
	if db.closed.Load() {
		return ErrClosed
	}
	start := time.Now()
	err := persistence.Save(path, db.snapshotSections(), db.comp)
	if db.metrics != nil {
		db.metrics.RecordSnapshotSave(time.Since(start), err)
	}
	db.logger.LogSnapshotSave(context.Background(), path, err)
	return err
}

// LoadSnapshot reads an index back from a local file. The scalar type
// must match the one the snapshot was saved with; loading a float32
// snapshot as float64 fails with persistence.ErrScalarMismatch.
func LoadSnapshot[S point.Scalar](path string, optFns ...Option) (*KDGo[S], error) {
	o, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var db *KDGo[S]
	snap, err := persistence.Load[S](path)
	if err == nil {
		db, err = fromSnapshot(snap, o)
	}

	if o.metrics != nil {
		o.metrics.RecordSnapshotLoad(time.Since(start), err)
	}
	points := 0
	if db != nil {
		points = db.Len()
	}
	o.logger.LogSnapshotLoad(context.Background(), path, points, err)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// SaveToBlob streams the index into a blob store under the given name.
// The write counts against the resource controller's background slots
// and IO budget when one is configured.
func (db *KDGo[S]) SaveToBlob(ctx context.Context, store blobstore.BlobStore, name string) error {
	if db.closed.Load() {
		return ErrClosed
	}
	if err := db.rc.AcquireBackground(ctx); err != nil {
		return err
	}
	defer db.rc.ReleaseBackground()

	start := time.Now()
	err := db.writeBlob(ctx, store, name)
	if db.metrics != nil {
		db.metrics.RecordSnapshotSave(time.Since(start), err)
	}
	db.logger.LogSnapshotSave(ctx, name, err)
	return err
}

func (db *KDGo[S]) writeBlob(ctx context.Context, store blobstore.BlobStore, name string) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}
	defer w.Abort()

	bw := bufio.NewWriterSize(resource.NewRateLimitedWriter(ctx, w, db.rc), snapshotBufferSize)
	if err := persistence.Write(bw, db.snapshotSections(), db.comp); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return w.Close()
}

// LoadFromBlob reads an index from a blob store. Like SaveToBlob it
// honors the configured resource controller.
func LoadFromBlob[S point.Scalar](ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*KDGo[S], error) {
	o, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}
	if err := o.controller.AcquireBackground(ctx); err != nil {
		return nil, err
	}
	defer o.controller.ReleaseBackground()

	start := time.Now()
	db, err := readBlob[S](ctx, store, name, o)

	if o.metrics != nil {
		o.metrics.RecordSnapshotLoad(time.Since(start), err)
	}
	points := 0
	if db != nil {
		points = db.Len()
	}
	o.logger.LogSnapshotLoad(ctx, name, points, err)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func readBlob[S point.Scalar](ctx context.Context, store blobstore.BlobStore, name string, o options) (*KDGo[S], error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	stream, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	r := bufio.NewReaderSize(resource.NewRateLimitedReader(ctx, stream, o.controller), snapshotBufferSize)
	snap, err := persistence.Read[S](r)
	if err != nil {
		return nil, err
	}
	return fromSnapshot(snap, o)
}
