// Package kdgo provides an embedded nearest-neighbor query engine for Go.
//
// An index is built once over a fixed set of points and then answers
// find-closest-point queries: the single nearest indexed point within an
// optional cutoff radius. Features include:
//
//   - Two KD-tree layouts built over one shared point array: an implicit
//     complete tree (dense) and an explicit bounds-tracking tree (spatial)
//   - Four traversal strategies selectable per query: {dense, spatial} x
//     {bounded stack, stack-free}
//   - Exact results by default; a far-node budget for bounded
//     approximate search
//   - Allocation-free single queries with pooled per-query scratch state
//   - Parallel batch queries, optionally on a persistent worker pool
//   - Binary snapshots with optional LZ4/Zstandard compression and CRC32C
//     verification
//   - Snapshot storage on local disk, S3, MinIO, or in memory, with an
//     optional block cache and a DynamoDB-backed atomic publish pointer
//   - float32 and float64 point types via generics
//
// # Strategy Selection
//
// All four strategies return identical results on exact queries; they
// differ in speed characteristics:
//
//   - StrategyDenseStack: the default, fastest in most benchmarks
//   - StrategySpatialStack: tighter pruning, wins on clustered data
//   - StrategyDenseStackFree / StrategySpatialStackFree: no backtracking
//     stack, immune to stack overflow, slower per visited node
//
// # Quick Start
//
// Build an index over flat row-major data and query it:
//
//	points := []float32{
//	    0, 0,
//	    10, 10,
//	    5, 5,
//	}
//	db, err := kdgo.New(points, 2)
//	if err != nil {
//	    panic(err)
//	}
//	defer db.Close()
//
//	m, err := db.FindClosest([]float32{4, 4})
//	if err != nil {
//	    panic(err)
//	}
//	if m.Found() {
//	    fmt.Printf("closest id %d at distance %.2f\n", m.ID, m.Distance())
//	}
//
// Bound the search radius; a query with no point inside it reports no
// match instead of an error:
//
//	m, _ = db.FindClosest([]float32{100, 100}, kdgo.WithCutoff[float32](3))
//	fmt.Println(m.Found()) // false
//
// # Snapshots
//
// A built index can be saved and loaded without rebuilding:
//
//	err = db.SaveSnapshot("index.kdgo")
//	db2, err := kdgo.LoadSnapshot[float32]("index.kdgo")
//
// Remote storage goes through blobstore.BlobStore implementations:
//
//	store, err := s3.NewDefaultStore(ctx, "my-bucket", "indexes/prod")
//	err = db.SaveToBlob(ctx, store, "index.kdgo")
//
// # Concurrency
//
// The index is immutable after construction. All query and snapshot
// methods are safe for concurrent use.
package kdgo
