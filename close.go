package kdgo

// Close releases resources held by the index, primarily the persistent
// worker pool when WithWorkerPool was used. Queries issued after Close
// fail with ErrClosed. Close is idempotent and safe on a nil receiver.
func (db *KDGo[S]) Close() error {
	if db == nil {
		return nil
	}
	if db.closed.Swap(true) {
		return nil
	}
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}
