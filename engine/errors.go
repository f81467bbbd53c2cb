package engine

import "errors"

// ErrPoolClosed is returned by Submit and RunBatch on a Pool after Close.
var ErrPoolClosed = errors.New("engine: worker pool closed")
