package resource

import (
	"context"
	"io"
)

// RateLimitedWriter throttles writes through a Controller's IO limiter.
type RateLimitedWriter struct {
	w   io.Writer
	rc  *Controller
	ctx context.Context
}

// NewRateLimitedWriter wraps w. A nil Controller passes writes through.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *RateLimitedWriter {
	return &RateLimitedWriter{w: w, rc: rc, ctx: ctx}
}

func (w *RateLimitedWriter) Write(p []byte) (int, error) {
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}

// RateLimitedReader throttles reads through a Controller's IO limiter.
// The wait covers len(p), the upper bound of what Read may consume.
type RateLimitedReader struct {
	r   io.Reader
	rc  *Controller
	ctx context.Context
}

// NewRateLimitedReader wraps r. A nil Controller passes reads through.
func NewRateLimitedReader(ctx context.Context, r io.Reader, rc *Controller) *RateLimitedReader {
	return &RateLimitedReader{r: r, rc: rc, ctx: ctx}
}

func (r *RateLimitedReader) Read(p []byte) (int, error) {
	if err := r.rc.AcquireIO(r.ctx, len(p)); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
