package rate_limiter

import (
	"context"
	"io"
	"sync"
)

// Reader throttles reads from a download stream
type Reader struct {
	ctx     context.Context
	r       io.ReadCloser
	limiter *Limiter

	closeOnce sync.Once
	closeErr  error
}

// NewReader acquires a download slot from limiter and returns a reader consuming r at the limiter's rate.
// Closing the reader releases the slot and closes r
func NewReader(ctx context.Context, r io.ReadCloser, limiter *Limiter) (*Reader, error) {
	if err := limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return &Reader{ctx: ctx, r: r, limiter: limiter}, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	if c := r.limiter.maxChunk(); c > 0 && len(p) > c {
		p = p[:c]
	}
	n, err := r.r.Read(p)
	if n > 0 {
		if waitErr := r.limiter.WaitN(r.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}

func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.r.Close()
		r.limiter.Release()
	})
	return r.closeErr
}
