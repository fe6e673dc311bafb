package rate_limiter

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Limiter throttles downloads by bytes per second and number of concurrent downloads
type Limiter struct {
	Name string

	// underlying rate limiter
	limiter *rate.Limiter
	// semaphore to control concurrency
	sem            *semaphore.Weighted
	maxConcurrency int64
}

func NewLimiter(l *Definition) (*Limiter, error) {
	if errs := l.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid rate limiter %s: %s", l.Name, strings.Join(errs, ", "))
	}
	res := &Limiter{
		Name:           l.Name,
		maxConcurrency: l.MaxConcurrency,
	}
	if l.FillRate > 0 {
		res.limiter = rate.NewLimiter(l.FillRate, int(l.BucketSize))
	}
	if l.MaxConcurrency > 0 {
		res.sem = semaphore.NewWeighted(l.MaxConcurrency)
	}
	return res, nil
}

func (l *Limiter) String() string {
	var parts []string
	if l.limiter != nil {
		parts = append(parts, fmt.Sprintf("Limit(bytes/s): %v, Burst: %d", l.limiter.Limit(), l.limiter.Burst()))
	}
	if l.sem != nil {
		parts = append(parts, fmt.Sprintf("MaxConcurrency: %d", l.maxConcurrency))
	}
	if len(parts) == 0 {
		return "unlimited"
	}
	return strings.Join(parts, " ")
}

// Acquire blocks until a download slot is free
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.sem == nil {
		return nil
	}
	return l.sem.Acquire(ctx, 1)
}

func (l *Limiter) TryToAcquire() bool {
	if l.sem == nil {
		return true
	}
	return l.sem.TryAcquire(1)
}

func (l *Limiter) Release() {
	if l.sem == nil {
		return
	}
	l.sem.Release(1)
}

// maxChunk is the largest read a single token wait may cover
func (l *Limiter) maxChunk() int {
	if l.limiter == nil {
		return 0
	}
	return l.limiter.Burst()
}

// WaitN blocks until n bytes may be consumed
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	if l.limiter == nil {
		return nil
	}
	burst := l.limiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := l.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
