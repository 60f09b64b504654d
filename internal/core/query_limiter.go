package core

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyQueries means no query slot freed up within the limiter's
// wait.
var ErrTooManyQueries = errors.New("too many concurrent queries, please try again later")

const (
	DefaultMaxConcurrentQueries = 8
	DefaultQueryWait            = 5 * time.Second
)

// QueryLimiter bounds the table queries running against the pool. Every
// change request of every open controller ends in a fetch, so a burst
// of filter edits across sessions would otherwise pile up on the pool
// and time out together.
type QueryLimiter struct {
	sem     *semaphore.Weighted
	size    int
	maxWait time.Duration
	active  atomic.Int64
}

// NewQueryLimiter allows maxConcurrent queries at once. Non-positive
// arguments select the defaults.
func NewQueryLimiter(maxConcurrent int, maxWait time.Duration) *QueryLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentQueries
	}
	if maxWait <= 0 {
		maxWait = DefaultQueryWait
	}
	return &QueryLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		size:    maxConcurrent,
		maxWait: maxWait,
	}
}

// Acquire waits up to the limiter's wait for a slot. The caller must
// Release after a nil return.
func (l *QueryLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyQueries
	}
	l.active.Add(1)
	return nil
}

// Release frees a slot taken by Acquire.
func (l *QueryLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of queries holding a slot.
func (l *QueryLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// Available returns the number of free slots.
func (l *QueryLimiter) Available() int {
	return l.size - l.ActiveCount()
}

// WaitForDrain polls until no query holds a slot or ctx ends. The server
// calls it on shutdown before closing the pool.
func (l *QueryLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// QueryLimiterStatus is reported by the health endpoint.
type QueryLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

func (l *QueryLimiter) Status() QueryLimiterStatus {
	active := l.ActiveCount()
	return QueryLimiterStatus{
		Active:        active,
		Available:     l.size - active,
		MaxConcurrent: l.size,
	}
}
