// Package ratelimit paces compaction disk writes with a token bucket so a
// full-database rewrite does not starve foreground reads.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Bucket is a bytes-per-second token bucket. A nil or zero-rate bucket
// never blocks.
type Bucket struct {
	mu       sync.Mutex
	rate     int64
	capacity int64
	tokens   int64
	last     time.Time
}

// NewBucket returns a bucket refilling at rate bytes per second, with one
// second of burst. Non-positive rates yield an unlimited bucket.
func NewBucket(rate int64) *Bucket {
	if rate <= 0 {
		return &Bucket{}
	}
	return &Bucket{
		rate:     rate,
		capacity: rate,
		tokens:   rate,
		last:     time.Now(),
	}
}

// WaitN blocks until n tokens are available or ctx is done.
func (b *Bucket) WaitN(ctx context.Context, n int64) error {
	if b == nil || b.rate <= 0 || n <= 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		b.mu.Lock()
		b.refillLocked()
		if b.tokens >= n {
			b.tokens -= n
			b.mu.Unlock()
			return nil
		}
		deficit := n - b.tokens
		b.mu.Unlock()

		wait := time.Duration(float64(deficit) / float64(b.rate) * float64(time.Second))
		if wait <= 0 {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (b *Bucket) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(b.last)
	if elapsed <= 0 {
		return
	}
	added := int64(float64(b.rate) * elapsed.Seconds())
	if added <= 0 {
		return
	}
	b.tokens += added
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = now
}
