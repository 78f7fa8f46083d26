package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNilAndUnlimitedNeverBlock(t *testing.T) {
	var nilBucket *Bucket
	if err := nilBucket.WaitN(context.Background(), 1<<30); err != nil {
		t.Fatalf("nil bucket: %v", err)
	}
	if err := NewBucket(0).WaitN(context.Background(), 1<<30); err != nil {
		t.Fatalf("zero-rate bucket: %v", err)
	}
	if err := NewBucket(-5).WaitN(context.Background(), 1); err != nil {
		t.Fatalf("negative-rate bucket: %v", err)
	}
}

func TestBurstThenPace(t *testing.T) {
	b := NewBucket(1 << 20)

	// The initial burst covers a full second of tokens without waiting.
	start := time.Now()
	if err := b.WaitN(context.Background(), 1<<20); err != nil {
		t.Fatalf("burst: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("burst should not block, waited %v", elapsed)
	}

	// The bucket is drained now; a further request has to wait for refill.
	start = time.Now()
	if err := b.WaitN(context.Background(), 1<<18); err != nil {
		t.Fatalf("paced wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("quarter of the rate should take about 250ms, waited %v", elapsed)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	b := NewBucket(1)
	if err := b.WaitN(context.Background(), 1); err != nil {
		t.Fatalf("initial token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := b.WaitN(ctx, 1<<20)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}
