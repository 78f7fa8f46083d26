package transfer

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvprobe/kvprobe/internal/engine"
)

// recordingWriter captures each flushed batch, optionally failing from a
// chosen flush onwards.
type recordingWriter struct {
	batches [][]string
	sizes   []uint64
	failAt  int // 1-based flush number to start failing at, 0 = never
	calls   int
}

var errWriterDown = errors.New("destination unavailable")

func (w *recordingWriter) Write(_ engine.WriteOptions, batch *engine.Batch) error {
	w.calls++
	if w.failAt > 0 && w.calls >= w.failAt {
		return errWriterDown
	}
	var keys []string
	for _, r := range batch.Records() {
		keys = append(keys, string(r.Key))
	}
	w.batches = append(w.batches, keys)
	w.sizes = append(w.sizes, batch.ApproximateSize())
	return nil
}

func TestFlushAtThreshold(t *testing.T) {
	dst := &recordingWriter{}
	// Each record is 1+4+4+5+5 = 19 wire bytes; threshold 40 flushes on
	// every third record.
	w := NewBatchWriter(dst, engine.WriteOptions{}, 40)

	for i := 0; i < 7; i++ {
		require.NoError(t, w.Put([]byte(fmt.Sprintf("key-%d", i)), []byte("value")))
	}
	require.NoError(t, w.Finish())

	require.Len(t, dst.batches, 3)
	assert.Equal(t, []string{"key-0", "key-1", "key-2"}, dst.batches[0])
	assert.Equal(t, []string{"key-3", "key-4", "key-5"}, dst.batches[1])
	assert.Equal(t, []string{"key-6"}, dst.batches[2], "Finish writes the residue")
	for _, size := range dst.sizes[:2] {
		assert.GreaterOrEqual(t, size, uint64(40), "intermediate flushes only happen at the threshold")
	}
}

func TestFinishOnEmptyBatch(t *testing.T) {
	dst := &recordingWriter{}
	w := NewBatchWriter(dst, engine.WriteOptions{}, 0)
	require.NoError(t, w.Finish())
	assert.Zero(t, dst.calls, "nothing queued, nothing written")
}

func TestFirstErrorLatches(t *testing.T) {
	dst := &recordingWriter{failAt: 2}
	w := NewBatchWriter(dst, engine.WriteOptions{}, 40)

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Put([]byte(fmt.Sprintf("key-%d", i)), []byte("value")))
	}

	var flushErr error
	for i := 3; i < 9; i++ {
		if err := w.Put([]byte(fmt.Sprintf("key-%d", i)), []byte("value")); err != nil {
			flushErr = err
			break
		}
	}
	require.Error(t, flushErr)
	assert.ErrorIs(t, flushErr, errWriterDown)

	assert.ErrorIs(t, w.Put([]byte("late"), []byte("v")), errWriterDown,
		"every call after the failure returns the latched error")
	assert.ErrorIs(t, w.Delete([]byte("late")), errWriterDown)
	assert.ErrorIs(t, w.Finish(), errWriterDown)
	assert.Equal(t, 2, dst.calls, "no further writes are attempted after the failure")
}

func TestDeletesCountTowardThreshold(t *testing.T) {
	dst := &recordingWriter{}
	w := NewBatchWriter(dst, engine.WriteOptions{}, 40)

	require.NoError(t, w.Delete([]byte("key-0"))) // 14 wire bytes
	require.NoError(t, w.Delete([]byte("key-1")))
	require.NoError(t, w.Delete([]byte("key-2")))
	assert.Len(t, dst.batches, 1, "three tombstones cross the threshold")
	require.NoError(t, w.Finish())
}
