// Package transfer moves every record of a database through a size-bounded
// write batch: at most one batch is ever outstanding, and the first write
// failure stops the run for good.
package transfer

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kvprobe/kvprobe/internal/engine"
)

// DefaultFlushThreshold is how large a batch grows before it is written
// out: 10 MB, the sweet spot between flush frequency and peak memory for
// LevelDB-style write amplification.
const DefaultFlushThreshold uint64 = 10 * 1000 * 1000

var metricBatchFlushes = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "kvprobe",
	Subsystem: "transfer",
	Name:      "batch_flushes_total",
	Help:      "Transfer batches written to the destination.",
})

// Writer is the destination side of a transfer. *engine.DB satisfies it.
type Writer interface {
	Write(opts engine.WriteOptions, batch *engine.Batch) error
}

// BatchWriter accumulates puts and deletes and flushes whenever the
// batch's approximate size crosses the threshold. The first flush error is
// latched: every subsequent operation, and Finish, returns it. One
// goroutine per instance; there is no internal locking.
type BatchWriter struct {
	dst       Writer
	wopts     engine.WriteOptions
	threshold uint64
	batch     engine.Batch
	err       error
}

// NewBatchWriter writes to dst with the given options. A zero threshold
// selects DefaultFlushThreshold.
func NewBatchWriter(dst Writer, wopts engine.WriteOptions, threshold uint64) *BatchWriter {
	if threshold == 0 {
		threshold = DefaultFlushThreshold
	}
	return &BatchWriter{dst: dst, wopts: wopts, threshold: threshold}
}

// Put queues a record, flushing first if the batch is full.
func (w *BatchWriter) Put(key, value []byte) error {
	if w.err != nil {
		return w.err
	}
	w.batch.Put(key, value)
	return w.maybeFlush()
}

// Delete queues a tombstone, flushing first if the batch is full.
func (w *BatchWriter) Delete(key []byte) error {
	if w.err != nil {
		return w.err
	}
	w.batch.Delete(key)
	return w.maybeFlush()
}

// Finish flushes whatever is left below the threshold and reports the
// final status. The batch is empty afterwards on the success path.
func (w *BatchWriter) Finish() error {
	if w.err != nil {
		return w.err
	}
	return w.flush()
}

func (w *BatchWriter) maybeFlush() error {
	if w.batch.ApproximateSize() < w.threshold {
		return nil
	}
	return w.flush()
}

func (w *BatchWriter) flush() error {
	if w.batch.Len() == 0 {
		return nil
	}
	if err := w.dst.Write(w.wopts, &w.batch); err != nil {
		w.err = errors.Wrap(err, "transfer: flush batch")
		return w.err
	}
	w.batch.Clear()
	metricBatchFlushes.Inc()
	return nil
}
