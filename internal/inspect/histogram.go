// Package inspect recovers which codecs produced the blocks of a database.
// It owns the sweep that forces every block through the engine's decode
// path, the histogram that tallies the observed compressor IDs, and the
// guard that turns the tally into a go/no-go answer for destructive
// operations.
package inspect

import (
	"errors"
	"sync/atomic"

	"github.com/kvprobe/kvprobe/internal/compress"
	"github.com/kvprobe/kvprobe/internal/diag"
	"github.com/kvprobe/kvprobe/internal/tap"
)

var ErrNilLogger = errors.New("inspect: histogram needs a logger identity")

// Histogram counts block-decode events per compressor ID. The ID space is
// 8-bit, so a fixed array of atomic counters beats a locked map: dispatch
// from concurrent engine threads touches independent slots.
type Histogram struct {
	counts [int(compress.MaxCompressorID) + 1]atomic.Uint64
	entry  *tap.Entry
}

// NewHistogram attaches to the tap registry under the given logger
// identity and starts counting.
func NewHistogram(logger *diag.Logger) (*Histogram, error) {
	if logger == nil {
		return nil, ErrNilLogger
	}
	h := &Histogram{}
	entry, err := tap.Attach(logger, func(id compress.CompressorID) {
		h.counts[id].Add(1)
	})
	if err != nil {
		return nil, err
	}
	h.entry = entry
	return h, nil
}

// Drain atomically reads-and-resets every counter and returns the non-zero
// ones. Each call reports only activity since the previous drain, so a
// histogram can serve repeated sweeps without double counting. Call Close
// first if the final tally must be complete.
func (h *Histogram) Drain() map[compress.CompressorID]uint64 {
	out := make(map[compress.CompressorID]uint64)
	for i := range h.counts {
		if n := h.counts[i].Swap(0); n > 0 {
			out[compress.CompressorID(i)] = n
		}
	}
	return out
}

// Close detaches from the tap registry. After Close returns, no further
// dispatch can increment the counters.
func (h *Histogram) Close() {
	h.entry.Close()
}
