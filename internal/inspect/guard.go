package inspect

import (
	"github.com/kvprobe/kvprobe/internal/compress"
	"github.com/kvprobe/kvprobe/internal/diag"
)

// Guard is the pre-flight safety check in front of compaction and
// clearing: it compares the compressor IDs observed during a sweep against
// the IDs the open database can actually decode. Any ID in neither set
// means some stored block would be lost the moment it is rewritten.
type Guard struct {
	hist  *Histogram
	known map[compress.CompressorID]struct{}
}

// NewGuard builds a guard for a database opened with the given diagnostic
// logger and codec set.
func NewGuard(logger *diag.Logger, codecs []compress.Compressor) (*Guard, error) {
	hist, err := NewHistogram(logger)
	if err != nil {
		return nil, err
	}
	known := make(map[compress.CompressorID]struct{}, len(codecs))
	for _, c := range codecs {
		known[c.ID()] = struct{}{}
	}
	return &Guard{hist: hist, known: known}, nil
}

// Missing drains the histogram, discards ID 0 and every known ID, and
// returns what survives. A non-empty result is a hard stop: compacting or
// deleting would re-encode or drop blocks no configured codec can read.
func (g *Guard) Missing() map[compress.CompressorID]uint64 {
	counts := g.hist.Drain()
	delete(counts, compress.NoCompression)
	for id := range g.known {
		delete(counts, id)
	}
	return counts
}

// Close detaches the guard's histogram. Must happen before the final
// Missing call is trusted.
func (g *Guard) Close() {
	g.hist.Close()
}
