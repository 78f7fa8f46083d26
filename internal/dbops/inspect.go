package dbops

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kvprobe/kvprobe/internal/compress"
	"github.com/kvprobe/kvprobe/internal/engine"
	"github.com/kvprobe/kvprobe/internal/inspect"
)

// AlgoCount is one histogram row of a list-algos report.
type AlgoCount struct {
	ID    compress.CompressorID
	Name  string
	Count uint64
}

// ListAlgos sweeps the database and reports how many blocks each
// compressor produced, sorted by ID. Unknown IDs appear as "unknown" —
// an unreadable block is a finding here, not a failure, so the sweep's
// unknown-compressor error is demoted to a log line.
func ListAlgos(path string, log logrus.FieldLogger) ([]AlgoCount, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	opts := openOpts(log)
	db, err := engine.Open(path, opts)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	defer db.Close()

	hist, err := inspect.NewHistogram(opts.InfoLog)
	if err != nil {
		return nil, err
	}
	sweepErr := inspect.Sweep(db)
	hist.Close()
	counts := hist.Drain()

	if sweepErr != nil {
		if !errors.Is(sweepErr, engine.ErrUnknownCompressor) {
			return nil, errors.Wrap(sweepErr, "sweep")
		}
		log.WithError(sweepErr).Warn("sweep stopped at an undecodable block; counts may be partial")
	}

	reg := compress.Builtin()
	out := make([]AlgoCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, AlgoCount{ID: id, Name: reg.NameFor(id), Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
