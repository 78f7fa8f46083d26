// Package dbops implements the operations the CLI exposes: copy,
// list-algos, compact and clear. Each one composes the engine with the
// tap/histogram machinery; the destructive ones run the missing-compressor
// guard first and refuse to touch data no configured codec can read.
package dbops

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kvprobe/kvprobe/internal/compress"
	"github.com/kvprobe/kvprobe/internal/diag"
	"github.com/kvprobe/kvprobe/internal/engine"
	"github.com/kvprobe/kvprobe/internal/inspect"
)

// MissingCompressorsError aborts a destructive operation: the database
// holds blocks produced by compressors the current session cannot decode,
// and rewriting them would lose data irrecoverably. Never bypass or retry
// around it.
type MissingCompressorsError struct {
	Counts map[compress.CompressorID]uint64
}

func (e *MissingCompressorsError) Error() string {
	ids := make([]int, 0, len(e.Counts))
	for id := range e.Counts {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d (%d blocks)", id, e.Counts[compress.CompressorID(id)]))
	}
	return "refusing to proceed: blocks written by unknown compressor IDs " + strings.Join(parts, ", ")
}

func openOpts(log logrus.FieldLogger) *engine.Options {
	opts := engine.DefaultOptions()
	opts.Compressors = sessionCodecs()
	opts.InfoLog = diag.Discard()
	opts.Logger = log
	return opts
}

// sessionCodecs returns every built-in codec with the registry default in
// slot 0, so anything written through the session is sealed with the
// default while all of them stay decodable.
func sessionCodecs() []compress.Compressor {
	reg := compress.Builtin()
	out := reg.Codecs(false)
	for _, c := range reg.Codecs(true) {
		if c.ID() != out[0].ID() {
			out = append(out, c)
		}
	}
	return out
}

// checkGuard sweeps an open database and returns a MissingCompressorsError
// if any observed compressor ID is outside the session's codec set. The
// sweep's own iterator error is secondary: an unreadable block is exactly
// what the guard exists to report.
func checkGuard(db *engine.DB, opts *engine.Options) error {
	guard, err := inspect.NewGuard(opts.InfoLog, opts.Compressors)
	if err != nil {
		return err
	}
	sweepErr := inspect.Sweep(db)
	guard.Close()
	if missing := guard.Missing(); len(missing) > 0 {
		return &MissingCompressorsError{Counts: missing}
	}
	return sweepErr
}
