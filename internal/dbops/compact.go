package dbops

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kvprobe/kvprobe/internal/engine"
)

// CompactOptions tune an in-place compaction.
type CompactOptions struct {
	// Compress re-seals rewritten blocks with the default codec; when
	// false the compacted database ends up uncompressed.
	Compress bool

	Logger logrus.FieldLogger
}

// Compact rewrites the database in place, but only after a sweep proves
// every stored block was produced by a codec this session can decode.
// A MissingCompressorsError means nothing was touched.
func Compact(path string, opts CompactOptions) error {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	engOpts := openOpts(log)
	engOpts.DisableWriteCompression = !opts.Compress
	db, err := engine.Open(path, engOpts)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer db.Close()

	if err := checkGuard(db, engOpts); err != nil {
		return err
	}
	log.Info("no missing compressors, compacting")
	return db.CompactRange()
}
