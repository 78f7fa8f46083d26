package dbops

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kvprobe/kvprobe/internal/compress"
	"github.com/kvprobe/kvprobe/internal/engine"
	"github.com/kvprobe/kvprobe/internal/transfer"
)

// CopyOptions tune a database copy.
type CopyOptions struct {
	// Compress seals the destination's blocks with the default codec;
	// otherwise they are stored raw, which is how compression is removed
	// from a database.
	Compress bool
	// Overwrite permits copying into an existing destination.
	Overwrite bool
	// FlushThreshold overrides the transfer batch size; zero keeps the
	// default.
	FlushThreshold uint64

	Logger logrus.FieldLogger
}

// Copy clones every record of the source database into dest, then
// compacts dest so it settles into its final on-disk shape. The source is
// opened with every known codec; the destination writes with either the
// default codec or none.
func Copy(src, dest string, opts CopyOptions) error {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	srcOpts := openOpts(log)
	srcDB, err := engine.Open(src, srcOpts)
	if err != nil {
		return errors.Wrap(err, "open source")
	}
	defer srcDB.Close()

	destOpts := engine.DefaultOptions()
	destOpts.CreateIfMissing = true
	destOpts.ErrorIfExists = !opts.Overwrite
	destOpts.Logger = log
	if opts.Compress {
		destOpts.Compressors = compress.Builtin().Codecs(false)
	}
	destDB, err := engine.Open(dest, destOpts)
	if err != nil {
		return errors.Wrap(err, "open destination")
	}
	defer destDB.Close()

	writer := transfer.NewBatchWriter(destDB, engine.WriteOptions{}, opts.FlushThreshold)
	var copied uint64
	iter := srcDB.NewIterator(engine.ReadOptions{VerifyChecksums: true})
	for iter.SeekToFirst(); iter.Valid(); iter.Next() {
		if err := writer.Put(iter.Key(), iter.Value()); err != nil {
			return err
		}
		copied++
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "read source")
	}
	if err := writer.Finish(); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"records":  copied,
		"compress": opts.Compress,
	}).Info("copy complete, compacting destination")

	return destDB.CompactRange()
}
