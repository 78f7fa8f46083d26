package dbops

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kvprobe/kvprobe/internal/engine"
	"github.com/kvprobe/kvprobe/internal/transfer"
)

// Clear deletes every record in the database through the buffered
// transfer engine, guarded the same way as Compact: if any block's codec
// is unknown, the keys inside it cannot even be enumerated reliably, so
// nothing is deleted.
func Clear(path string, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	opts := openOpts(log)
	db, err := engine.Open(path, opts)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer db.Close()

	if err := checkGuard(db, opts); err != nil {
		return err
	}

	writer := transfer.NewBatchWriter(db, engine.WriteOptions{}, 0)
	var deleted uint64
	iter := db.NewIterator(engine.ReadOptions{})
	for iter.SeekToFirst(); iter.Valid(); iter.Next() {
		if err := writer.Delete(iter.Key()); err != nil {
			return err
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "iterate database")
	}
	if err := writer.Finish(); err != nil {
		return err
	}
	log.WithField("records", deleted).Info("database cleared")
	return nil
}
