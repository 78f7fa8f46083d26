package inspect

import (
	"github.com/kvprobe/kvprobe/internal/engine"
)

// Sweep walks the database front to back and throws every record away.
// Its entire value is the side effect: each on-disk block touched emits a
// compressor-identification event on the database's diagnostic logger. The
// sweep reads cold (no cache fill) so no block is served from memory, and
// skips checksum verification; a damaged block should still report its
// codec. An iterator failure surfaces once, after exhaustion.
func Sweep(db *engine.DB) error {
	iter := db.NewIterator(engine.ReadOptions{FillCache: false, VerifyChecksums: false})
	for iter.SeekToFirst(); iter.Valid(); iter.Next() {
	}
	return iter.Err()
}
