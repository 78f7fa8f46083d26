package engine

import (
	"container/heap"
	"context"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/kvprobe/kvprobe/internal/ratelimit"
)

// CompactRange rewrites the whole keyspace: the memtable is flushed, every
// table is merged into fresh ones with the current write codec, and
// tombstones are dropped. Blocks are re-read through the normal decode
// path, so compaction of a database holding blocks from an unconfigured
// compressor fails instead of silently re-encoding garbage — callers are
// expected to run the missing-compressor guard first.
func (db *DB) CompactRange() error {
	db.compactionMu.Lock()
	defer db.compactionMu.Unlock()

	if err := db.Flush(); err != nil {
		return err
	}

	db.mu.RLock()
	if db.closed {
		db.mu.RUnlock()
		return ErrClosed
	}
	old := append([]*tableReader(nil), db.tables...)
	db.mu.RUnlock()
	if len(old) == 0 {
		return nil
	}

	ctx := context.Background()
	limiter := ratelimit.NewBucket(db.opts.CompactionRateLimit)
	build := tableBuild{
		blockSize:  db.opts.BlockSize,
		bitsPerKey: db.opts.BloomBitsPerKey,
		codec:      db.opts.writeCodec(),
		limiter:    limiter,
	}
	ropts := ReadOptions{VerifyChecksums: true}

	var newMetas []tableMeta
	var pending []tableEntry
	var pendingBytes uint64

	flushPending := func() error {
		if len(pending) == 0 {
			return nil
		}
		id := db.nextTableID()
		filename := tableFileName(id)
		meta, err := writeTable(ctx, tablePath(db.path, filename), pending, build)
		if err != nil {
			return err
		}
		meta.ID = id
		meta.Filename = filename
		newMetas = append(newMetas, meta)
		pending = nil
		pendingBytes = 0
		return nil
	}

	err := db.mergeTables(old, ropts, func(e tableEntry) error {
		if e.tombstone {
			return nil
		}
		size := recordWireSize([]byte(e.key), e.value)
		if pendingBytes+size > db.opts.MaxTableSize && len(pending) > 0 {
			if err := flushPending(); err != nil {
				return err
			}
		}
		pending = append(pending, e)
		pendingBytes += size
		return nil
	})
	if err != nil {
		db.removeTableFiles(newMetas)
		return err
	}
	if err := flushPending(); err != nil {
		db.removeTableFiles(newMetas)
		return err
	}

	if err := db.replaceTables(old, newMetas); err != nil {
		db.removeTableFiles(newMetas)
		return err
	}
	metricCompactions.Inc()
	db.log.WithFields(logrus.Fields{
		"tables_before": len(old),
		"tables_after":  len(newMetas),
	}).Info("compaction finished")
	return nil
}

// mergeTables streams the merged view of the given tables, newest first,
// emitting exactly one entry per key (tombstones included, so the caller
// decides their fate).
func (db *DB) mergeTables(tables []*tableReader, ropts ReadOptions, emit func(tableEntry) error) error {
	var h mergeHeap
	for rank, t := range tables {
		it := newTableIterator(t, ropts)
		if it.next() {
			heap.Push(&h, mergeItem{key: it.entry().key, rank: rank, iter: it})
		} else if err := it.err(); err != nil {
			return err
		}
	}
	for h.Len() > 0 {
		item := heap.Pop(&h).(mergeItem)
		group := []mergeItem{item}
		for h.Len() > 0 && h[0].key == item.key {
			group = append(group, heap.Pop(&h).(mergeItem))
		}
		if err := emit(group[0].iter.entry()); err != nil {
			return err
		}
		for _, g := range group {
			if g.iter.next() {
				heap.Push(&h, mergeItem{key: g.iter.entry().key, rank: g.rank, iter: g.iter})
			} else if err := g.iter.err(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (db *DB) nextTableID() uint64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := db.man.NextID
	db.man.NextID = id + 1
	return id
}

// replaceTables atomically swaps the live table set for the compacted one.
// The manifest is published first; old files are removed only afterwards,
// so a crash in between leaves garbage files, never a broken database.
func (db *DB) replaceTables(old []*tableReader, newMetas []tableMeta) error {
	newReaders := make([]*tableReader, 0, len(newMetas))
	for _, meta := range newMetas {
		r, err := openTable(db.path, meta, db.readerDeps())
		if err != nil {
			for _, nr := range newReaders {
				_ = nr.close()
			}
			return err
		}
		newReaders = append(newReaders, r)
	}

	db.mu.Lock()
	db.man.Tables = append([]tableMeta(nil), newMetas...)
	sortTablesByIDDesc(db.man.Tables)
	if err := saveManifest(db.path, db.man); err != nil {
		db.mu.Unlock()
		for _, nr := range newReaders {
			_ = nr.close()
		}
		return err
	}
	sortReadersByIDDesc(newReaders)
	db.tables = newReaders
	db.mu.Unlock()

	for _, t := range old {
		_ = t.close()
		_ = os.Remove(tablePath(db.path, t.meta.Filename))
	}
	return nil
}

func (db *DB) removeTableFiles(metas []tableMeta) {
	for _, m := range metas {
		_ = os.Remove(tablePath(db.path, m.Filename))
	}
}

func sortReadersByIDDesc(readers []*tableReader) {
	sort.Slice(readers, func(i, j int) bool { return readers[i].meta.ID > readers[j].meta.ID })
}
