// Package engine is a block-compressed LSM storage engine. Values live in
// sorted, immutable table files whose blocks are independently compressed;
// each block's codec is recorded only as a single trailer byte, and the
// engine announces it on the configured diagnostic logger every time a
// block is decoded from disk. That announcement is the observation channel
// the rest of this project is built on.
package engine

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type DB struct {
	path  string
	opts  *Options
	log   logrus.FieldLogger
	cache *blockCache

	mu     sync.RWMutex
	mem    *memtable
	wal    *wal
	tables []*tableReader // newest first
	man    *manifest
	closed bool

	compactionMu sync.Mutex
}

// Open opens or creates the database at path.
func Open(path string, opts *Options) (*DB, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	exists, err := manifestExists(path)
	if err != nil {
		return nil, err
	}
	if !exists && !opts.CreateIfMissing {
		return nil, errors.Wrapf(ErrDBMissing, "open %s", path)
	}
	if exists && opts.ErrorIfExists {
		return nil, errors.Wrapf(ErrDBExists, "open %s", path)
	}

	var man *manifest
	if exists {
		if man, err = loadManifest(path); err != nil {
			return nil, err
		}
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
		man = newManifest()
		if err := saveManifest(path, man); err != nil {
			return nil, err
		}
	}

	db := &DB{
		path:  path,
		opts:  opts,
		log:   opts.Logger.WithField("db", path),
		cache: newBlockCache(opts.BlockCacheCapacity, opts.BlockSize),
		mem:   newMemtable(),
		man:   man,
	}
	for _, meta := range man.Tables {
		reader, err := openTable(path, meta, db.readerDeps())
		if err != nil {
			db.closeTables()
			return nil, err
		}
		db.tables = append(db.tables, reader)
	}

	// Writes logged before the last flush completed live only in the WAL;
	// replay them into the memtable before taking new traffic.
	replayed, err := replayWAL(path)
	if err != nil {
		db.closeTables()
		return nil, err
	}
	for _, e := range replayed {
		db.mem.set(e.key, e.value, e.tombstone)
	}
	if db.wal, err = openWAL(path); err != nil {
		db.closeTables()
		return nil, err
	}

	db.log.WithFields(logrus.Fields{
		"db_id":    man.DBID,
		"tables":   len(man.Tables),
		"replayed": len(replayed),
	}).Debug("database opened")
	return db, nil
}

func (db *DB) readerDeps() readerDeps {
	return readerDeps{
		cache:   db.cache,
		codecs:  db.opts.Compressors,
		infoLog: db.opts.InfoLog,
	}
}

// Get returns the value stored under key.
func (db *DB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, ErrClosed
	}
	if e, ok := db.mem.get(string(key)); ok {
		if e.tombstone {
			return nil, ErrNotFound
		}
		return append([]byte(nil), e.value...), nil
	}
	ropts := ReadOptions{FillCache: true}
	for _, t := range db.tables {
		e, found, err := t.get(string(key), ropts)
		if err != nil {
			return nil, err
		}
		if found {
			if e.tombstone {
				return nil, ErrNotFound
			}
			return append([]byte(nil), e.value...), nil
		}
	}
	return nil, ErrNotFound
}

// Write applies the batch. The memtable is flushed to a table file once it
// outgrows the write buffer.
func (db *DB) Write(wopts WriteOptions, batch *Batch) error {
	if batch == nil || batch.Len() == 0 {
		return nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := db.wal.logBatch(batch, wopts.Sync); err != nil {
		return err
	}
	db.mem.apply(batch)
	if db.mem.bytes >= db.opts.WriteBufferSize {
		return db.flushLocked()
	}
	return nil
}

// Flush forces the memtable out to a table file.
func (db *DB) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	return db.flushLocked()
}

func (db *DB) flushLocked() error {
	if db.mem.empty() {
		return nil
	}
	id := db.man.NextID
	filename := tableFileName(id)
	meta, err := writeTable(context.Background(), tablePath(db.path, filename), db.mem.snapshot(), tableBuild{
		blockSize:  db.opts.BlockSize,
		bitsPerKey: db.opts.BloomBitsPerKey,
		codec:      db.opts.writeCodec(),
	})
	if err != nil {
		return err
	}
	meta.ID = id
	meta.Filename = filename

	db.man.NextID = id + 1
	db.man.Tables = append(db.man.Tables, meta)
	sortTablesByIDDesc(db.man.Tables)
	if err := saveManifest(db.path, db.man); err != nil {
		_ = os.Remove(tablePath(db.path, filename))
		return err
	}

	reader, err := openTable(db.path, meta, db.readerDeps())
	if err != nil {
		return err
	}
	db.tables = append([]*tableReader{reader}, db.tables...)
	db.mem.reset()
	if err := db.wal.reset(); err != nil {
		return err
	}
	metricMemtableFlushes.Inc()
	db.log.WithFields(logrus.Fields{
		"table":   filename,
		"entries": meta.Entries,
		"bytes":   meta.Bytes,
	}).Debug("memtable flushed")
	return nil
}

// NewIterator returns a forward iterator over the database's current
// contents. The iterator holds a stable view of the memtable but reads
// table blocks lazily.
func (db *DB) NewIterator(ropts ReadOptions) *Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return &Iterator{
		memEntries: db.mem.snapshot(),
		tables:     append([]*tableReader(nil), db.tables...),
		ropts:      ropts,
	}
}

// Close flushes buffered writes and releases the table files and the WAL.
// An unflushed memtable would otherwise be rebuilt from the WAL on the
// next open, at replay cost.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	flushErr := db.flushLocked()
	db.closed = true
	if db.wal != nil {
		if err := db.wal.close(); err != nil && flushErr == nil {
			flushErr = errors.Wrap(err, "close wal")
		}
	}
	if err := db.closeTablesLocked(); err != nil && flushErr == nil {
		flushErr = err
	}
	return flushErr
}

func (db *DB) closeTables() {
	db.mu.Lock()
	defer db.mu.Unlock()
	_ = db.closeTablesLocked()
}

func (db *DB) closeTablesLocked() error {
	var first error
	for _, t := range db.tables {
		if err := t.close(); err != nil && first == nil {
			first = err
		}
	}
	db.tables = nil
	return first
}
