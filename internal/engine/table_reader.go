package engine

import (
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"

	"github.com/kvprobe/kvprobe/internal/compress"
	"github.com/kvprobe/kvprobe/internal/diag"
	"github.com/kvprobe/kvprobe/internal/tap"
)

type readerDeps struct {
	cache   *blockCache
	codecs  []compress.Compressor
	infoLog *diag.Logger
}

// tableReader serves point reads and iteration over one immutable table
// file, memory-mapped for the lifetime of the open database.
type tableReader struct {
	meta   tableMeta
	mm     *mmap.ReaderAt
	index  []blockIndexEntry
	filter *bloomFilter
	deps   readerDeps
}

func openTable(dir string, meta tableMeta, deps readerDeps) (*tableReader, error) {
	mm, err := mmap.Open(tablePath(dir, meta.Filename))
	if err != nil {
		return nil, errors.Wrapf(err, "open table %s", meta.Filename)
	}
	r := &tableReader{meta: meta, mm: mm, deps: deps}

	headerBuf := make([]byte, tableHeaderSize)
	if _, err := mm.ReadAt(headerBuf, 0); err != nil {
		mm.Close()
		return nil, errors.Wrapf(err, "read table header %s", meta.Filename)
	}
	header, err := unmarshalTableHeader(headerBuf)
	if err != nil {
		mm.Close()
		return nil, errors.Wrapf(err, "table %s", meta.Filename)
	}

	indexBuf := make([]byte, header.IndexBytes)
	if _, err := mm.ReadAt(indexBuf, int64(header.IndexOffset)); err != nil {
		mm.Close()
		return nil, errors.Wrapf(err, "read block index %s", meta.Filename)
	}
	if r.index, err = decodeIndex(indexBuf, header.BlockCount); err != nil {
		mm.Close()
		return nil, errors.Wrapf(err, "table %s", meta.Filename)
	}

	bloomBuf := make([]byte, header.BloomBytes)
	if _, err := mm.ReadAt(bloomBuf, int64(header.BloomOffset)); err != nil {
		mm.Close()
		return nil, errors.Wrapf(err, "read bloom filter %s", meta.Filename)
	}
	if r.filter, err = unmarshalBloom(bloomBuf); err != nil {
		mm.Close()
		return nil, errors.Wrapf(err, "table %s", meta.Filename)
	}
	return r, nil
}

func (r *tableReader) close() error {
	return r.mm.Close()
}

// readBlock returns the decoded entries of block i. Cache hits skip the
// decode entirely and therefore emit no diagnostic event, same as a block
// served from the engine cache never hits the decompressor.
func (r *tableReader) readBlock(i int, ropts ReadOptions) ([]tableEntry, error) {
	key := cacheKey{table: r.meta.ID, block: i}
	if entries, ok := r.deps.cache.get(key); ok {
		return entries, nil
	}

	ie := r.index[i]
	raw := make([]byte, ie.length)
	if _, err := r.mm.ReadAt(raw, int64(ie.offset)); err != nil {
		return nil, errors.Wrapf(err, "read block %d of %s", i, r.meta.Filename)
	}

	// Report the codec before attempting the decode: blocks written by a
	// compressor this database was not opened with must still show up on
	// the diagnostic channel.
	id, err := blockCodecID(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "block %d of %s", i, r.meta.Filename)
	}
	r.deps.infoLog.Logf("table %s: block %d decoded with compressor %d", r.meta.Filename, i, id)
	tap.Dispatch(r.deps.infoLog, id)
	metricBlocksDecoded.WithLabelValues(compressorLabel(id)).Inc()

	payload, err := openBlock(raw, r.deps.codecs, ropts.VerifyChecksums)
	if err != nil {
		return nil, errors.Wrapf(err, "block %d of %s", i, r.meta.Filename)
	}
	entries, err := decodeEntries(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "block %d of %s", i, r.meta.Filename)
	}
	if ropts.FillCache {
		r.deps.cache.add(key, entries)
	}
	return entries, nil
}

// get looks up one key. The bool reports whether the table has an opinion
// about the key at all; a tombstone entry is an opinion.
func (r *tableReader) get(key string, ropts ReadOptions) (tableEntry, bool, error) {
	if key < r.meta.MinKey || key > r.meta.MaxKey {
		return tableEntry{}, false, nil
	}
	if !r.filter.mayContain([]byte(key)) {
		return tableEntry{}, false, nil
	}
	i := sort.Search(len(r.index), func(i int) bool { return r.index[i].firstKey > key }) - 1
	if i < 0 {
		return tableEntry{}, false, nil
	}
	entries, err := r.readBlock(i, ropts)
	if err != nil {
		return tableEntry{}, false, err
	}
	j := sort.Search(len(entries), func(j int) bool { return entries[j].key >= key })
	if j < len(entries) && entries[j].key == key {
		return entries[j], true, nil
	}
	return tableEntry{}, false, nil
}
