package engine

import (
	"bytes"
	"context"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/kvprobe/kvprobe/internal/compress"
	"github.com/kvprobe/kvprobe/internal/ratelimit"
)

type tableBuild struct {
	blockSize  uint64
	bitsPerKey float64
	codec      compress.Compressor
	limiter    *ratelimit.Bucket
}

// writeTable writes the entries as a complete table file at path, through
// a temp file renamed into place. Entries are sorted here; callers may
// pass them in any order.
func writeTable(ctx context.Context, path string, entries []tableEntry, build tableBuild) (tableMeta, error) {
	if len(entries) == 0 {
		return tableMeta{}, errors.Wrap(ErrInvalidOptions, "write empty table")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	filter := newBloomFilter(uint32(len(entries)), build.bitsPerKey)
	for _, e := range entries {
		filter.add([]byte(e.key))
	}

	tempPath := path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o666)
	if err != nil {
		return tableMeta{}, errors.Wrap(err, "create table file")
	}
	cleanup := true
	defer func() {
		if cleanup {
			file.Close()
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(make([]byte, tableHeaderSize)); err != nil {
		return tableMeta{}, errors.Wrap(err, "reserve table header")
	}

	offset := uint64(tableHeaderSize)
	var index []blockIndexEntry
	blockBuf := &bytes.Buffer{}
	blockFirst := ""
	blockEntries := uint32(0)

	flushBlock := func() error {
		if blockEntries == 0 {
			return nil
		}
		raw, err := sealBlock(blockBuf.Bytes(), build.codec)
		if err != nil {
			return err
		}
		if err := build.limiter.WaitN(ctx, int64(len(raw))); err != nil {
			return err
		}
		if _, err := file.Write(raw); err != nil {
			return errors.Wrap(err, "write block")
		}
		index = append(index, blockIndexEntry{
			firstKey: blockFirst,
			offset:   offset,
			length:   uint32(len(raw)),
			entries:  blockEntries,
		})
		offset += uint64(len(raw))
		blockBuf.Reset()
		blockEntries = 0
		return nil
	}

	for _, e := range entries {
		if blockEntries == 0 {
			blockFirst = e.key
		}
		encodeEntry(blockBuf, e)
		blockEntries++
		if uint64(blockBuf.Len()) >= build.blockSize {
			if err := flushBlock(); err != nil {
				return tableMeta{}, err
			}
		}
	}
	if err := flushBlock(); err != nil {
		return tableMeta{}, err
	}

	indexBytes := encodeIndex(index)
	indexOffset := offset
	if _, err := file.Write(indexBytes); err != nil {
		return tableMeta{}, errors.Wrap(err, "write block index")
	}
	offset += uint64(len(indexBytes))

	bloomBytes := filter.marshal()
	bloomOffset := offset
	if _, err := file.Write(bloomBytes); err != nil {
		return tableMeta{}, errors.Wrap(err, "write bloom filter")
	}
	offset += uint64(len(bloomBytes))

	header := tableHeader{
		BlockCount:  uint32(len(index)),
		EntryCount:  uint32(len(entries)),
		IndexOffset: indexOffset,
		IndexBytes:  uint32(len(indexBytes)),
		BloomOffset: bloomOffset,
		BloomBytes:  uint32(len(bloomBytes)),
	}
	if _, err := file.WriteAt(header.marshal(), 0); err != nil {
		return tableMeta{}, errors.Wrap(err, "write table header")
	}
	if err := file.Sync(); err != nil {
		return tableMeta{}, errors.Wrap(err, "sync table file")
	}
	if err := file.Close(); err != nil {
		return tableMeta{}, errors.Wrap(err, "close table file")
	}
	cleanup = false
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return tableMeta{}, errors.Wrap(err, "publish table file")
	}

	return tableMeta{
		MinKey:  entries[0].key,
		MaxKey:  entries[len(entries)-1].key,
		Entries: uint32(len(entries)),
		Blocks:  uint32(len(index)),
		Bytes:   offset,
	}, nil
}
