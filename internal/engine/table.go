package engine

import (
	"bytes"
	"encoding/binary"
)

// Table file layout:
//
//	header | block* | index | bloom
//
// header (40 bytes): magic "KVPT", version, 3 pad bytes, block count u32,
// entry count u32, index offset u64, index bytes u32, bloom offset u64,
// bloom bytes u32. The header is written last, via WriteAt, once the
// offsets are known.
//
// Each block holds consecutive sorted entries and is sealed independently
// (see block.go), so every block records its own codec.
const (
	tableMagic      = "KVPT"
	tableVersion    = uint8(1)
	tableHeaderSize = 40
)

type tableHeader struct {
	BlockCount  uint32
	EntryCount  uint32
	IndexOffset uint64
	IndexBytes  uint32
	BloomOffset uint64
	BloomBytes  uint32
}

func (h tableHeader) marshal() []byte {
	buf := make([]byte, tableHeaderSize)
	copy(buf, tableMagic)
	buf[4] = tableVersion
	binary.LittleEndian.PutUint32(buf[8:], h.BlockCount)
	binary.LittleEndian.PutUint32(buf[12:], h.EntryCount)
	binary.LittleEndian.PutUint64(buf[16:], h.IndexOffset)
	binary.LittleEndian.PutUint32(buf[24:], h.IndexBytes)
	binary.LittleEndian.PutUint64(buf[28:], h.BloomOffset)
	binary.LittleEndian.PutUint32(buf[36:], h.BloomBytes)
	return buf
}

func unmarshalTableHeader(buf []byte) (tableHeader, error) {
	var h tableHeader
	if len(buf) < tableHeaderSize {
		return h, ErrCorruptTable
	}
	if string(buf[:4]) != tableMagic || buf[4] != tableVersion {
		return h, ErrCorruptTable
	}
	h.BlockCount = binary.LittleEndian.Uint32(buf[8:])
	h.EntryCount = binary.LittleEndian.Uint32(buf[12:])
	h.IndexOffset = binary.LittleEndian.Uint64(buf[16:])
	h.IndexBytes = binary.LittleEndian.Uint32(buf[24:])
	h.BloomOffset = binary.LittleEndian.Uint64(buf[28:])
	h.BloomBytes = binary.LittleEndian.Uint32(buf[36:])
	return h, nil
}

// blockIndexEntry locates one sealed block and its first key.
type blockIndexEntry struct {
	firstKey string
	offset   uint64
	length   uint32
	entries  uint32
}

func encodeIndex(index []blockIndexEntry) []byte {
	buf := &bytes.Buffer{}
	var scratch [16]byte
	for _, e := range index {
		binary.LittleEndian.PutUint32(scratch[:4], uint32(len(e.firstKey)))
		buf.Write(scratch[:4])
		buf.WriteString(e.firstKey)
		binary.LittleEndian.PutUint64(scratch[:8], e.offset)
		binary.LittleEndian.PutUint32(scratch[8:12], e.length)
		binary.LittleEndian.PutUint32(scratch[12:16], e.entries)
		buf.Write(scratch[:16])
	}
	return buf.Bytes()
}

func decodeIndex(data []byte, count uint32) ([]blockIndexEntry, error) {
	index := make([]blockIndexEntry, 0, count)
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, ErrCorruptTable
		}
		klen := binary.LittleEndian.Uint32(data[:4])
		data = data[4:]
		if uint64(len(data)) < uint64(klen)+16 {
			return nil, ErrCorruptTable
		}
		e := blockIndexEntry{firstKey: string(data[:klen])}
		data = data[klen:]
		e.offset = binary.LittleEndian.Uint64(data[:8])
		e.length = binary.LittleEndian.Uint32(data[8:12])
		e.entries = binary.LittleEndian.Uint32(data[12:16])
		data = data[16:]
		index = append(index, e)
	}
	if uint32(len(index)) != count {
		return nil, ErrCorruptTable
	}
	return index, nil
}
