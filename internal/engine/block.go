package engine

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/pkg/errors"

	"github.com/kvprobe/kvprobe/internal/compress"
)

// Every block carries a 5-byte trailer: the 1-byte ID of the codec that
// produced the payload, then crc32c over payload and ID. The ID byte is
// the only record of the codec anywhere on disk.
const blockTrailerSize = 5

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// sealBlock compresses the payload with codec (nil = store raw) and
// appends the trailer. If compression does not shrink the payload the
// block is stored raw instead, same as LevelDB.
func sealBlock(payload []byte, codec compress.Compressor) ([]byte, error) {
	out := payload
	id := compress.NoCompression
	if codec != nil {
		compressed, err := codec.Compress(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "seal block with %s", codec.Name())
		}
		if len(compressed) < len(payload) {
			out = compressed
			id = codec.ID()
		}
	}
	raw := make([]byte, len(out)+blockTrailerSize)
	copy(raw, out)
	raw[len(out)] = byte(id)
	crc := crc32.Checksum(raw[:len(out)+1], castagnoli)
	binary.LittleEndian.PutUint32(raw[len(out)+1:], crc)
	return raw, nil
}

// blockCodecID extracts the codec ID from a sealed block without decoding
// it. The caller reports the ID on the diagnostic channel before any
// decode attempt, so unreadable blocks are still observed.
func blockCodecID(raw []byte) (compress.CompressorID, error) {
	if len(raw) < blockTrailerSize {
		return 0, ErrCorruptTable
	}
	return compress.CompressorID(raw[len(raw)-blockTrailerSize]), nil
}

// openBlock strips the trailer and returns the decompressed payload.
func openBlock(raw []byte, codecs []compress.Compressor, verify bool) ([]byte, error) {
	if len(raw) < blockTrailerSize {
		return nil, ErrCorruptTable
	}
	body := raw[:len(raw)-4]
	if verify {
		want := binary.LittleEndian.Uint32(raw[len(raw)-4:])
		if crc32.Checksum(body, castagnoli) != want {
			return nil, ErrChecksumMismatch
		}
	}
	id := compress.CompressorID(body[len(body)-1])
	payload := body[:len(body)-1]
	if id == compress.NoCompression {
		return payload, nil
	}
	for _, c := range codecs {
		if c.ID() == id {
			return c.Decompress(payload)
		}
	}
	return nil, errors.Wrapf(ErrUnknownCompressor, "compressor ID %d", id)
}

// tableEntry is one decoded record inside a block.
type tableEntry struct {
	key       string
	value     []byte
	tombstone bool
}

const (
	entryOpPut    = byte(1)
	entryOpDelete = byte(2)
)

// encodeEntry appends the wire form of e:
// [op][key length u32][value length u32][key][value], little endian.
func encodeEntry(buf *bytes.Buffer, e tableEntry) {
	op := entryOpPut
	value := e.value
	if e.tombstone {
		op = entryOpDelete
		value = nil
	}
	buf.WriteByte(op)
	var lens [8]byte
	binary.LittleEndian.PutUint32(lens[:4], uint32(len(e.key)))
	binary.LittleEndian.PutUint32(lens[4:], uint32(len(value)))
	buf.Write(lens[:])
	buf.WriteString(e.key)
	buf.Write(value)
}

// decodeEntries parses a full block payload.
func decodeEntries(payload []byte) ([]tableEntry, error) {
	var out []tableEntry
	for len(payload) > 0 {
		if len(payload) < 9 {
			return nil, ErrCorruptTable
		}
		op := payload[0]
		klen := binary.LittleEndian.Uint32(payload[1:5])
		vlen := binary.LittleEndian.Uint32(payload[5:9])
		payload = payload[9:]
		if uint64(len(payload)) < uint64(klen)+uint64(vlen) {
			return nil, ErrCorruptTable
		}
		key := string(payload[:klen])
		value := append([]byte(nil), payload[klen:klen+vlen]...)
		payload = payload[klen+vlen:]
		switch op {
		case entryOpPut:
			out = append(out, tableEntry{key: key, value: value})
		case entryOpDelete:
			out = append(out, tableEntry{key: key, tombstone: true})
		default:
			return nil, ErrCorruptTable
		}
	}
	return out, nil
}
