package engine

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// bloomFilter is a double-hashed bloom filter over every key in a table,
// consulted before any block is read on the Get path.
type bloomFilter struct {
	bits []byte
	m    uint64
	k    uint8
}

func newBloomFilter(keys uint32, bitsPerKey float64) *bloomFilter {
	if keys == 0 || bitsPerKey <= 0 {
		return &bloomFilter{bits: make([]byte, 8), m: 64, k: 1}
	}
	m := uint64(math.Ceil(float64(keys) * bitsPerKey))
	if m < 64 {
		m = 64
	}
	// Keep m on a byte boundary: the reader recovers it as bit length times
	// eight, and both sides must mod by the same m.
	m = (m + 7) / 8 * 8
	k := uint8(math.Round(float64(m) / float64(keys) * math.Ln2))
	if k == 0 {
		k = 1
	}
	return &bloomFilter{bits: make([]byte, (m+7)/8), m: m, k: k}
}

func (b *bloomFilter) add(key []byte) {
	h1, h2 := bloomHashes(key)
	for i := uint8(0); i < b.k; i++ {
		pos := (h1 + uint64(i)*h2) % b.m
		b.bits[pos/8] |= 1 << (pos % 8)
	}
}

func (b *bloomFilter) mayContain(key []byte) bool {
	if b == nil || b.m == 0 || b.k == 0 {
		return true
	}
	h1, h2 := bloomHashes(key)
	for i := uint8(0); i < b.k; i++ {
		pos := (h1 + uint64(i)*h2) % b.m
		if b.bits[pos/8]&(1<<(pos%8)) == 0 {
			return false
		}
	}
	return true
}

// marshal layout: k byte, bit length u32, bits.
func (b *bloomFilter) marshal() []byte {
	out := make([]byte, 5+len(b.bits))
	out[0] = b.k
	binary.LittleEndian.PutUint32(out[1:5], uint32(len(b.bits)))
	copy(out[5:], b.bits)
	return out
}

func unmarshalBloom(data []byte) (*bloomFilter, error) {
	if len(data) < 5 {
		return nil, ErrCorruptTable
	}
	k := data[0]
	n := binary.LittleEndian.Uint32(data[1:5])
	if k == 0 || n == 0 || len(data) < int(5+n) {
		return nil, ErrCorruptTable
	}
	bits := append([]byte(nil), data[5:5+n]...)
	return &bloomFilter{bits: bits, m: uint64(n) * 8, k: k}, nil
}

func bloomHashes(key []byte) (uint64, uint64) {
	h1 := fnv.New64a()
	_, _ = h1.Write(key)
	h2 := fnv.New64()
	_, _ = h2.Write(key)
	return h1.Sum64(), h2.Sum64()
}
