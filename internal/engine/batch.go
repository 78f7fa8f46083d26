package engine

import "github.com/kvprobe/kvprobe/internal/types"

// Batch collects put and delete operations for one atomic-ish Write call.
// Not safe for concurrent use.
type Batch struct {
	records []batchRecord
	size    uint64
}

type batchRecord struct {
	key       []byte
	value     []byte
	tombstone bool
}

// Put queues a key-value pair. Key and value are copied.
func (b *Batch) Put(key, value []byte) {
	b.records = append(b.records, batchRecord{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
	b.size += recordWireSize(key, value)
}

// Delete queues a blind tombstone for key; deleting an absent key is not
// an error.
func (b *Batch) Delete(key []byte) {
	b.records = append(b.records, batchRecord{
		key:       append([]byte(nil), key...),
		tombstone: true,
	})
	b.size += recordWireSize(key, nil)
}

// Len reports the number of queued operations.
func (b *Batch) Len() int { return len(b.records) }

// ApproximateSize estimates the batch's on-disk footprint using the entry
// wire size. Callers flush when it crosses their threshold.
func (b *Batch) ApproximateSize() uint64 { return b.size }

// Records returns the queued operations in order. A tombstone comes back
// with a nil value. The slices alias the batch's internal copies.
func (b *Batch) Records() []types.Record {
	out := make([]types.Record, len(b.records))
	for i, r := range b.records {
		out[i] = types.Record{Key: r.key, Value: r.value}
	}
	return out
}

// Clear empties the batch for reuse, keeping its capacity.
func (b *Batch) Clear() {
	b.records = b.records[:0]
	b.size = 0
}

// recordWireSize matches the encoded entry layout: op byte, two u32
// lengths, key, value.
func recordWireSize(key, value []byte) uint64 {
	return uint64(1 + 4 + 4 + len(key) + len(value))
}
