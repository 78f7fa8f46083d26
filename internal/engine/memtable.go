package engine

import "sort"

type memEntry struct {
	value     []byte
	tombstone bool
}

// memtable buffers writes until they are worth a table file. Tombstones
// are kept: they must shadow older table entries until a compaction drops
// them.
type memtable struct {
	entries map[string]memEntry
	bytes   uint64
}

func newMemtable() *memtable {
	return &memtable{entries: make(map[string]memEntry)}
}

func (m *memtable) get(key string) (memEntry, bool) {
	e, ok := m.entries[key]
	return e, ok
}

func (m *memtable) set(key string, value []byte, tombstone bool) {
	if old, ok := m.entries[key]; ok {
		m.bytes -= recordWireSize([]byte(key), old.value)
	}
	m.entries[key] = memEntry{
		value:     append([]byte(nil), value...),
		tombstone: tombstone,
	}
	m.bytes += recordWireSize([]byte(key), value)
}

func (m *memtable) apply(b *Batch) {
	for _, r := range b.records {
		m.set(string(r.key), r.value, r.tombstone)
	}
}

func (m *memtable) empty() bool { return len(m.entries) == 0 }

func (m *memtable) reset() {
	m.entries = make(map[string]memEntry)
	m.bytes = 0
}

// snapshot returns the contents sorted by key, values copied.
func (m *memtable) snapshot() []tableEntry {
	out := make([]tableEntry, 0, len(m.entries))
	for key, e := range m.entries {
		out = append(out, tableEntry{
			key:       key,
			value:     append([]byte(nil), e.value...),
			tombstone: e.tombstone,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}
