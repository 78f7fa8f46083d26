package engine

import "container/heap"

// entryIterator is the internal cursor over one source (memtable snapshot
// or table file).
type entryIterator interface {
	next() bool
	entry() tableEntry
	err() error
}

type memIterator struct {
	entries []tableEntry
	pos     int
}

func newMemIterator(entries []tableEntry) *memIterator {
	return &memIterator{entries: entries, pos: -1}
}

func (m *memIterator) next() bool {
	m.pos++
	return m.pos < len(m.entries)
}

func (m *memIterator) entry() tableEntry { return m.entries[m.pos] }
func (m *memIterator) err() error        { return nil }

type tableIterator struct {
	reader  *tableReader
	ropts   ReadOptions
	block   int
	entries []tableEntry
	pos     int
	e       error
}

func newTableIterator(reader *tableReader, ropts ReadOptions) *tableIterator {
	return &tableIterator{reader: reader, ropts: ropts, block: -1, pos: -1}
}

func (t *tableIterator) next() bool {
	if t.e != nil {
		return false
	}
	t.pos++
	for t.pos >= len(t.entries) {
		t.block++
		if t.block >= len(t.reader.index) {
			return false
		}
		entries, err := t.reader.readBlock(t.block, t.ropts)
		if err != nil {
			t.e = err
			return false
		}
		t.entries = entries
		t.pos = 0
	}
	return true
}

func (t *tableIterator) entry() tableEntry { return t.entries[t.pos] }
func (t *tableIterator) err() error        { return t.e }

type mergeItem struct {
	key  string
	rank int
	iter entryIterator
}

// Ordered by key, then by source recency so the freshest version of a key
// pops first.
type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].key == h[j].key {
		return h[i].rank < h[j].rank
	}
	return h[i].key < h[j].key
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)   { *h = append(*h, x.(mergeItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Iterator is a forward cursor over the merged, tombstone-elided view of a
// database: memtable first, then tables newest to oldest. A source failure
// latches into Err and ends iteration; per the engine contract the caller
// inspects Err once Valid goes false.
type Iterator struct {
	memEntries []tableEntry
	tables     []*tableReader
	ropts      ReadOptions

	h     mergeHeap
	cur   tableEntry
	valid bool
	e     error
}

// SeekToFirst positions the iterator at the first visible record. It may
// be called again to restart iteration.
func (it *Iterator) SeekToFirst() {
	it.e = nil
	it.valid = false
	it.h = it.h[:0]

	sources := make([]entryIterator, 0, len(it.tables)+1)
	sources = append(sources, newMemIterator(it.memEntries))
	for _, t := range it.tables {
		sources = append(sources, newTableIterator(t, it.ropts))
	}
	for rank, src := range sources {
		if src.next() {
			heap.Push(&it.h, mergeItem{key: src.entry().key, rank: rank, iter: src})
		} else if err := src.err(); err != nil {
			it.e = err
			return
		}
	}
	it.advance()
}

// Next moves to the following visible record.
func (it *Iterator) Next() {
	if !it.valid {
		return
	}
	it.advance()
}

func (it *Iterator) advance() {
	it.valid = false
	for it.e == nil && it.h.Len() > 0 {
		item := heap.Pop(&it.h).(mergeItem)
		group := []mergeItem{item}
		for it.h.Len() > 0 && it.h[0].key == item.key {
			group = append(group, heap.Pop(&it.h).(mergeItem))
		}

		// Refill from every source that contributed this key before
		// deciding visibility, so a failure surfaces even when the key
		// is shadowed.
		for _, g := range group {
			if g.iter.next() {
				heap.Push(&it.h, mergeItem{key: g.iter.entry().key, rank: g.rank, iter: g.iter})
			} else if err := g.iter.err(); err != nil {
				it.e = err
				return
			}
		}

		chosen := group[0].iter.entry()
		if chosen.tombstone {
			continue
		}
		it.cur = chosen
		it.valid = true
		return
	}
}

// Valid reports whether the iterator is positioned on a record.
func (it *Iterator) Valid() bool { return it.valid }

// Key returns the current key; valid until the next move.
func (it *Iterator) Key() []byte { return []byte(it.cur.key) }

// Value returns the current value; valid until the next move.
func (it *Iterator) Value() []byte { return it.cur.value }

// Err returns the first source error encountered, if any.
func (it *Iterator) Err() error { return it.e }
