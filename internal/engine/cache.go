package engine

import (
	lru "github.com/hashicorp/golang-lru"
)

type cacheKey struct {
	table uint64
	block int
}

// blockCache holds decoded blocks, shared by all tables of one open
// database. Capacity is expressed in bytes and converted to an entry
// count at the configured block size.
type blockCache struct {
	lru *lru.Cache
}

func newBlockCache(capacity, blockSize uint64) *blockCache {
	n := int(capacity / blockSize)
	if n < 16 {
		n = 16
	}
	c, err := lru.New(n)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &blockCache{lru: c}
}

func (c *blockCache) get(k cacheKey) ([]tableEntry, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lru.Get(k)
	if !ok {
		return nil, false
	}
	return v.([]tableEntry), true
}

func (c *blockCache) add(k cacheKey, entries []tableEntry) {
	if c == nil {
		return
	}
	c.lru.Add(k, entries)
}
