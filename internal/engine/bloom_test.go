package engine

import (
	"fmt"
	"testing"
)

func TestBloomNoFalseNegatives(t *testing.T) {
	f := newBloomFilter(1000, 10)
	for i := 0; i < 1000; i++ {
		f.add([]byte(fmt.Sprintf("key-%04d", i)))
	}
	for i := 0; i < 1000; i++ {
		if !f.mayContain([]byte(fmt.Sprintf("key-%04d", i))) {
			t.Fatalf("false negative for key-%04d", i)
		}
	}
}

func TestBloomSurvivesMarshal(t *testing.T) {
	// 33 keys at 10 bits is not a whole number of bytes; writer and reader
	// must still agree on every probe position.
	f := newBloomFilter(33, 10)
	for i := 0; i < 33; i++ {
		f.add([]byte(fmt.Sprintf("key-%02d", i)))
	}
	restored, err := unmarshalBloom(f.marshal())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.m != f.m || restored.k != f.k {
		t.Fatalf("parameters changed: m %d vs %d, k %d vs %d", restored.m, f.m, restored.k, f.k)
	}
	for i := 0; i < 33; i++ {
		if !restored.mayContain([]byte(fmt.Sprintf("key-%02d", i))) {
			t.Fatalf("false negative after marshal round trip for key-%02d", i)
		}
	}
}

func TestBloomFiltersAbsentKeys(t *testing.T) {
	f := newBloomFilter(100, 10)
	for i := 0; i < 100; i++ {
		f.add([]byte(fmt.Sprintf("key-%03d", i)))
	}
	misses := 0
	for i := 0; i < 1000; i++ {
		if !f.mayContain([]byte(fmt.Sprintf("absent-%04d", i))) {
			misses++
		}
	}
	// 10 bits per key gives roughly a 1% false positive rate; anything
	// under half would mean the filter is not filtering.
	if misses < 500 {
		t.Fatalf("filter rejected only %d of 1000 absent keys", misses)
	}
}
