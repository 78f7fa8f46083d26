package engine

import (
	"bytes"
	"errors"
	"testing"

	"github.com/kvprobe/kvprobe/internal/compress"
)

func TestSealOpenBlockRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 512)
	codec := compress.NewZlibRaw()

	raw, err := sealBlock(payload, codec)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	id, err := blockCodecID(raw)
	if err != nil {
		t.Fatalf("codec id failed: %v", err)
	}
	if id != compress.ZlibRawID {
		t.Fatalf("expected codec id %d, got %d", compress.ZlibRawID, id)
	}

	got, err := openBlock(raw, []compress.Compressor{codec}, true)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch after round trip")
	}
}

func TestSealBlockFallsBackToRaw(t *testing.T) {
	// Incompressible payload: compression cannot shrink 4 random-ish
	// distinct bytes, so the block must be stored with ID 0.
	payload := []byte{0x01, 0xfe, 0x42, 0x99}
	raw, err := sealBlock(payload, compress.NewZlibRaw())
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	id, err := blockCodecID(raw)
	if err != nil {
		t.Fatalf("codec id failed: %v", err)
	}
	if id != compress.NoCompression {
		t.Fatalf("expected raw fallback, got codec id %d", id)
	}
	got, err := openBlock(raw, nil, true)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestOpenBlockChecksumMismatch(t *testing.T) {
	raw, err := sealBlock([]byte("payload"), nil)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	raw[0] ^= 0xff
	if _, err := openBlock(raw, nil, true); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
	// With verification off the corruption goes unnoticed here.
	if _, err := openBlock(raw, nil, false); err != nil {
		t.Fatalf("unverified open failed: %v", err)
	}
}

func TestOpenBlockUnknownCompressor(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 512)
	raw, err := sealBlock(payload, compress.NewZlibRaw())
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	_, err = openBlock(raw, []compress.Compressor{compress.NewSnappy()}, false)
	if !errors.Is(err, ErrUnknownCompressor) {
		t.Fatalf("expected unknown compressor, got %v", err)
	}
}

func TestEntryCodecRoundTrip(t *testing.T) {
	entries := []tableEntry{
		{key: "alpha", value: []byte("one")},
		{key: "beta", tombstone: true},
		{key: "gamma", value: []byte{}},
	}
	buf := &bytes.Buffer{}
	for _, e := range entries {
		encodeEntry(buf, e)
	}
	got, err := decodeEntries(buf.Bytes())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i, e := range entries {
		if got[i].key != e.key || got[i].tombstone != e.tombstone {
			t.Fatalf("entry %d mismatch: %+v vs %+v", i, got[i], e)
		}
	}
}
