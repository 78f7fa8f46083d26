package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinRegistryShape(t *testing.T) {
	reg := Builtin()

	all := reg.All()
	require.NotEmpty(t, all)
	assert.Equal(t, NoCompression, all[0].ID, "entry 0 must be the sentinel")
	assert.Equal(t, "none", all[0].Name)

	def := reg.Default()
	assert.Equal(t, ZlibRawID, def.ID)
	assert.True(t, def.Default)
}

func TestCodecsOrderAndDefault(t *testing.T) {
	reg := Builtin()

	all := reg.Codecs(true)
	require.Len(t, all, 5)
	wantOrder := []CompressorID{SnappyID, ZlibID, ZlibRawID, LZ4ID, ZstdID}
	for i, c := range all {
		assert.Equal(t, wantOrder[i], c.ID(), "codec %d out of registration order", i)
	}

	defOnly := reg.Codecs(false)
	require.Len(t, defOnly, 1)
	assert.Equal(t, ZlibRawID, defOnly[0].ID(), "default must win regardless of registration position")
}

func TestNameFor(t *testing.T) {
	reg := Builtin()
	assert.Equal(t, "none", reg.NameFor(NoCompression))
	assert.Equal(t, "zlib-raw", reg.NameFor(ZlibRawID))
	assert.Equal(t, "unknown", reg.NameFor(99))
}

func TestRegistryValidation(t *testing.T) {
	ok := Descriptor{ID: SnappyID, Name: "snappy", Default: true, New: NewSnappy}

	_, err := NewRegistry(ok, Descriptor{ID: SnappyID, Name: "snappy2", New: NewSnappy})
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = NewRegistry(Descriptor{ID: 9, Name: "lying-snappy", Default: true, New: NewSnappy})
	assert.ErrorIs(t, err, ErrIDMismatch)

	_, err = NewRegistry(Descriptor{ID: SnappyID, Name: "snappy", New: NewSnappy})
	assert.ErrorIs(t, err, ErrNoDefault)

	_, err = NewRegistry(ok, Descriptor{ID: ZlibID, Name: "zlib", Default: true, New: NewZlib})
	assert.ErrorIs(t, err, ErrMultipleDefaults)

	_, err = NewRegistry(Descriptor{ID: 0, Name: "zero", Default: true, New: NewSnappy})
	assert.ErrorIs(t, err, ErrReservedID)
}

func TestCodecRoundTrip(t *testing.T) {
	payload := append(bytes.Repeat([]byte("key-value block payload "), 64), "tail"...)
	for _, c := range Builtin().Codecs(true) {
		compressed, err := c.Compress(payload)
		require.NoError(t, err, c.Name())
		require.Less(t, len(compressed), len(payload), "%s should shrink a repetitive payload", c.Name())

		restored, err := c.Decompress(compressed)
		require.NoError(t, err, c.Name())
		assert.Equal(t, payload, restored, c.Name())
	}
}
