package dbops

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvprobe/kvprobe/internal/compress"
	"github.com/kvprobe/kvprobe/internal/engine"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// aliasCodec rebrands another codec under a foreign ID, simulating a
// database written by a build with extra compressors.
type aliasCodec struct {
	compress.Compressor
	id compress.CompressorID
}

func (a aliasCodec) ID() compress.CompressorID { return a.id }

func seedDB(t *testing.T, dir string, n int, codecs []compress.Compressor) {
	t.Helper()
	opts := engine.DefaultOptions()
	opts.CreateIfMissing = true
	opts.Logger = quietLogger()
	opts.Compressors = codecs
	db, err := engine.Open(dir, opts)
	require.NoError(t, err)
	value := bytes.Repeat([]byte("seed value "), 100)
	for i := 0; i < n; i++ {
		batch := &engine.Batch{}
		batch.Put([]byte(fmt.Sprintf("key-%03d", i)), value)
		require.NoError(t, db.Write(engine.WriteOptions{}, batch))
	}
	require.NoError(t, db.Close())
}

func readAll(t *testing.T, dir string) []string {
	t.Helper()
	opts := engine.DefaultOptions()
	opts.Logger = quietLogger()
	opts.Compressors = compress.Builtin().Codecs(true)
	db, err := engine.Open(dir, opts)
	require.NoError(t, err)
	defer db.Close()

	var keys []string
	iter := db.NewIterator(engine.ReadOptions{VerifyChecksums: true})
	for iter.SeekToFirst(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	require.NoError(t, iter.Err())
	return keys
}

func TestCopyPreservesContentAndOrder(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	dest := filepath.Join(base, "dest")
	seedDB(t, src, 20, compress.Builtin().Codecs(false))

	require.NoError(t, Copy(src, dest, CopyOptions{Compress: true, Logger: quietLogger()}))

	keys := readAll(t, dest)
	require.Len(t, keys, 20)
	for i, k := range keys {
		assert.Equal(t, fmt.Sprintf("key-%03d", i), k, "destination iterates in source order")
	}
}

func TestCopyRefusesExistingDestination(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	dest := filepath.Join(base, "dest")
	seedDB(t, src, 3, nil)

	require.NoError(t, Copy(src, dest, CopyOptions{Logger: quietLogger()}))

	err := Copy(src, dest, CopyOptions{Logger: quietLogger()})
	assert.ErrorIs(t, err, engine.ErrDBExists)

	require.NoError(t, Copy(src, dest, CopyOptions{Overwrite: true, Logger: quietLogger()}))
	assert.Len(t, readAll(t, dest), 3)
}

func TestCopyToUncompressed(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	dest := filepath.Join(base, "dest")
	seedDB(t, src, 10, compress.Builtin().Codecs(false))

	require.NoError(t, Copy(src, dest, CopyOptions{Compress: false, Logger: quietLogger()}))

	report, err := ListAlgos(dest, quietLogger())
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, compress.NoCompression, report[0].ID, "an uncompressed copy holds only raw blocks")
	assert.Equal(t, "none", report[0].Name)
}

func TestListAlgosReportsCodecs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	seedDB(t, dir, 10, compress.Builtin().Codecs(false))

	report, err := ListAlgos(dir, quietLogger())
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, compress.ZlibRawID, report[0].ID)
	assert.Equal(t, "zlib-raw", report[0].Name)
	assert.NotZero(t, report[0].Count)
}

func TestListAlgosSurvivesUnknownCodec(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	exotic := aliasCodec{Compressor: compress.NewZlibRaw(), id: 99}
	seedDB(t, dir, 10, []compress.Compressor{exotic})

	report, err := ListAlgos(dir, quietLogger())
	require.NoError(t, err, "an undecodable block is a finding, not a failure")
	require.NotEmpty(t, report)
	assert.Equal(t, compress.CompressorID(99), report[0].ID)
	assert.Equal(t, "unknown", report[0].Name)
}

func TestCompactRefusesUnknownCodec(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	exotic := aliasCodec{Compressor: compress.NewZlibRaw(), id: 99}
	seedDB(t, dir, 10, []compress.Compressor{exotic})

	err := Compact(dir, CompactOptions{Compress: true, Logger: quietLogger()})
	var missing *MissingCompressorsError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Counts, compress.CompressorID(99))
	assert.Contains(t, missing.Error(), "99")
}

func TestCompactRewritesWithDefaultCodec(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	seedDB(t, dir, 10, nil) // raw blocks

	require.NoError(t, Compact(dir, CompactOptions{Compress: true, Logger: quietLogger()}))

	report, err := ListAlgos(dir, quietLogger())
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, compress.ZlibRawID, report[0].ID)
	assert.Len(t, readAll(t, dir), 10, "compaction must not lose records")
}

func TestClearEmptiesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	seedDB(t, dir, 25, compress.Builtin().Codecs(false))

	require.NoError(t, Clear(dir, quietLogger()))
	assert.Empty(t, readAll(t, dir))
}

func TestClearRefusesUnknownCodec(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	exotic := aliasCodec{Compressor: compress.NewZlibRaw(), id: 99}
	seedDB(t, dir, 10, []compress.Compressor{exotic})

	err := Clear(dir, quietLogger())
	var missing *MissingCompressorsError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Counts, compress.CompressorID(99))
}

func TestMissingCompressorsErrorMessage(t *testing.T) {
	err := &MissingCompressorsError{Counts: map[compress.CompressorID]uint64{
		12: 4,
		3:  1,
	}}
	assert.Equal(t,
		"refusing to proceed: blocks written by unknown compressor IDs 3 (1 blocks), 12 (4 blocks)",
		err.Error(), "IDs are sorted in the message")
	assert.False(t, errors.Is(err, engine.ErrUnknownCompressor),
		"the guard error is its own type, not the engine sentinel")
}
