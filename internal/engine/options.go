package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/kvprobe/kvprobe/internal/compress"
	"github.com/kvprobe/kvprobe/internal/diag"
)

// Defaults mirror the option block Bedrock-era LevelDB worlds are opened
// with: 4 MiB write buffer, 8 MiB block cache, 160 KiB blocks, 10 bloom
// bits per key.
const (
	DefaultWriteBufferSize    uint64  = 4 << 20
	DefaultBlockSize          uint64  = 160 << 10
	DefaultBlockCacheCapacity uint64  = 8 << 20
	DefaultMaxTableSize       uint64  = 16 << 20
	DefaultBloomBitsPerKey    float64 = 10
)

// Options configure an open database.
type Options struct {
	// CreateIfMissing creates the database directory and manifest when
	// none exists. ErrorIfExists refuses to open a database that does.
	CreateIfMissing bool
	ErrorIfExists   bool

	WriteBufferSize    uint64
	BlockSize          uint64
	BlockCacheCapacity uint64
	MaxTableSize       uint64
	BloomBitsPerKey    float64

	// CompactionRateLimit caps compaction write throughput in bytes per
	// second. Zero means unlimited.
	CompactionRateLimit int64

	// Compressors is the decompression priority order; a block's codec is
	// matched by ID against this slice. Slot 0 is also the codec used to
	// seal new blocks. Empty means new blocks are stored raw.
	Compressors []compress.Compressor

	// DisableWriteCompression stores new blocks raw while still decoding
	// through Compressors. Compaction-to-uncompressed relies on this.
	DisableWriteCompression bool

	// InfoLog receives the engine's diagnostic messages, including the
	// per-block codec notifications the tap registry distributes. Every
	// open database should get its own instance.
	InfoLog *diag.Logger

	// Logger receives operational log lines (flushes, compactions).
	Logger logrus.FieldLogger
}

// DefaultOptions returns options with the Bedrock defaults, no codecs and
// a silent diagnostic sink.
func DefaultOptions() *Options {
	return &Options{
		WriteBufferSize:    DefaultWriteBufferSize,
		BlockSize:          DefaultBlockSize,
		BlockCacheCapacity: DefaultBlockCacheCapacity,
		MaxTableSize:       DefaultMaxTableSize,
		BloomBitsPerKey:    DefaultBloomBitsPerKey,
		InfoLog:            diag.Discard(),
	}
}

func (o *Options) withDefaults() *Options {
	c := *o
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = DefaultWriteBufferSize
	}
	if c.BlockSize == 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.BlockCacheCapacity == 0 {
		c.BlockCacheCapacity = DefaultBlockCacheCapacity
	}
	if c.MaxTableSize == 0 {
		c.MaxTableSize = DefaultMaxTableSize
	}
	if c.BloomBitsPerKey == 0 {
		c.BloomBitsPerKey = DefaultBloomBitsPerKey
	}
	if c.InfoLog == nil {
		c.InfoLog = diag.Discard()
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return &c
}

func (o *Options) validate() error {
	if o.BloomBitsPerKey < 0 {
		return ErrInvalidOptions
	}
	seen := make(map[compress.CompressorID]struct{}, len(o.Compressors))
	for _, c := range o.Compressors {
		if c == nil || c.ID() == compress.NoCompression {
			return ErrInvalidOptions
		}
		if _, dup := seen[c.ID()]; dup {
			return ErrInvalidOptions
		}
		seen[c.ID()] = struct{}{}
	}
	return nil
}

// writeCodec returns the codec sealing new blocks, nil for raw.
func (o *Options) writeCodec() compress.Compressor {
	if o.DisableWriteCompression || len(o.Compressors) == 0 {
		return nil
	}
	return o.Compressors[0]
}

// ReadOptions tune a single read or iteration.
type ReadOptions struct {
	// FillCache controls whether blocks read by this operation are added
	// to the block cache. Sweeps leave it off.
	FillCache bool
	// VerifyChecksums checks the crc32c trailer of every block touched.
	VerifyChecksums bool
}

// WriteOptions tune a single write call.
type WriteOptions struct {
	// Sync fsyncs table files produced by this write before returning.
	Sync bool
}
