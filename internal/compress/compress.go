package compress

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// CompressorID is the 1-byte codec identifier persisted in every block trailer.
// ID 0 is reserved for uncompressed blocks.
type CompressorID uint8

// NoCompression is the sentinel ID for blocks stored raw.
const NoCompression CompressorID = 0

// MaxCompressorID bounds the ID space; histograms index arrays with it.
const MaxCompressorID = 255

// Compressor turns a block payload into its compressed form and back.
// Implementations must be safe for concurrent use.
type Compressor interface {
	ID() CompressorID
	Name() string
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

// Codec IDs follow the Bedrock LevelDB convention for 1, 2 and 4; lz4 and
// zstd occupy free slots.
const (
	SnappyID  CompressorID = 1
	ZlibID    CompressorID = 2
	ZlibRawID CompressorID = 4
	LZ4ID     CompressorID = 5
	ZstdID    CompressorID = 7
)

type snappyCompressor struct{}

func NewSnappy() Compressor { return snappyCompressor{} }

func (snappyCompressor) ID() CompressorID { return SnappyID }
func (snappyCompressor) Name() string     { return "snappy" }

func (snappyCompressor) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (snappyCompressor) Decompress(src []byte) ([]byte, error) {
	dst, err := snappy.Decode(nil, src)
	if err != nil {
		return nil, errors.Wrap(err, "snappy decode")
	}
	return dst, nil
}

type zlibCompressor struct {
	raw bool
}

// NewZlib returns the zlib codec (ID 2, with the two-byte header and adler
// checksum).
func NewZlib() Compressor { return &zlibCompressor{} }

// NewZlibRaw returns the headerless deflate codec (ID 4). Bedrock worlds are
// written with this one.
func NewZlibRaw() Compressor { return &zlibCompressor{raw: true} }

func (z *zlibCompressor) ID() CompressorID {
	if z.raw {
		return ZlibRawID
	}
	return ZlibID
}

func (z *zlibCompressor) Name() string {
	if z.raw {
		return "zlib-raw"
	}
	return "zlib"
}

func (z *zlibCompressor) Compress(src []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	var w io.WriteCloser
	var err error
	if z.raw {
		w, err = flate.NewWriter(buf, flate.DefaultCompression)
	} else {
		w, err = zlib.NewWriterLevel(buf, zlib.DefaultCompression)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s writer", z.Name())
	}
	if _, err := w.Write(src); err != nil {
		return nil, errors.Wrapf(err, "%s compress", z.Name())
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrapf(err, "%s flush", z.Name())
	}
	return buf.Bytes(), nil
}

func (z *zlibCompressor) Decompress(src []byte) ([]byte, error) {
	var r io.ReadCloser
	if z.raw {
		r = flate.NewReader(bytes.NewReader(src))
	} else {
		var err error
		r, err = zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, errors.Wrap(err, "zlib reader")
		}
	}
	defer r.Close()
	dst, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "%s decompress", z.Name())
	}
	return dst, nil
}

type lz4Compressor struct{}

func NewLZ4() Compressor { return lz4Compressor{} }

func (lz4Compressor) ID() CompressorID { return LZ4ID }
func (lz4Compressor) Name() string     { return "lz4" }

func (lz4Compressor) Compress(src []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := lz4.NewWriter(buf)
	if _, err := w.Write(src); err != nil {
		return nil, errors.Wrap(err, "lz4 compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "lz4 flush")
	}
	return buf.Bytes(), nil
}

func (lz4Compressor) Decompress(src []byte) ([]byte, error) {
	dst, err := io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
	if err != nil {
		return nil, errors.Wrap(err, "lz4 decompress")
	}
	return dst, nil
}

type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewZstd() Compressor {
	enc, _ := zstd.NewWriter(nil)
	dec, _ := zstd.NewReader(nil)
	return &zstdCompressor{enc: enc, dec: dec}
}

func (*zstdCompressor) ID() CompressorID { return ZstdID }
func (*zstdCompressor) Name() string     { return "zstd" }

func (z *zstdCompressor) Compress(src []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, nil), nil
}

func (z *zstdCompressor) Decompress(src []byte) ([]byte, error) {
	dst, err := z.dec.DecodeAll(src, nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decompress")
	}
	return dst, nil
}
