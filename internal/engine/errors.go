package engine

import "errors"

var (
	ErrNotFound          = errors.New("engine: key not found")
	ErrClosed            = errors.New("engine: database is closed")
	ErrDBMissing         = errors.New("engine: database does not exist")
	ErrDBExists          = errors.New("engine: database already exists")
	ErrInvalidOptions    = errors.New("engine: invalid options")
	ErrCorruptTable      = errors.New("engine: corrupt table file")
	ErrChecksumMismatch  = errors.New("engine: block checksum mismatch")
	ErrUnknownCompressor = errors.New("engine: block written by an unconfigured compressor")
)
