package compress

import (
	"errors"
	"sync"
)

var (
	ErrNilFactory       = errors.New("compress: nil codec factory")
	ErrReservedID       = errors.New("compress: compressor ID 0 is reserved")
	ErrDuplicateID      = errors.New("compress: duplicate compressor ID")
	ErrIDMismatch       = errors.New("compress: codec reports a different ID than its descriptor")
	ErrNoDefault        = errors.New("compress: registry needs exactly one default codec")
	ErrMultipleDefaults = errors.New("compress: registry needs exactly one default codec")
)

// Descriptor is one registered codec. Immutable after registration.
type Descriptor struct {
	ID      CompressorID
	Name    string
	Default bool
	New     func() Compressor
}

// Registry holds codecs in registration order. Entry 0 is always the
// "no compression" sentinel; it is not a real codec and has no factory.
// The slice order is the decompression priority order and the slot order
// handed to the engine.
type Registry struct {
	entries    []Descriptor
	known      map[CompressorID]struct{}
	defaultIdx int
}

// NewRegistry builds a registry from the given non-sentinel descriptors.
// Each factory is invoked once so the instance's self-reported ID can be
// checked against the descriptor. Exactly one descriptor must be flagged
// default.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{
		entries:    []Descriptor{{ID: NoCompression, Name: "none"}},
		known:      make(map[CompressorID]struct{}, len(descs)),
		defaultIdx: -1,
	}
	for _, d := range descs {
		if d.New == nil {
			return nil, ErrNilFactory
		}
		if d.ID == NoCompression {
			return nil, ErrReservedID
		}
		if _, dup := r.known[d.ID]; dup {
			return nil, ErrDuplicateID
		}
		if got := d.New().ID(); got != d.ID {
			return nil, ErrIDMismatch
		}
		if d.Default {
			if r.defaultIdx >= 0 {
				return nil, ErrMultipleDefaults
			}
			r.defaultIdx = len(r.entries)
		}
		r.known[d.ID] = struct{}{}
		r.entries = append(r.entries, d)
	}
	if r.defaultIdx < 0 {
		return nil, ErrNoDefault
	}
	return r, nil
}

// All returns every descriptor, sentinel included, in registration order.
func (r *Registry) All() []Descriptor {
	return append([]Descriptor(nil), r.entries...)
}

// Default returns the descriptor flagged as the default codec.
func (r *Registry) Default() Descriptor {
	return r.entries[r.defaultIdx]
}

// Codecs instantiates codecs. With includeAll it returns one instance per
// non-sentinel descriptor in registration order; otherwise just the default.
func (r *Registry) Codecs(includeAll bool) []Compressor {
	if !includeAll {
		return []Compressor{r.Default().New()}
	}
	codecs := make([]Compressor, 0, len(r.entries)-1)
	for _, d := range r.entries[1:] {
		codecs = append(codecs, d.New())
	}
	return codecs
}

// NameFor maps an ID to its registered name, or "unknown".
func (r *Registry) NameFor(id CompressorID) string {
	for _, d := range r.entries {
		if d.ID == id {
			return d.Name
		}
	}
	return "unknown"
}

// KnownIDs returns the set of registered non-sentinel IDs.
func (r *Registry) KnownIDs() map[CompressorID]struct{} {
	ids := make(map[CompressorID]struct{}, len(r.known))
	for id := range r.known {
		ids[id] = struct{}{}
	}
	return ids
}

var (
	builtinOnce sync.Once
	builtin     *Registry
)

// Builtin returns the process-wide codec registry. zlib-raw is the default
// write codec, matching what Bedrock-era LevelDB databases actually contain.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		r, err := NewRegistry(
			Descriptor{ID: SnappyID, Name: "snappy", New: NewSnappy},
			Descriptor{ID: ZlibID, Name: "zlib", New: NewZlib},
			Descriptor{ID: ZlibRawID, Name: "zlib-raw", Default: true, New: NewZlibRaw},
			Descriptor{ID: LZ4ID, Name: "lz4", New: NewLZ4},
			Descriptor{ID: ZstdID, Name: "zstd", New: NewZstd},
		)
		if err != nil {
			panic(err)
		}
		builtin = r
	})
	return builtin
}
