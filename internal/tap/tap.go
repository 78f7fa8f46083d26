// Package tap lets independent observers subscribe to compressor
// identification events the engine reports against a diagnostic logger.
// The engine has no API for "which codec produced this block", but it does
// tell its info logger; tapping that path recovers the ID without touching
// the engine's own read machinery.
package tap

import (
	"errors"
	"sync"

	"github.com/kvprobe/kvprobe/internal/compress"
	"github.com/kvprobe/kvprobe/internal/diag"
)

var (
	ErrNilLogger   = errors.New("tap: nil logger identity")
	ErrNilCallback = errors.New("tap: nil callback")
)

// Callback receives the compressor ID of one decoded block. Callbacks for
// the same logger run in unspecified order and may run concurrently from
// engine worker threads, so they must be commutative (counter increments,
// not appends).
type Callback func(id compress.CompressorID)

// Entry is one live subscription. Closing it detaches the callback; the
// usual lifetime is lexical, Attach at the top of a scope and defer Close.
// Entries are used by pointer identity and must not be copied.
type Entry struct {
	reg    *Registry
	logger *diag.Logger
	fn     Callback
}

// Registry maps diagnostic-logger identity to the set of live entries
// attached to it. A single RWMutex guards the map: dispatch takes the read
// side so concurrent engine threads never serialize against each other,
// attach/detach take the write side. The logger pointer is only ever used
// as a key, never dereferenced.
type Registry struct {
	mu   sync.RWMutex
	taps map[*diag.Logger]map[*Entry]struct{}
}

func NewRegistry() *Registry {
	return &Registry{taps: make(map[*diag.Logger]map[*Entry]struct{})}
}

// Attach registers fn to fire on every event dispatched against logger.
func (r *Registry) Attach(logger *diag.Logger, fn Callback) (*Entry, error) {
	if logger == nil {
		return nil, ErrNilLogger
	}
	if fn == nil {
		return nil, ErrNilCallback
	}
	e := &Entry{reg: r, logger: logger, fn: fn}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.taps[logger]
	if !ok {
		set = make(map[*Entry]struct{})
		r.taps[logger] = set
	}
	set[e] = struct{}{}
	return e, nil
}

// Close detaches the entry. It blocks until no dispatch can still be
// holding the callback, so once Close returns the callback will never run
// again. Idempotent. The now-empty set stays in the map; logger identities
// are few and short-lived.
func (e *Entry) Close() {
	if e == nil || e.reg == nil {
		return
	}
	e.reg.mu.Lock()
	defer e.reg.mu.Unlock()
	if set, ok := e.reg.taps[e.logger]; ok {
		delete(set, e)
	}
	e.reg = nil
}

// Dispatch invokes every callback attached to logger. A no-op when nothing
// is attached, so the engine can call it unconditionally on its block
// decode path.
func (r *Registry) Dispatch(logger *diag.Logger, id compress.CompressorID) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for e := range r.taps[logger] {
		e.fn(id)
	}
}

// std is the process-wide registry. The engine dispatches into it and
// observers attach to it; both sides correlate through the logger pointer
// alone, which is what lets the two packages stay decoupled.
var std = NewRegistry()

func Attach(logger *diag.Logger, fn Callback) (*Entry, error) { return std.Attach(logger, fn) }

func Dispatch(logger *diag.Logger, id compress.CompressorID) { std.Dispatch(logger, id) }
