// Package bytesutil provides small byte-accumulation helpers used by the
// delta codec to avoid the O(n²) cost of repeated []byte append
// without a capacity hint (spec §9).
package bytesutil

import "bytes"

// Builder wraps bytes.Buffer with a Grow hint, for callers that know roughly
// how large the final result will be (e.g. a delta instruction stream sized
// off the target object length).
type Builder struct {
	buf bytes.Buffer
}

// NewBuilder returns a Builder pre-sized for hint bytes.
func NewBuilder(hint int) *Builder {
	b := &Builder{}
	if hint > 0 {
		b.buf.Grow(hint)
	}
	return b
}

// WriteByte appends a single byte.
func (b *Builder) WriteByte(c byte) { b.buf.WriteByte(c) }

// Write appends p.
func (b *Builder) Write(p []byte) { b.buf.Write(p) }

// Bytes returns the accumulated bytes. The result aliases the Builder's
// internal buffer and must not be retained across further writes.
func (b *Builder) Bytes() []byte { return b.buf.Bytes() }

// Len returns the number of bytes accumulated so far.
func (b *Builder) Len() int { return b.buf.Len() }
