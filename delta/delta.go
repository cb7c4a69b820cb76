// Package delta implements git's pack delta instruction stream: COPY/INSERT
// encode and decode, plus a chunk-hash based delta creator (spec §4.F).
package delta

import (
	"errors"
	"fmt"

	"github.com/chr33s/git/varint"
)

// ErrCorrupt is returned for malformed delta streams.
var ErrCorrupt = errors.New("delta: corrupt instruction stream")

const (
	// window is the fixed chunk size the matcher hashes when indexing the
	// source buffer.
	window = 16
	// maxInsert bounds a single INSERT instruction; longer literal runs are
	// split across several instructions.
	maxInsert = 127
	// maxCopySize is the largest size a single COPY instruction can encode
	// (a zero-encoded size byte means 0x10000, not 0).
	maxCopySize = 0x10000
)

// Apply reconstructs a target buffer by applying delta to base. It validates
// that the delta's declared source size matches len(base) and that the
// total bytes emitted equals the delta's declared target size.
func Apply(base, delta []byte) ([]byte, error) {
	srcSize, n, err := varint.Read(delta)
	if err != nil {
		return nil, fmt.Errorf("%w: source size: %v", ErrCorrupt, err)
	}
	delta = delta[n:]
	if srcSize != uint64(len(base)) {
		return nil, fmt.Errorf("%w: source size mismatch: delta wants %d, base is %d", ErrCorrupt, srcSize, len(base))
	}

	targetSize, n, err := varint.Read(delta)
	if err != nil {
		return nil, fmt.Errorf("%w: target size: %v", ErrCorrupt, err)
	}
	delta = delta[n:]

	out := make([]byte, 0, targetSize)
	for len(delta) > 0 {
		op := delta[0]
		delta = delta[1:]

		switch {
		case op&0x80 != 0: // COPY
			var offset, size uint32
			if op&0x01 != 0 {
				if len(delta) == 0 {
					return nil, fmt.Errorf("%w: truncated copy offset", ErrCorrupt)
				}
				offset |= uint32(delta[0])
				delta = delta[1:]
			}
			if op&0x02 != 0 {
				if len(delta) == 0 {
					return nil, fmt.Errorf("%w: truncated copy offset", ErrCorrupt)
				}
				offset |= uint32(delta[0]) << 8
				delta = delta[1:]
			}
			if op&0x04 != 0 {
				if len(delta) == 0 {
					return nil, fmt.Errorf("%w: truncated copy offset", ErrCorrupt)
				}
				offset |= uint32(delta[0]) << 16
				delta = delta[1:]
			}
			if op&0x08 != 0 {
				if len(delta) == 0 {
					return nil, fmt.Errorf("%w: truncated copy offset", ErrCorrupt)
				}
				offset |= uint32(delta[0]) << 24
				delta = delta[1:]
			}
			if op&0x10 != 0 {
				if len(delta) == 0 {
					return nil, fmt.Errorf("%w: truncated copy size", ErrCorrupt)
				}
				size |= uint32(delta[0])
				delta = delta[1:]
			}
			if op&0x20 != 0 {
				if len(delta) == 0 {
					return nil, fmt.Errorf("%w: truncated copy size", ErrCorrupt)
				}
				size |= uint32(delta[0]) << 8
				delta = delta[1:]
			}
			if op&0x40 != 0 {
				if len(delta) == 0 {
					return nil, fmt.Errorf("%w: truncated copy size", ErrCorrupt)
				}
				size |= uint32(delta[0]) << 16
				delta = delta[1:]
			}
			if size == 0 {
				size = maxCopySize
			}
			if int(offset)+int(size) > len(base) {
				return nil, fmt.Errorf("%w: copy out of range", ErrCorrupt)
			}
			out = append(out, base[offset:offset+size]...)

		case op != 0: // INSERT
			size := int(op)
			if size > len(delta) {
				return nil, fmt.Errorf("%w: insert out of range", ErrCorrupt)
			}
			out = append(out, delta[:size]...)
			delta = delta[size:]

		default:
			return nil, fmt.Errorf("%w: zero opcode", ErrCorrupt)
		}
	}

	if uint64(len(out)) != targetSize {
		return nil, fmt.Errorf("%w: emitted %d bytes, wanted %d", ErrCorrupt, len(out), targetSize)
	}
	return out, nil
}

// ShouldUseDelta reports whether a delta-encoded representation is worth
// using over the literal object bytes.
func ShouldUseDelta(originalLen, deltaLen int) bool {
	return float64(deltaLen) < 0.9*float64(originalLen)
}
