package packfile

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/chr33s/git/delta"
	"github.com/chr33s/git/githash"
	"github.com/chr33s/git/objdeflate"
	"github.com/chr33s/git/objects"
)

// maxResolutionPasses bounds the fixed-point iteration used to resolve
// OFS/REF deltas (spec §4.G: "bounded iterations, e.g., 10").
const maxResolutionPasses = 10

// rawEntry is a single parsed-but-unresolved pack entry.
type rawEntry struct {
	offset    int64
	kind      entryKind
	size      int // declared uncompressed size
	ofsNeg    int64 // for ofs_delta: backward offset to base
	refBase   objects.OID // for ref_delta: base oid
	payload   []byte      // inflated object bytes, or delta instruction stream
}

// Store is the subset of odb.Store the parser needs to resolve ref-deltas
// against objects that already live in the destination store, and to
// persist every materialized object.
type Store interface {
	Has(oid objects.OID) (bool, error)
	Read(oid objects.OID) (objects.Kind, []byte, error)
	WriteRaw(oid objects.OID, kind objects.Kind, payload []byte) error
}

// Parser consumes a pack byte stream to completion, indexing entries by pack
// offset in a first pass, then resolving OFS/REF deltas in a bounded
// fixed-point iteration.
type Parser struct {
	store Store
}

// NewParser returns a Parser that will materialize resolved objects into store.
func NewParser(store Store) *Parser {
	return &Parser{store: store}
}

// ParseResult summarizes a successful Parse.
type ParseResult struct {
	ObjectCount   int
	Objects       []Object // in encounter order, base kind + resolved bytes
	ChecksumValid bool
}

// Parse consumes the entire pack in data. ctx is polled between entry
// parses and before every delta resolution pass (spec §5); a canceled ctx
// aborts with ctx.Err(), and objects already written to the store by earlier
// passes stay there.
func (p *Parser) Parse(ctx context.Context, data []byte) (*ParseResult, error) {
	if len(data) < 12+githash.HexSize/2 {
		return nil, fmt.Errorf("%w: too short", ErrMalformed)
	}
	if string(data[:4]) != string(signature[:]) {
		return nil, ErrBadSignature
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVer, version)
	}
	count := binary.BigEndian.Uint32(data[8:12])

	trailerStart := len(data) - 20
	body := data[12:trailerStart]
	trailer := data[trailerStart:]

	checksumValid := bytesEqual(checksum(data[:trailerStart]), trailer)
	// spec §4.G: "Parser warns but does not abort" on checksum mismatch.

	entries := make([]*rawEntry, 0, count)
	byOffset := make(map[int64]*rawEntry, count)

	cursor := int64(12)
	buf := body
	for i := uint32(0); i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, consumed, err := parseEntry(buf, cursor)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		byOffset[e.offset] = e
		buf = buf[consumed:]
		cursor += consumed
	}

	resolved := make(map[int64]Object, len(entries))
	byOID := make(map[objects.OID]Object, len(entries))

	pending := entries
	for pass := 0; pass < maxResolutionPasses && len(pending) > 0; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var next []*rawEntry
		for _, e := range pending {
			obj, ok, err := p.resolveEntry(e, byOffset, resolved, byOID)
			if err != nil {
				return nil, err
			}
			if !ok {
				next = append(next, e)
				continue
			}
			resolved[e.offset] = obj
			byOID[obj.OID] = obj
			if err := p.store.WriteRaw(obj.OID, obj.Kind, obj.Data); err != nil {
				return nil, err
			}
		}
		pending = next
	}
	if len(pending) > 0 {
		return nil, ErrUnresolvedDelta
	}

	out := make([]Object, 0, len(entries))
	for _, e := range entries {
		out = append(out, resolved[e.offset])
	}

	return &ParseResult{ObjectCount: int(count), Objects: out, ChecksumValid: checksumValid}, nil
}

func (p *Parser) resolveEntry(e *rawEntry, byOffset map[int64]*rawEntry, resolved map[int64]Object, byOID map[objects.OID]Object) (Object, bool, error) {
	if kind, ok := toObjectKind(e.kind); ok {
		return Object{Kind: kind, Data: e.payload, OID: hashObject(kind, e.payload)}, true, nil
	}

	switch e.kind {
	case kindOFSDelta:
		baseOffset := e.offset - e.ofsNeg
		base, ok := resolved[baseOffset]
		if !ok {
			return Object{}, false, nil
		}
		data, err := delta.Apply(base.Data, e.payload)
		if err != nil {
			return Object{}, false, err
		}
		return Object{Kind: base.Kind, Data: data, OID: hashObject(base.Kind, data)}, true, nil

	case kindREFDelta:
		base, ok := byOID[e.refBase]
		if !ok {
			kind, data, err := p.store.Read(e.refBase)
			if err == nil {
				base = Object{Kind: kind, Data: data, OID: e.refBase}
				ok = true
			}
		}
		if !ok {
			return Object{}, false, nil
		}
		data, err := delta.Apply(base.Data, e.payload)
		if err != nil {
			return Object{}, false, err
		}
		return Object{Kind: base.Kind, Data: data, OID: hashObject(base.Kind, data)}, true, nil
	}

	return Object{}, false, fmt.Errorf("%w: unknown entry kind %d", ErrMalformed, e.kind)
}

// parseEntry reads one pack entry starting at buf[0], which corresponds to
// pack offset `offset`. It returns the parsed entry and the number of bytes
// of buf it consumed.
func parseEntry(buf []byte, offset int64) (*rawEntry, int64, error) {
	if len(buf) == 0 {
		return nil, 0, fmt.Errorf("%w: truncated entry header", ErrMalformed)
	}

	pos := 0
	b0 := buf[pos]
	pos++
	kind := entryKind((b0 >> 4) & 0x7)
	size := int(b0 & 0x0f)
	shift := uint(4)
	for b0&0x80 != 0 {
		if pos >= len(buf) {
			return nil, 0, fmt.Errorf("%w: truncated size varint", ErrMalformed)
		}
		b0 = buf[pos]
		pos++
		size |= int(b0&0x7f) << shift
		shift += 7
	}

	e := &rawEntry{offset: offset, kind: kind, size: size}

	switch kind {
	case kindOFSDelta:
		neg, n, err := readOfsOffset(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		e.ofsNeg = neg
		pos += n
	case kindREFDelta:
		if len(buf) < pos+githash.Size {
			return nil, 0, fmt.Errorf("%w: truncated ref-delta base", ErrMalformed)
		}
		e.refBase = objects.NewOID(buf[pos : pos+githash.Size])
		pos += githash.Size
	}

	payload, consumed, err := inflateEntry(buf[pos:], size)
	if err != nil {
		return nil, 0, err
	}
	e.payload = payload
	pos += consumed

	return e, int64(pos), nil
}

// readOfsOffset decodes the signed-style varint git uses for ofs-delta base
// offsets (spec §4.G): value = b&0x7f; while MSB set, value = ((value+1)<<7) | (b&0x7f).
func readOfsOffset(buf []byte) (int64, int, error) {
	if len(buf) == 0 {
		return 0, 0, fmt.Errorf("%w: truncated ofs-delta offset", ErrMalformed)
	}
	b := buf[0]
	value := int64(b & 0x7f)
	n := 1
	for b&0x80 != 0 {
		if n >= len(buf) {
			return 0, 0, fmt.Errorf("%w: truncated ofs-delta offset", ErrMalformed)
		}
		b = buf[n]
		n++
		value = ((value + 1) << 7) | int64(b&0x7f)
	}
	return value, n, nil
}

func inflateEntry(buf []byte, size int) ([]byte, int, error) {
	br := bytes.NewReader(buf)
	r, err := objdeflate.NewReader(br)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: zlib header: %v", ErrMalformed, err)
	}
	defer r.Close()

	data := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, 0, fmt.Errorf("%w: inflate: %v", ErrMalformed, err)
		}
	}
	// Read to the end of the zlib stream so its checksum trailer is counted
	// in consumed and the next entry starts at the right offset.
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, 0, fmt.Errorf("%w: inflate: %v", ErrMalformed, err)
	}
	consumed := len(buf) - br.Len()
	return data, consumed, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
