// Package packfile implements the PACK v2 codec (spec §4.G): parsing with
// OFS/REF delta resolution, and a deterministic, delta-free writer.
package packfile

import (
	"crypto"
	"errors"
	"fmt"

	"github.com/chr33s/git/githash"
	"github.com/chr33s/git/objects"
)

// Errors surfaced by this package.
var (
	ErrBadSignature     = errors.New("packfile: bad signature")
	ErrUnsupportedVer   = errors.New("packfile: unsupported version")
	ErrMalformed        = errors.New("packfile: malformed entry")
	ErrUnresolvedDelta  = errors.New("packfile: unresolved delta after bounded iterations")
	ErrChecksumMismatch = errors.New("packfile: trailer checksum mismatch")
)

var signature = [4]byte{'P', 'A', 'C', 'K'}

// Version is the only pack format version this codec understands.
const Version = 2

// entryKind extends objects.Kind with the two delta-only pack entry types.
type entryKind int8

const (
	kindCommit   entryKind = 1
	kindTree     entryKind = 2
	kindBlob     entryKind = 3
	kindTag      entryKind = 4
	kindOFSDelta entryKind = 6
	kindREFDelta entryKind = 7
)

func toObjectKind(k entryKind) (objects.Kind, bool) {
	switch k {
	case kindCommit:
		return objects.CommitKind, true
	case kindTree:
		return objects.TreeKind, true
	case kindBlob:
		return objects.BlobKind, true
	case kindTag:
		return objects.TagKind, true
	default:
		return objects.InvalidKind, false
	}
}

func fromObjectKind(k objects.Kind) entryKind {
	switch k {
	case objects.CommitKind:
		return kindCommit
	case objects.TreeKind:
		return kindTree
	case objects.BlobKind:
		return kindBlob
	case objects.TagKind:
		return kindTag
	default:
		return 0
	}
}

// Object is one entry materialized from a pack, either a literal object
// (kind is one of the four base kinds) or a resolved delta.
type Object struct {
	Kind objects.Kind
	Data []byte
	OID  objects.OID
}

func checksum(b []byte) []byte {
	h := githash.New(crypto.SHA1)
	h.Write(b)
	return h.Sum(nil)
}

func objectHeader(kind objects.Kind, size int) string {
	return fmt.Sprintf("%s %d\x00", kind, size)
}

func hashObject(kind objects.Kind, data []byte) objects.OID {
	header := objectHeader(kind, len(data))
	full := make([]byte, 0, len(header)+len(data))
	full = append(full, header...)
	full = append(full, data...)
	return objects.NewOID(checksum(full))
}
