// Package odb implements the loose-object store (spec §4.C): content
// addressed, deflate-compressed objects under objects/<xx>/<38>.
package odb

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"path"

	"github.com/chr33s/git/githash"
	"github.com/chr33s/git/objdeflate"
	"github.com/chr33s/git/objects"
	"github.com/chr33s/git/storage"
)

func sum(b []byte) []byte {
	h := githash.New(crypto.SHA1)
	h.Write(b)
	return h.Sum(nil)
}

// Errors surfaced by Store, matching the taxonomy in spec §7.
var (
	ErrObjectNotFound = errors.New("odb: object not found")
	ErrCorruptObject  = errors.New("odb: corrupt object")
)

// Store is a loose-object database layered on a storage.Storage.
type Store struct {
	fs storage.Storage
}

// New returns an object store rooted at the given storage backend.
func New(fs storage.Storage) *Store {
	return &Store{fs: fs}
}

func objectPath(oid objects.OID) (string, error) {
	s := string(oid)
	if len(s) != githash.HexSize {
		return "", fmt.Errorf("%w: invalid oid %q", ErrObjectNotFound, s)
	}
	return path.Join("objects", s[:2], s[2:]), nil
}

// Has reports whether oid is present in the store.
func (s *Store) Has(oid objects.OID) (bool, error) {
	p, err := objectPath(oid)
	if err != nil {
		return false, err
	}
	return s.fs.Exists(p)
}

// Write computes the header-prefixed SHA-1 of payload, stores it
// deflate-compressed iff not already present, and returns its OID.
// Writing bytes that already have an object is a no-op (P1/invariant: OID↔bytes
// bijection).
func (s *Store) Write(kind objects.Kind, payload []byte) (objects.OID, error) {
	header := fmt.Sprintf("%s %d\x00", kind, len(payload))
	full := make([]byte, 0, len(header)+len(payload))
	full = append(full, header...)
	full = append(full, payload...)

	oid := objects.NewOID(sum(full))

	p, err := objectPath(oid)
	if err != nil {
		return "", err
	}
	exists, err := s.fs.Exists(p)
	if err != nil {
		return "", err
	}
	if exists {
		return oid, nil
	}

	compressed, err := objdeflate.Compress(full)
	if err != nil {
		return "", err
	}
	if err := s.fs.WriteFile(p, compressed); err != nil {
		return "", err
	}
	return oid, nil
}

// Read decompresses and parses the object named by oid.
func (s *Store) Read(oid objects.OID) (objects.Kind, []byte, error) {
	p, err := objectPath(oid)
	if err != nil {
		return objects.InvalidKind, nil, err
	}
	raw, err := s.fs.ReadFile(p)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return objects.InvalidKind, nil, fmt.Errorf("%w: %s", ErrObjectNotFound, oid)
		}
		return objects.InvalidKind, nil, err
	}

	full, err := objdeflate.Decompress(raw)
	if err != nil {
		return objects.InvalidKind, nil, fmt.Errorf("%w: %v", ErrCorruptObject, err)
	}
	return parseHeader(full)
}

func parseHeader(full []byte) (objects.Kind, []byte, error) {
	nul := bytes.IndexByte(full, 0)
	if nul < 0 {
		return objects.InvalidKind, nil, fmt.Errorf("%w: missing header terminator", ErrCorruptObject)
	}
	header := full[:nul]
	sp := bytes.IndexByte(header, ' ')
	if sp < 0 {
		return objects.InvalidKind, nil, fmt.Errorf("%w: malformed header %q", ErrCorruptObject, header)
	}
	kind, err := objects.ParseKind(string(header[:sp]))
	if err != nil {
		return objects.InvalidKind, nil, fmt.Errorf("%w: %v", ErrCorruptObject, err)
	}
	return kind, full[nul+1:], nil
}

// WriteRaw frames payload with its "<kind> <size>\x00" header, compresses it
// and stores it at the canonical path of the given OID, which is not
// recomputed. Used by the pack parser once a delta has been resolved.
func (s *Store) WriteRaw(oid objects.OID, kind objects.Kind, payload []byte) error {
	p, err := objectPath(oid)
	if err != nil {
		return err
	}
	exists, err := s.fs.Exists(p)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	header := fmt.Sprintf("%s %d\x00", kind, len(payload))
	full := append([]byte(header), payload...)
	compressed, err := objdeflate.Compress(full)
	if err != nil {
		return err
	}
	return s.fs.WriteFile(p, compressed)
}
