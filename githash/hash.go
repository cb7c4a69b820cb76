// Package githash provides the object-id hashing primitive used across the
// module: a swappable SHA-1 implementation plus hex codec helpers.
package githash

import (
	"crypto"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/pjbgf/sha1cd"
)

// Size is the length in bytes of an OID.
const Size = 20

// HexSize is the length in hex characters of an OID.
const HexSize = Size * 2

var algos = map[crypto.Hash]func() hash.Hash{
	crypto.SHA1: sha1cd.New,
}

// RegisterHash allows the hash implementation backing an OID algorithm to be
// overridden, e.g. in tests that want a faster, non-collision-detecting SHA-1.
func RegisterHash(h crypto.Hash, f func() hash.Hash) error {
	if f == nil {
		return fmt.Errorf("githash: cannot register nil hash func")
	}
	algos[h] = f
	return nil
}

// New returns a new hash.Hash for the given algorithm. It panics if the
// algorithm was never registered, mirroring go-git's plumbing/hash package.
func New(h crypto.Hash) hash.Hash {
	f, ok := algos[h]
	if !ok {
		panic(fmt.Sprintf("githash: hash algorithm not registered: %v", h))
	}
	return f()
}

// Sum computes the SHA-1 OID of b as a lowercase hex string.
func Sum(b []byte) string {
	h := New(crypto.SHA1)
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

// BytesToHex renders raw hash bytes as a lowercase hex string.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// HexToBytes parses a lowercase (or uppercase) hex OID into raw bytes.
func HexToBytes(s string) ([]byte, error) {
	if len(s) != HexSize {
		return nil, fmt.Errorf("githash: invalid oid length %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("githash: invalid oid %q: %w", s, err)
	}
	return b, nil
}

// Valid reports whether s looks like a well-formed hex OID.
func Valid(s string) bool {
	if len(s) != HexSize {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// ZeroOID is the all-zero OID used as a sentinel for "ref does not exist yet"
// in receive-pack ref-update commands.
const ZeroOID = "0000000000000000000000000000000000000000"
