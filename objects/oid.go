package objects

import "github.com/chr33s/git/githash"

// OID is a 40-character lowercase hex SHA-1 digest naming an object.
type OID string

// Empty reports whether the OID is the zero value (no object named).
func (o OID) Empty() bool {
	return o == ""
}

// Valid reports whether o looks like a well-formed hex OID.
func (o OID) Valid() bool {
	return githash.Valid(string(o))
}

func (o OID) String() string {
	return string(o)
}

// Bytes returns the 20 raw bytes the hex OID encodes.
func (o OID) Bytes() ([]byte, error) {
	return githash.HexToBytes(string(o))
}

// NewOID hex-encodes 20 raw hash bytes into an OID.
func NewOID(b []byte) OID {
	return OID(githash.BytesToHex(b))
}

// ZeroOID is the all-zero OID git uses as a sentinel for "ref does not exist".
const ZeroOID OID = githash.ZeroOID

// EmptyBlobOID is the canonical OID of the zero-length blob.
const EmptyBlobOID OID = "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"

// EmptyTreeOID is the canonical OID of the empty tree.
const EmptyTreeOID OID = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
