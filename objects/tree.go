package objects

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/chr33s/git/githash"
)

// TreeEntry is one line of a tree object.
type TreeEntry struct {
	Mode FileMode
	Name string
	OID  OID
}

// Tree is an ordered (by Name) sequence of entries.
type Tree struct {
	Entries []TreeEntry
}

// Sort orders entries lexicographically by name, required for OID
// determinism (spec invariant: tree-entry ordering).
func (t *Tree) Sort() {
	sort.Slice(t.Entries, func(i, j int) bool { return t.Entries[i].Name < t.Entries[j].Name })
}

// Encode serializes a tree as
// "<mode> <name>\0<20-byte-oid>" repeated per entry, sorted by name.
func (t *Tree) Encode() ([]byte, error) {
	t.Sort()
	var buf bytes.Buffer
	for _, e := range t.Entries {
		buf.WriteString(string(e.Mode))
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		raw, err := e.OID.Bytes()
		if err != nil {
			return nil, fmt.Errorf("objects: tree entry %q: %w", e.Name, err)
		}
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// DecodeTree parses the binary tree payload produced by Encode.
func DecodeTree(b []byte) (*Tree, error) {
	t := &Tree{}
	for len(b) > 0 {
		sp := bytes.IndexByte(b, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("objects: malformed tree entry (no mode separator)")
		}
		mode := string(b[:sp])
		rest := b[sp+1:]

		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return nil, fmt.Errorf("objects: malformed tree entry (no name terminator)")
		}
		name := string(rest[:nul])

		oidStart := nul + 1
		if len(rest) < oidStart+githash.Size {
			return nil, fmt.Errorf("objects: truncated tree entry oid")
		}
		oid := NewOID(rest[oidStart : oidStart+githash.Size])

		t.Entries = append(t.Entries, TreeEntry{Mode: canonicalMode(mode), Name: name, OID: oid})
		b = rest[oidStart+githash.Size:]
	}
	return t, nil
}

// canonicalMode normalizes an octal mode string like "040000" (as git's own
// `ls-tree` would print for a directory, and as some foreign tree payloads
// encode it) to the unpadded "40000" this module always stores, so
// DecodeTree accepts both forms.
func canonicalMode(s string) FileMode {
	if n, err := strconv.ParseInt(s, 8, 32); err == nil {
		if n == 0o40000 {
			return ModeDir
		}
	}
	return FileMode(s)
}
