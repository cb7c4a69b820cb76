package index

import (
	"path"

	"github.com/chr33s/git/objects"
)

// ObjectReader is the read-side of the object store, scoped down so this
// package does not need to import odb directly.
type ObjectReader interface {
	Read(oid objects.OID) (objects.Kind, []byte, error)
}

// UpdateFromTree discards the current entries and walks treeOID depth-first,
// recursing into subtrees, emitting one entry per non-directory leaf with
// its full slash-joined path and mode copied verbatim from the tree entry.
func (idx *Index) UpdateFromTree(treeOID objects.OID, store ObjectReader) error {
	idx.Entries = nil
	if treeOID.Empty() {
		return nil
	}
	return idx.walkTree(treeOID, "", store)
}

func (idx *Index) walkTree(treeOID objects.OID, prefix string, store ObjectReader) error {
	kind, payload, err := store.Read(treeOID)
	if err != nil {
		return err
	}
	if kind != objects.TreeKind {
		return nil
	}
	tree, err := objects.DecodeTree(payload)
	if err != nil {
		return err
	}

	for _, e := range tree.Entries {
		full := e.Name
		if prefix != "" {
			full = path.Join(prefix, e.Name)
		}
		if e.Mode.IsDir() {
			if err := idx.walkTree(e.OID, full, store); err != nil {
				return err
			}
			continue
		}
		idx.Add(Entry{Path: full, OID: e.OID, Mode: e.Mode})
	}
	return nil
}
