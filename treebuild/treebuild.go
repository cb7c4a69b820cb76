// Package treebuild groups a flat set of leaf (path, mode, oid) entries into
// the nested tree objects git stores on disk, shared by the index→commit
// path (repository façade) and the merge engine's merged-tree construction.
package treebuild

import (
	"sort"
	"strings"

	"github.com/chr33s/git/objects"
)

// Leaf is one non-directory entry to place in the built tree.
type Leaf struct {
	Path string
	Mode objects.FileMode
	OID  objects.OID
}

// Writer persists a tree object and returns its OID.
type Writer interface {
	Write(kind objects.Kind, payload []byte) (objects.OID, error)
}

// node is one level of the directory trie being assembled.
type node struct {
	leaves   map[string]Leaf
	children map[string]*node
}

func newNode() *node {
	return &node{leaves: map[string]Leaf{}, children: map[string]*node{}}
}

// Build recursively creates subtree objects for every directory implied by
// leaves' paths and returns the OID of the root tree. An empty leaf set
// yields the canonical empty-tree OID without writing anything.
func Build(leaves []Leaf, w Writer) (objects.OID, error) {
	if len(leaves) == 0 {
		return objects.EmptyTreeOID, nil
	}

	root := newNode()
	for _, l := range leaves {
		insert(root, strings.Split(l.Path, "/"), l)
	}
	return write(root, w)
}

func insert(n *node, parts []string, leaf Leaf) {
	if len(parts) == 1 {
		n.leaves[parts[0]] = leaf
		return
	}
	child, ok := n.children[parts[0]]
	if !ok {
		child = newNode()
		n.children[parts[0]] = child
	}
	insert(child, parts[1:], leaf)
}

func write(n *node, w Writer) (objects.OID, error) {
	t := &objects.Tree{}

	for name, leaf := range n.leaves {
		t.Entries = append(t.Entries, objects.TreeEntry{Mode: leaf.Mode, Name: name, OID: leaf.OID})
	}
	for name, child := range n.children {
		oid, err := write(child, w)
		if err != nil {
			return "", err
		}
		t.Entries = append(t.Entries, objects.TreeEntry{Mode: objects.ModeDir, Name: name, OID: oid})
	}

	sort.Slice(t.Entries, func(i, j int) bool { return t.Entries[i].Name < t.Entries[j].Name })

	payload, err := t.Encode()
	if err != nil {
		return "", err
	}
	return w.Write(objects.TreeKind, payload)
}
