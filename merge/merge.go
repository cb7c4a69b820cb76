// Package merge implements the three-way tree merge engine (spec §4.H):
// structural tree merge, line-level content merge, rename detection, and
// the recursive/resolve/ours/theirs/octopus strategies.
package merge

import (
	"fmt"

	"github.com/chr33s/git/objects"
	"github.com/chr33s/git/treebuild"
)

// Store is the read/write object access the merge engine needs.
type Store interface {
	Read(oid objects.OID) (objects.Kind, []byte, error)
	Write(kind objects.Kind, payload []byte) (objects.OID, error)
}

// Conflict describes one unresolved path after a merge attempt.
type Conflict struct {
	Path    string
	Base    objects.OID
	Ours    objects.OID
	Theirs  objects.OID
	Content []byte // merged bytes with conflict markers, when content merge was attempted
}

// leaf is a flattened (path, mode, oid) tree entry.
type leaf struct {
	Mode objects.FileMode
	OID  objects.OID
}

// Strategy selects the merge algorithm (spec §4.H).
type Strategy string

const (
	Recursive Strategy = "recursive"
	Resolve   Strategy = "resolve"
	Ours      Strategy = "ours"
	Theirs    Strategy = "theirs"
	Octopus   Strategy = "octopus"
)

// TreeMerge merges our_tree and their_tree using base_tree as the common
// ancestor, returning either a merged tree OID or a non-empty conflict list.
func TreeMerge(store Store, strategy Strategy, base, ours, theirs objects.OID) (objects.OID, []Conflict, error) {
	switch strategy {
	case Ours:
		return ours, nil, nil
	case Theirs:
		return theirs, nil, nil
	case Resolve, Recursive, "":
		contentMerge := strategy != Resolve
		return mergeTwo(store, base, ours, theirs, contentMerge)
	default:
		return "", nil, fmt.Errorf("merge: unknown strategy %q", strategy)
	}
}

// Octopus folds recursive over two or more trees, left to right: it starts
// from trees[0] and merges each following tree into the running result,
// using base as the common ancestor for every pairwise step (spec §4.H).
func Octopus(store Store, base objects.OID, trees []objects.OID) (objects.OID, []Conflict, error) {
	if len(trees) < 2 {
		return "", nil, fmt.Errorf("merge: octopus needs at least 2 trees")
	}
	result := trees[0]
	var allConflicts []Conflict
	for _, t := range trees[1:] {
		merged, conflicts, err := mergeTwo(store, base, result, t, true)
		if err != nil {
			return "", nil, err
		}
		allConflicts = append(allConflicts, conflicts...)
		if len(conflicts) == 0 {
			result = merged
		}
	}
	if len(allConflicts) > 0 {
		return "", allConflicts, nil
	}
	return result, nil, nil
}

func mergeTwo(store Store, base, ours, theirs objects.OID, contentMergeAllowed bool) (objects.OID, []Conflict, error) {
	baseLeaves, err := flatten(store, base)
	if err != nil {
		return "", nil, err
	}
	oursLeaves, err := flatten(store, ours)
	if err != nil {
		return "", nil, err
	}
	theirsLeaves, err := flatten(store, theirs)
	if err != nil {
		return "", nil, err
	}

	paths := unionPaths(baseLeaves, oursLeaves, theirsLeaves)

	var result []treebuild.Leaf
	var conflicts []Conflict

	for _, p := range paths {
		b, bOK := baseLeaves[p]
		o, oOK := oursLeaves[p]
		t, tOK := theirsLeaves[p]

		switch {
		case !oOK && !tOK:
			// deleted on both sides (or never existed): omit.

		case oOK && !tOK:
			if bOK && b.OID == o.OID && b.Mode == o.Mode {
				// they deleted, we didn't touch it: omit.
			} else {
				// we modified (or added), they deleted: keep ours.
				result = append(result, treebuild.Leaf{Path: p, Mode: o.Mode, OID: o.OID})
			}

		case tOK && !oOK:
			if bOK && b.OID == t.OID && b.Mode == t.Mode {
				// we deleted, they didn't touch it: omit.
			} else {
				result = append(result, treebuild.Leaf{Path: p, Mode: t.Mode, OID: t.OID})
			}

		default: // present on both sides
			if o.OID == t.OID && o.Mode == t.Mode {
				result = append(result, treebuild.Leaf{Path: p, Mode: o.Mode, OID: o.OID})
				continue
			}
			if bOK && o.OID == b.OID && o.Mode == b.Mode {
				result = append(result, treebuild.Leaf{Path: p, Mode: t.Mode, OID: t.OID})
				continue
			}
			if bOK && t.OID == b.OID && t.Mode == b.Mode {
				result = append(result, treebuild.Leaf{Path: p, Mode: o.Mode, OID: o.OID})
				continue
			}

			// both sides changed the path differently.
			merged, ok := tryContentMerge(store, contentMergeAllowed, b, bOK, o, t)
			if ok {
				oid, err := store.Write(objects.BlobKind, merged)
				if err != nil {
					return "", nil, err
				}
				result = append(result, treebuild.Leaf{Path: p, Mode: o.Mode, OID: oid})
				continue
			}

			var baseOID objects.OID
			if bOK {
				baseOID = b.OID
			}
			conflicts = append(conflicts, Conflict{Path: p, Base: baseOID, Ours: o.OID, Theirs: t.OID, Content: merged})
		}
	}

	if len(conflicts) > 0 {
		return "", conflicts, nil
	}

	mergedOID, err := treebuild.Build(result, store)
	if err != nil {
		return "", nil, err
	}
	return mergedOID, nil, nil
}

func tryContentMerge(store Store, allowed bool, b leaf, bOK bool, o, t leaf) ([]byte, bool) {
	if !allowed {
		return nil, false
	}
	if !bOK {
		// No common ancestor for this path: both sides independently added
		// different content, which spec §4.H's decision table resolves as
		// an immediate conflict rather than a content merge against an
		// empty base.
		return nil, false
	}
	if o.Mode != t.Mode {
		return nil, false
	}

	_, oBytes, err := store.Read(o.OID)
	if err != nil {
		return nil, false
	}
	_, tBytes, err := store.Read(t.OID)
	if err != nil {
		return nil, false
	}
	if isBinary(oBytes) || isBinary(tBytes) {
		return nil, false
	}

	_, baseBytes, err := store.Read(b.OID)
	if err != nil {
		return nil, false
	}
	if isBinary(baseBytes) {
		return nil, false
	}

	merged, conflicted := ContentMerge(baseBytes, oBytes, tBytes)
	return merged, !conflicted
}

// flatten walks a tree OID and returns a map of slash-joined leaf paths to
// their (mode, oid). An empty OID (no tree) and the canonical empty tree,
// which is never written to the store, yield an empty map.
func flatten(store Store, treeOID objects.OID) (map[string]leaf, error) {
	out := map[string]leaf{}
	if treeOID.Empty() || treeOID == objects.EmptyTreeOID {
		return out, nil
	}
	if err := flattenInto(store, treeOID, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(store Store, treeOID objects.OID, prefix string, out map[string]leaf) error {
	kind, payload, err := store.Read(treeOID)
	if err != nil {
		return err
	}
	if kind != objects.TreeKind {
		return fmt.Errorf("merge: %s is not a tree", treeOID)
	}
	tree, err := objects.DecodeTree(payload)
	if err != nil {
		return err
	}
	for _, e := range tree.Entries {
		full := e.Name
		if prefix != "" {
			full = prefix + "/" + e.Name
		}
		if e.Mode.IsDir() {
			if err := flattenInto(store, e.OID, full, out); err != nil {
				return err
			}
			continue
		}
		out[full] = leaf{Mode: e.Mode, OID: e.OID}
	}
	return nil
}

func unionPaths(maps ...map[string]leaf) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range maps {
		for p := range m {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}
