package repository

import (
	"github.com/chr33s/git/objects"
	"github.com/emirpasic/gods/sets/hashset"
)

// ObjectClosure walks the commit graph from roots (all parents, not just
// first-parent), stopping at any OID in haves, and returns every commit,
// tree and blob object reachable — the push/upload-pack pack content (spec
// §4.I "push": "walk commit graph from local branch head (parents first),
// collect transitive tree+blob closure"; §4.J upload-pack: "BFS over commit
// graph from wants, stopping at haves and already-visited").
func (r *Repository) ObjectClosure(roots []objects.OID, haves map[objects.OID]bool) ([]objects.OID, error) {
	visited := hashset.New()
	var order []objects.OID

	queue := append([]objects.OID(nil), roots...)
	for len(queue) > 0 {
		oid := queue[0]
		queue = queue[1:]

		if oid.Empty() || haves[oid] || visited.Contains(oid) {
			continue
		}
		visited.Add(oid)

		kind, payload, err := r.Objects.Read(oid)
		if err != nil {
			return nil, err
		}
		order = append(order, oid)

		switch kind {
		case objects.CommitKind:
			c, err := objects.DecodeCommit(payload)
			if err != nil {
				return nil, err
			}
			treeLeaves, err := r.treeClosure(c.Tree, visited)
			if err != nil {
				return nil, err
			}
			order = append(order, treeLeaves...)
			queue = append(queue, c.Parents...)
		case objects.TagKind:
			tag, err := objects.DecodeTag(payload)
			if err != nil {
				return nil, err
			}
			queue = append(queue, tag.Object)
		}
	}
	return order, nil
}

// treeClosure recursively collects every subtree and blob reachable from
// treeOID, skipping anything already in visited.
func (r *Repository) treeClosure(treeOID objects.OID, visited *hashset.Set) ([]objects.OID, error) {
	if treeOID.Empty() || visited.Contains(treeOID) {
		return nil, nil
	}
	visited.Add(treeOID)

	kind, payload, err := r.Objects.Read(treeOID)
	if err != nil {
		return nil, err
	}
	if kind != objects.TreeKind {
		return nil, nil
	}
	tree, err := objects.DecodeTree(payload)
	if err != nil {
		return nil, err
	}

	out := []objects.OID{treeOID}
	for _, e := range tree.Entries {
		if visited.Contains(e.OID) {
			continue
		}
		if e.Mode.IsDir() {
			sub, err := r.treeClosure(e.OID, visited)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		visited.Add(e.OID)
		out = append(out, e.OID)
	}
	return out, nil
}
