package repository

import (
	"fmt"

	"github.com/chr33s/git/merge"
	"github.com/chr33s/git/objects"
	"github.com/emirpasic/gods/sets/hashset"
)

// ConflictError is returned by Merge/Rebase when the tree merge could not
// resolve every path automatically.
type ConflictError struct {
	Conflicts []merge.Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("repository: %d unresolved conflict(s)", len(e.Conflicts))
}

// firstParentAncestors returns the set of commit OIDs reachable from start
// by always following the first parent (spec §4.I: "LCA over first-parent
// history"), including start itself.
func (r *Repository) firstParentAncestors(start objects.OID) (*hashset.Set, []objects.OID, error) {
	set := hashset.New()
	var order []objects.OID
	cur := start
	for !cur.Empty() {
		set.Add(cur)
		order = append(order, cur)
		_, payload, err := r.Objects.Read(cur)
		if err != nil {
			return nil, nil, err
		}
		c, err := objects.DecodeCommit(payload)
		if err != nil {
			return nil, nil, err
		}
		if len(c.Parents) == 0 {
			break
		}
		cur = c.Parents[0]
	}
	return set, order, nil
}

// lowestCommonAncestor walks ours' first-parent ancestry into a set, then
// walks theirs' first-parent ancestry until it lands on a member of that
// set (spec §4.I: "build set of ancestors from HEAD, walk ancestors from
// other until intersection").
func (r *Repository) lowestCommonAncestor(ours, theirs objects.OID) (objects.OID, error) {
	ourSet, _, err := r.firstParentAncestors(ours)
	if err != nil {
		return "", err
	}
	cur := theirs
	for !cur.Empty() {
		if ourSet.Contains(cur) {
			return cur, nil
		}
		_, payload, err := r.Objects.Read(cur)
		if err != nil {
			return "", err
		}
		c, err := objects.DecodeCommit(payload)
		if err != nil {
			return "", err
		}
		if len(c.Parents) == 0 {
			break
		}
		cur = c.Parents[0]
	}
	return "", fmt.Errorf("repository: no common ancestor between %s and %s", ours, theirs)
}

func (r *Repository) commitTree(oid objects.OID) (objects.OID, error) {
	if oid.Empty() {
		return objects.EmptyTreeOID, nil
	}
	_, payload, err := r.Objects.Read(oid)
	if err != nil {
		return "", err
	}
	c, err := objects.DecodeCommit(payload)
	if err != nil {
		return "", err
	}
	return c.Tree, nil
}

// Merge resolves otherRef, finds its merge base with HEAD, three-way merges
// the trees, and on success creates a two-parent merge commit advancing
// HEAD's branch ref (spec §4.I).
func (r *Repository) Merge(otherRef string, strategy merge.Strategy, author objects.Signature) (objects.OID, error) {
	branch, err := r.currentBranch()
	if err != nil {
		return "", err
	}
	headOID, err := r.headOID()
	if err != nil {
		return "", err
	}
	otherOID, err := r.resolveRef(otherRef)
	if err != nil {
		return "", err
	}

	baseOID, err := r.lowestCommonAncestor(headOID, otherOID)
	if err != nil {
		return "", err
	}

	baseTree, err := r.commitTree(baseOID)
	if err != nil {
		return "", err
	}
	ourTree, err := r.commitTree(headOID)
	if err != nil {
		return "", err
	}
	theirTree, err := r.commitTree(otherOID)
	if err != nil {
		return "", err
	}

	mergedTree, conflicts, err := merge.TreeMerge(r.Objects, strategy, baseTree, ourTree, theirTree)
	if err != nil {
		return "", err
	}
	if len(conflicts) > 0 {
		return "", &ConflictError{Conflicts: conflicts}
	}

	c := &objects.Commit{
		Tree:      mergedTree,
		Parents:   []objects.OID{headOID, otherOID},
		Author:    author,
		Committer: author,
		Message:   fmt.Sprintf("Merge branch '%s' into current branch", otherRef),
	}
	oid, err := r.Objects.Write(objects.CommitKind, c.Encode())
	if err != nil {
		return "", err
	}
	if err := r.Refs.Write(branch, oid); err != nil {
		return "", err
	}

	idx, err := r.loadIndexForTree(mergedTree)
	if err != nil {
		return "", err
	}
	if err := r.saveIndex(idx); err != nil {
		return "", err
	}

	r.Log.WithField("commit", oid).Info("merged")
	return oid, nil
}

// Rebase replays HEAD's commits since its fork point with onto on top of
// onto, one at a time, preserving original authorship (spec §4.I).
func (r *Repository) Rebase(onto string, committer objects.Signature) (objects.OID, error) {
	branch, err := r.currentBranch()
	if err != nil {
		return "", err
	}
	headOID, err := r.headOID()
	if err != nil {
		return "", err
	}
	ontoOID, err := r.resolveRef(onto)
	if err != nil {
		return "", err
	}

	forkPoint, err := r.lowestCommonAncestor(headOID, ontoOID)
	if err != nil {
		return "", err
	}

	_, replay, err := r.firstParentAncestors(headOID)
	if err != nil {
		return "", err
	}
	var toReplay []objects.OID
	for _, oid := range replay {
		if oid == forkPoint {
			break
		}
		toReplay = append(toReplay, oid)
	}
	for i, j := 0, len(toReplay)-1; i < j; i, j = i+1, j-1 {
		toReplay[i], toReplay[j] = toReplay[j], toReplay[i]
	}

	newParent := ontoOID
	oldParent := forkPoint
	for _, commitOID := range toReplay {
		_, payload, err := r.Objects.Read(commitOID)
		if err != nil {
			return "", err
		}
		orig, err := objects.DecodeCommit(payload)
		if err != nil {
			return "", err
		}

		oldParentTree, err := r.commitTree(oldParent)
		if err != nil {
			return "", err
		}
		newParentTree, err := r.commitTree(newParent)
		if err != nil {
			return "", err
		}

		mergedTree, conflicts, err := merge.TreeMerge(r.Objects, merge.Recursive, oldParentTree, newParentTree, orig.Tree)
		if err != nil {
			return "", err
		}
		if len(conflicts) > 0 {
			return "", &ConflictError{Conflicts: conflicts}
		}

		replayed := &objects.Commit{
			Tree:      mergedTree,
			Parents:   []objects.OID{newParent},
			Author:    orig.Author,
			Committer: committer,
			Message:   orig.Message,
		}
		newOID, err := r.Objects.Write(objects.CommitKind, replayed.Encode())
		if err != nil {
			return "", err
		}

		oldParent = commitOID
		newParent = newOID
	}

	if err := r.Refs.Write(branch, newParent); err != nil {
		return "", err
	}

	finalTree, err := r.commitTree(newParent)
	if err != nil {
		return "", err
	}
	idx, err := r.loadIndexForTree(finalTree)
	if err != nil {
		return "", err
	}
	if err := r.saveIndex(idx); err != nil {
		return "", err
	}

	r.Log.WithField("commit", newParent).Info("rebased")
	return newParent, nil
}
