package merge

import (
	"sort"

	"github.com/chr33s/git/objects"
	"github.com/emirpasic/gods/sets/hashset"
)

// RenameThreshold is the Jaccard similarity (spec §4.H) a deleted/added path
// pair must exceed to be reported as a rename.
const RenameThreshold = 0.5

// Rename pairs a path present only on one side of a diff with a path present
// only on the other, above RenameThreshold similarity.
type Rename struct {
	From       string
	To         string
	Similarity float64
}

// DetectRenames compares the paths unique to "deleted" against the paths
// unique to "added" (both maps of path -> blob OID, read through store) and
// reports the best rename pairing for each side, greedily consuming matches
// highest-similarity first so no path is used in more than one pair.
func DetectRenames(store Store, deleted, added map[string]objects.OID) ([]Rename, error) {
	type candidate struct {
		from, to string
		sim      float64
	}

	lineSets := map[objects.OID]*hashset.Set{}
	lineSetFor := func(oid objects.OID) (*hashset.Set, error) {
		if s, ok := lineSets[oid]; ok {
			return s, nil
		}
		_, payload, err := store.Read(oid)
		if err != nil {
			return nil, err
		}
		s := hashset.New()
		for _, line := range splitLines(string(payload)) {
			s.Add(line)
		}
		lineSets[oid] = s
		return s, nil
	}

	var candidates []candidate
	for from, fromOID := range deleted {
		fromSet, err := lineSetFor(fromOID)
		if err != nil {
			return nil, err
		}
		for to, toOID := range added {
			toSet, err := lineSetFor(toOID)
			if err != nil {
				return nil, err
			}
			sim := jaccard(fromSet, toSet)
			if sim > RenameThreshold {
				candidates = append(candidates, candidate{from: from, to: to, sim: sim})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sim != candidates[j].sim {
			return candidates[i].sim > candidates[j].sim
		}
		if candidates[i].from != candidates[j].from {
			return candidates[i].from < candidates[j].from
		}
		return candidates[i].to < candidates[j].to
	})

	usedFrom := map[string]bool{}
	usedTo := map[string]bool{}
	var renames []Rename
	for _, c := range candidates {
		if usedFrom[c.from] || usedTo[c.to] {
			continue
		}
		usedFrom[c.from] = true
		usedTo[c.to] = true
		renames = append(renames, Rename{From: c.from, To: c.to, Similarity: c.sim})
	}
	return renames, nil
}

func jaccard(a, b *hashset.Set) float64 {
	if a.Size() == 0 && b.Size() == 0 {
		return 0
	}
	inter := a.Intersection(b)
	union := a.Union(b)
	if union.Size() == 0 {
		return 0
	}
	return float64(inter.Size()) / float64(union.Size())
}
