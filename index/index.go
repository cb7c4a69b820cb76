// Package index implements the binary DIRC staging-area file (spec §4.E):
// encode/decode plus tree materialization.
package index

import (
	"sort"
	"time"

	"github.com/chr33s/git/objects"
)

// Entry is one staged file. Persisted fields map directly onto the DIRC
// binary layout; Ctime/Dev/Ino/Uid/Gid are not tracked by this
// implementation (which has no real working tree) and are always zero.
type Entry struct {
	Path  string
	OID   objects.OID
	Mode  objects.FileMode
	Size  uint32
	Mtime time.Time
}

// Index is the in-memory staging area, kept sorted by path with unique
// paths (spec invariant, P8).
type Index struct {
	Entries []Entry
}

// New returns an empty index, equivalent to a missing index file.
func New() *Index {
	return &Index{}
}

// Add inserts or replaces the entry for e.Path, keeping Entries sorted.
func (idx *Index) Add(e Entry) {
	i := sort.Search(len(idx.Entries), func(i int) bool { return idx.Entries[i].Path >= e.Path })
	if i < len(idx.Entries) && idx.Entries[i].Path == e.Path {
		idx.Entries[i] = e
		return
	}
	idx.Entries = append(idx.Entries, Entry{})
	copy(idx.Entries[i+1:], idx.Entries[i:])
	idx.Entries[i] = e
}

// Remove deletes the entry for path, if present.
func (idx *Index) Remove(p string) {
	i := sort.Search(len(idx.Entries), func(i int) bool { return idx.Entries[i].Path >= p })
	if i < len(idx.Entries) && idx.Entries[i].Path == p {
		idx.Entries = append(idx.Entries[:i], idx.Entries[i+1:]...)
	}
}

// Get returns the entry for path, if present.
func (idx *Index) Get(p string) (Entry, bool) {
	i := sort.Search(len(idx.Entries), func(i int) bool { return idx.Entries[i].Path >= p })
	if i < len(idx.Entries) && idx.Entries[i].Path == p {
		return idx.Entries[i], true
	}
	return Entry{}, false
}
