package merge_test

import (
	"testing"

	"github.com/chr33s/git/merge"
	"github.com/chr33s/git/objects"
	"github.com/chr33s/git/odb"
	"github.com/chr33s/git/storage/memory"
	"github.com/chr33s/git/treebuild"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *odb.Store {
	t.Helper()
	return odb.New(memory.New())
}

func blob(t *testing.T, s *odb.Store, content string) objects.OID {
	t.Helper()
	oid, err := s.Write(objects.BlobKind, []byte(content))
	require.NoError(t, err)
	return oid
}

func tree(t *testing.T, s *odb.Store, leaves ...treebuild.Leaf) objects.OID {
	t.Helper()
	oid, err := treebuild.Build(leaves, s)
	require.NoError(t, err)
	return oid
}

func TestTreeMergeBothSidesUnchangedIncludesShared(t *testing.T) {
	s := newStore(t)
	readme := blob(t, s, "hello\n")
	base := tree(t, s, treebuild.Leaf{Path: "README.md", Mode: objects.ModeFile, OID: readme})

	merged, conflicts, err := merge.TreeMerge(s, merge.Recursive, base, base, base)
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Equal(t, base, merged)
}

func TestTreeMergeOneSideModifiedWins(t *testing.T) {
	s := newStore(t)
	oldContent := blob(t, s, "v1\n")
	newContent := blob(t, s, "v2\n")

	base := tree(t, s, treebuild.Leaf{Path: "file.txt", Mode: objects.ModeFile, OID: oldContent})
	ours := tree(t, s, treebuild.Leaf{Path: "file.txt", Mode: objects.ModeFile, OID: newContent})

	merged, conflicts, err := merge.TreeMerge(s, merge.Recursive, base, ours, base)
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Equal(t, ours, merged)
}

func TestTreeMergeBothSidesChangeDifferentlyConflicts(t *testing.T) {
	s := newStore(t)
	baseContent := blob(t, s, "line one\nline two\nline three\n")
	ourContent := blob(t, s, "line one CHANGED BY US\nline two\nline three\n")
	theirContent := blob(t, s, "line one CHANGED BY THEM\nline two\nline three\n")

	base := tree(t, s, treebuild.Leaf{Path: "file.txt", Mode: objects.ModeFile, OID: baseContent})
	ours := tree(t, s, treebuild.Leaf{Path: "file.txt", Mode: objects.ModeFile, OID: ourContent})
	theirs := tree(t, s, treebuild.Leaf{Path: "file.txt", Mode: objects.ModeFile, OID: theirContent})

	_, conflicts, err := merge.TreeMerge(s, merge.Recursive, base, ours, theirs)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, "file.txt", conflicts[0].Path)
}

func TestTreeMergeBothSidesAddDifferentContentAtSamePathConflicts(t *testing.T) {
	s := newStore(t)
	base := objects.EmptyTreeOID
	ours := tree(t, s, treebuild.Leaf{Path: "new.txt", Mode: objects.ModeFile, OID: blob(t, s, "ours content\n")})
	theirs := tree(t, s, treebuild.Leaf{Path: "new.txt", Mode: objects.ModeFile, OID: blob(t, s, "theirs content\n")})

	_, conflicts, err := merge.TreeMerge(s, merge.Recursive, base, ours, theirs)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, "new.txt", conflicts[0].Path)
	require.Empty(t, conflicts[0].Base)
}

func TestTreeMergeDeletedOnOneSideIsOmitted(t *testing.T) {
	s := newStore(t)
	content := blob(t, s, "keep me or not\n")
	base := tree(t, s,
		treebuild.Leaf{Path: "keep.txt", Mode: objects.ModeFile, OID: content},
		treebuild.Leaf{Path: "deleteme.txt", Mode: objects.ModeFile, OID: content},
	)
	ours := tree(t, s, treebuild.Leaf{Path: "keep.txt", Mode: objects.ModeFile, OID: content})

	merged, conflicts, err := merge.TreeMerge(s, merge.Recursive, base, ours, base)
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Equal(t, ours, merged)
}

func TestTreeMergeOursStrategyReturnsOursUnchanged(t *testing.T) {
	s := newStore(t)
	ours := tree(t, s, treebuild.Leaf{Path: "a", Mode: objects.ModeFile, OID: blob(t, s, "ours")})
	theirs := tree(t, s, treebuild.Leaf{Path: "a", Mode: objects.ModeFile, OID: blob(t, s, "theirs")})

	merged, conflicts, err := merge.TreeMerge(s, merge.Ours, objects.EmptyTreeOID, ours, theirs)
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Equal(t, ours, merged)
}

func TestDetectRenamesAboveThreshold(t *testing.T) {
	s := newStore(t)
	content := blob(t, s, "func main() {\n\tprintln(\"hi\")\n}\n")

	renames, err := merge.DetectRenames(s,
		map[string]objects.OID{"old/main.go": content},
		map[string]objects.OID{"new/main.go": content},
	)
	require.NoError(t, err)
	require.Len(t, renames, 1)
	require.Equal(t, "old/main.go", renames[0].From)
	require.Equal(t, "new/main.go", renames[0].To)
	require.InDelta(t, 1.0, renames[0].Similarity, 0.001)
}

func TestDetectRenamesBelowThresholdIgnored(t *testing.T) {
	s := newStore(t)
	a := blob(t, s, "completely unrelated content here\n")
	b := blob(t, s, "totally different stuff entirely\n")

	renames, err := merge.DetectRenames(s,
		map[string]objects.OID{"a.txt": a},
		map[string]objects.OID{"b.txt": b},
	)
	require.NoError(t, err)
	require.Empty(t, renames)
}
