package repository_test

import (
	"testing"

	"github.com/chr33s/git/config"
	"github.com/chr33s/git/merge"
	"github.com/chr33s/git/objects"
	"github.com/chr33s/git/refs"
	"github.com/chr33s/git/repository"
	"github.com/chr33s/git/storage/memory"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *repository.Repository {
	t.Helper()
	r, err := repository.Init(memory.New(), config.Default())
	require.NoError(t, err)
	return r
}

var author = objects.Signature{Name: "Ada", Email: "ada@example.com", When: 1700000000, TZ: "+0000"}

func TestInitCreatesSymbolicHeadOnMain(t *testing.T) {
	r := newRepo(t)
	head, err := r.Refs.ReadHead()
	require.NoError(t, err)
	require.Equal(t, refs.HeadSymbolic, head.Kind)
	require.Equal(t, "refs/heads/main", head.Target)
}

func TestAddCommitAdvancesBranch(t *testing.T) {
	r := newRepo(t)
	require.NoError(t, r.Add("README.md", []byte("hello\n")))

	oid, err := r.Commit("initial commit", author)
	require.NoError(t, err)
	require.True(t, oid.Valid())

	branchOID, err := r.Refs.Read(refs.BranchRef("main"))
	require.NoError(t, err)
	require.Equal(t, oid, branchOID)

	_, payload, err := r.Objects.Read(oid)
	require.NoError(t, err)
	commit, err := objects.DecodeCommit(payload)
	require.NoError(t, err)
	require.Empty(t, commit.Parents)
}

func TestSecondCommitHasFirstAsParent(t *testing.T) {
	r := newRepo(t)
	require.NoError(t, r.Add("a.txt", []byte("1")))
	first, err := r.Commit("first", author)
	require.NoError(t, err)

	require.NoError(t, r.Add("b.txt", []byte("2")))
	second, err := r.Commit("second", author)
	require.NoError(t, err)

	_, payload, err := r.Objects.Read(second)
	require.NoError(t, err)
	commit, err := objects.DecodeCommit(payload)
	require.NoError(t, err)
	require.Equal(t, []objects.OID{first}, commit.Parents)
}

func TestStatusReportsStagedPathsOnceHeadExists(t *testing.T) {
	r := newRepo(t)
	status, err := r.Status()
	require.NoError(t, err)
	require.Empty(t, status.Staged) // no HEAD commit yet

	require.NoError(t, r.Add("a.txt", []byte("1")))
	_, err = r.Commit("c1", author)
	require.NoError(t, err)

	status, err = r.Status()
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt"}, status.Staged)
}

func TestMergeFastForwardLikeTwoBranches(t *testing.T) {
	r := newRepo(t)
	require.NoError(t, r.Add("base.txt", []byte("base\n")))
	baseCommit, err := r.Commit("base", author)
	require.NoError(t, err)
	require.NoError(t, r.Refs.Write(refs.BranchRef("feature"), baseCommit))

	require.NoError(t, r.Add("main-only.txt", []byte("on main\n")))
	_, err = r.Commit("main work", author)
	require.NoError(t, err)

	mergeOID, err := r.Merge("feature", merge.Recursive, author)
	require.NoError(t, err)
	require.True(t, mergeOID.Valid())

	_, payload, err := r.Objects.Read(mergeOID)
	require.NoError(t, err)
	commit, err := objects.DecodeCommit(payload)
	require.NoError(t, err)
	require.Len(t, commit.Parents, 2)
}

func TestResetHardMovesIndexAndBranch(t *testing.T) {
	r := newRepo(t)
	require.NoError(t, r.Add("a.txt", []byte("1")))
	first, err := r.Commit("first", author)
	require.NoError(t, err)

	require.NoError(t, r.Add("b.txt", []byte("2")))
	_, err = r.Commit("second", author)
	require.NoError(t, err)

	require.NoError(t, r.Reset(true, string(first)))

	branchOID, err := r.Refs.Read(refs.BranchRef("main"))
	require.NoError(t, err)
	require.Equal(t, first, branchOID)
}
