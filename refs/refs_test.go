package refs_test

import (
	"testing"

	"github.com/chr33s/git/objects"
	"github.com/chr33s/git/refs"
	"github.com/chr33s/git/storage/memory"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	s := refs.New(memory.New())
	oid := objects.OID("0123456789abcdef0123456789abcdef01234567")
	require.NoError(t, s.Write(refs.BranchRef("main"), oid))

	got, err := s.Read(refs.BranchRef("main"))
	require.NoError(t, err)
	require.Equal(t, oid, got)
}

func TestReadMissingReturnsNotFound(t *testing.T) {
	s := refs.New(memory.New())
	_, err := s.Read(refs.BranchRef("nope"))
	require.ErrorIs(t, err, refs.ErrNotFound)
}

func TestDeleteMissingIsNotAnError(t *testing.T) {
	s := refs.New(memory.New())
	require.NoError(t, s.Delete(refs.BranchRef("nope")))
}

func TestSymbolicHeadResolvesThroughTarget(t *testing.T) {
	s := refs.New(memory.New())
	oid := objects.OID("1111111111111111111111111111111111111111")
	require.NoError(t, s.Write(refs.BranchRef("main"), oid))
	require.NoError(t, s.WriteSymbolicHead(refs.BranchRef("main")))

	head, err := s.ReadHead()
	require.NoError(t, err)
	require.Equal(t, refs.HeadSymbolic, head.Kind)
	require.Equal(t, refs.BranchRef("main"), head.Target)
	require.Equal(t, oid, head.OID)

	resolved, err := s.ResolveHead()
	require.NoError(t, err)
	require.Equal(t, oid, resolved)
}

func TestSymbolicHeadWithMissingTargetResolvesEmpty(t *testing.T) {
	s := refs.New(memory.New())
	require.NoError(t, s.WriteSymbolicHead(refs.BranchRef("main")))

	head, err := s.ReadHead()
	require.NoError(t, err)
	require.Equal(t, refs.HeadSymbolic, head.Kind)
	require.Equal(t, objects.OID(""), head.OID)
}

func TestDetachedHead(t *testing.T) {
	s := refs.New(memory.New())
	oid := objects.OID("2222222222222222222222222222222222222222")
	require.NoError(t, s.WriteDetachedHead(oid))

	head, err := s.ReadHead()
	require.NoError(t, err)
	require.Equal(t, refs.HeadDetached, head.Kind)
	require.Equal(t, oid, head.OID)
}

func TestListFlattensNestedRefs(t *testing.T) {
	s := refs.New(memory.New())
	mainOID := objects.OID("3333333333333333333333333333333333333333")
	tagOID := objects.OID("4444444444444444444444444444444444444444")
	require.NoError(t, s.Write(refs.BranchRef("main"), mainOID))
	require.NoError(t, s.Write(refs.TagRef("v1.0.0"), tagOID))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)

	byName := map[string]objects.OID{}
	for _, r := range list {
		byName[r.Name] = r.OID
	}
	require.Equal(t, mainOID, byName[refs.BranchRef("main")])
	require.Equal(t, tagOID, byName[refs.TagRef("v1.0.0")])
}
