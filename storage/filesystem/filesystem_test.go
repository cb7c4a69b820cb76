package filesystem_test

import (
	"testing"

	"github.com/chr33s/git/storage"
	"github.com/chr33s/git/storage/filesystem"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	s := filesystem.New(t.TempDir())
	require.NoError(t, s.WriteFile("objects/ab/cdef", []byte("payload")))

	data, err := s.ReadFile("objects/ab/cdef")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
}

func TestExistsReflectsPresence(t *testing.T) {
	s := filesystem.New(t.TempDir())
	exists, err := s.Exists("HEAD")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, s.WriteFile("HEAD", []byte("ref: refs/heads/main\n")))
	exists, err = s.Exists("HEAD")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestReadMissingFileReturnsNotFound(t *testing.T) {
	s := filesystem.New(t.TempDir())
	_, err := s.ReadFile("nope")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListDirectoryReturnsChildren(t *testing.T) {
	s := filesystem.New(t.TempDir())
	require.NoError(t, s.WriteFile("refs/heads/main", []byte("x")))
	require.NoError(t, s.WriteFile("refs/tags/v1", []byte("y")))

	children, err := s.ListDirectory("refs")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"heads", "tags"}, children)
}

func TestDeleteDirectoryRemovesAllDescendants(t *testing.T) {
	s := filesystem.New(t.TempDir())
	require.NoError(t, s.WriteFile("refs/heads/main", []byte("x")))
	require.NoError(t, s.WriteFile("refs/heads/feature", []byte("y")))

	require.NoError(t, s.DeleteDirectory("refs"))

	exists, err := s.Exists("refs/heads/main")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestInitChrootsToSubdirectory(t *testing.T) {
	s := filesystem.New(t.TempDir())
	require.NoError(t, s.Init("myrepo"))
	require.NoError(t, s.WriteFile("HEAD", []byte("ref: refs/heads/main\n")))

	data, err := s.ReadFile("HEAD")
	require.NoError(t, err)
	require.Equal(t, []byte("ref: refs/heads/main\n"), data)
}
