package memory_test

import (
	"testing"

	"github.com/chr33s/git/storage"
	"github.com/chr33s/git/storage/memory"
	"github.com/stretchr/testify/require"
)

func TestWriteReadDeleteRoundTrip(t *testing.T) {
	s := memory.New()
	require.NoError(t, s.WriteFile("a/b/c.txt", []byte("payload")))

	data, err := s.ReadFile("a/b/c.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)

	require.NoError(t, s.DeleteFile("a/b/c.txt"))
	_, err = s.ReadFile("a/b/c.txt")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExistsTreatsDescendantsAsPresent(t *testing.T) {
	s := memory.New()
	require.NoError(t, s.WriteFile("refs/heads/main", []byte("x")))

	exists, err := s.Exists("refs")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = s.Exists("refs/heads/main")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = s.Exists("refs/tags")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestListDirectoryReturnsImmediateChildrenOnly(t *testing.T) {
	s := memory.New()
	require.NoError(t, s.WriteFile("refs/heads/main", []byte("x")))
	require.NoError(t, s.WriteFile("refs/heads/feature", []byte("y")))
	require.NoError(t, s.WriteFile("refs/tags/v1", []byte("z")))

	children, err := s.ListDirectory("refs")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"heads", "tags"}, children)
}

func TestDeleteDirectoryRemovesAllDescendants(t *testing.T) {
	s := memory.New()
	require.NoError(t, s.WriteFile("refs/heads/main", []byte("x")))
	require.NoError(t, s.WriteFile("refs/heads/feature", []byte("y")))

	require.NoError(t, s.DeleteDirectory("refs"))

	exists, err := s.Exists("refs/heads/main")
	require.NoError(t, err)
	require.False(t, exists)
}
