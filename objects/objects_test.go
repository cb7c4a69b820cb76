package objects_test

import (
	"testing"

	"github.com/chr33s/git/objects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeEncodeDecodeRoundTrip(t *testing.T) {
	tree := &objects.Tree{
		Entries: []objects.TreeEntry{
			{Mode: objects.ModeFile, Name: "b.txt", OID: objects.EmptyBlobOID},
			{Mode: objects.ModeDir, Name: "a-dir", OID: objects.EmptyTreeOID},
			{Mode: objects.ModeExecutable, Name: "run.sh", OID: objects.EmptyBlobOID},
		},
	}
	tree.Sort()

	encoded, err := tree.Encode()
	require.NoError(t, err)

	decoded, err := objects.DecodeTree(encoded)
	require.NoError(t, err)
	require.Len(t, decoded.Entries, 3)

	// Tree entries are sorted byte-wise by name.
	assert.Equal(t, "a-dir", decoded.Entries[0].Name)
	assert.Equal(t, objects.ModeDir, decoded.Entries[0].Mode)
}

func TestCommitEncodeDecodeRoundTrip(t *testing.T) {
	author := objects.Signature{Name: "Ada Lovelace", Email: "ada@example.com", When: 1700000000, TZ: "+0000"}
	c := &objects.Commit{
		Tree:      objects.EmptyTreeOID,
		Parents:   []objects.OID{objects.EmptyBlobOID},
		Author:    author,
		Committer: author,
		Message:   "initial commit\n",
	}

	decoded, err := objects.DecodeCommit(c.Encode())
	require.NoError(t, err)
	assert.Equal(t, c.Tree, decoded.Tree)
	assert.Equal(t, c.Parents, decoded.Parents)
	assert.Equal(t, c.Author, decoded.Author)
	assert.Equal(t, c.Message, decoded.Message)
}

func TestTagEncodeDecodeRoundTrip(t *testing.T) {
	tagger := objects.Signature{Name: "Ada Lovelace", Email: "ada@example.com", When: 1700000000, TZ: "+0000"}
	tag := &objects.Tag{
		Object:  objects.EmptyTreeOID,
		Type:    objects.TreeKind,
		Name:    "v1.0.0",
		Tagger:  tagger,
		Message: "release\n",
	}

	decoded, err := objects.DecodeTag(tag.Encode())
	require.NoError(t, err)
	assert.Equal(t, tag.Object, decoded.Object)
	assert.Equal(t, tag.Type, decoded.Type)
	assert.Equal(t, tag.Name, decoded.Name)
}

func TestEmptyOIDConstants(t *testing.T) {
	assert.True(t, objects.EmptyBlobOID.Valid())
	assert.True(t, objects.EmptyTreeOID.Valid())
	assert.NotEqual(t, objects.EmptyBlobOID, objects.EmptyTreeOID)
}

func TestParseKindRoundTrip(t *testing.T) {
	for _, k := range []objects.Kind{objects.BlobKind, objects.TreeKind, objects.CommitKind, objects.TagKind} {
		parsed, err := objects.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := objects.ParseKind("bogus")
	assert.Error(t, err)
}
