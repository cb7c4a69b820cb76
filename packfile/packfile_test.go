package packfile_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/chr33s/git/objects"
	"github.com/chr33s/git/odb"
	"github.com/chr33s/git/packfile"
	"github.com/chr33s/git/storage/memory"
	"github.com/stretchr/testify/require"
)

func TestWriteParseRoundTripLiteralEntries(t *testing.T) {
	src := odb.New(memory.New())
	blobOID, err := src.Write(objects.BlobKind, []byte("hello world\n"))
	require.NoError(t, err)
	otherOID, err := src.Write(objects.BlobKind, []byte("a second blob\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, packfile.Write(&buf, src, []objects.OID{blobOID, otherOID}))

	dst := odb.New(memory.New())
	parser := packfile.NewParser(dst)
	result, err := parser.Parse(context.Background(), buf.Bytes())
	require.NoError(t, err)
	require.True(t, result.ChecksumValid)
	require.Equal(t, 2, result.ObjectCount)

	kind, data, err := dst.Read(blobOID)
	require.NoError(t, err)
	require.Equal(t, objects.BlobKind, kind)
	require.Equal(t, []byte("hello world\n"), data)

	_, data, err = dst.Read(otherOID)
	require.NoError(t, err)
	require.Equal(t, []byte("a second blob\n"), data)
}

func TestParseRejectsBadSignature(t *testing.T) {
	dst := odb.New(memory.New())
	parser := packfile.NewParser(dst)
	_, err := parser.Parse(context.Background(), bytes.Repeat([]byte{0}, 32))
	require.ErrorIs(t, err, packfile.ErrBadSignature)
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	src := odb.New(memory.New())
	blobOID, err := src.Write(objects.BlobKind, []byte("x"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, packfile.Write(&buf, src, []objects.OID{blobOID}))

	corrupted := append([]byte(nil), buf.Bytes()...)
	corrupted[7] = 9 // mangle the version word (big-endian uint32 at [4:8])

	dst := odb.New(memory.New())
	parser := packfile.NewParser(dst)
	_, err = parser.Parse(context.Background(), corrupted)
	require.ErrorIs(t, err, packfile.ErrUnsupportedVer)
}

func TestParseDetectsChecksumMismatchButStillResolves(t *testing.T) {
	src := odb.New(memory.New())
	blobOID, err := src.Write(objects.BlobKind, []byte("hello\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, packfile.Write(&buf, src, []objects.OID{blobOID}))

	corrupted := append([]byte(nil), buf.Bytes()...)
	corrupted[len(corrupted)-1] ^= 0xFF

	dst := odb.New(memory.New())
	parser := packfile.NewParser(dst)
	result, err := parser.Parse(context.Background(), corrupted)
	require.NoError(t, err)
	require.False(t, result.ChecksumValid)
	require.Equal(t, 1, result.ObjectCount)
}

func TestParseRejectsTruncatedData(t *testing.T) {
	dst := odb.New(memory.New())
	parser := packfile.NewParser(dst)
	_, err := parser.Parse(context.Background(), []byte("PACK"))
	require.ErrorIs(t, err, packfile.ErrMalformed)
}

func TestWriteParseRoundTripCommitAndTree(t *testing.T) {
	src := odb.New(memory.New())
	blobOID, err := src.Write(objects.BlobKind, []byte("contents\n"))
	require.NoError(t, err)
	tree := objects.Tree{Entries: []objects.TreeEntry{{Name: "file.txt", Mode: objects.ModeFile, OID: blobOID}}}
	treePayload, err := tree.Encode()
	require.NoError(t, err)
	treeOID, err := src.Write(objects.TreeKind, treePayload)
	require.NoError(t, err)
	sig := objects.Signature{Name: "Ada", Email: "ada@example.com", When: 1700000000, TZ: "+0000"}
	commit := objects.Commit{Tree: treeOID, Author: sig, Committer: sig, Message: "initial\n"}
	commitOID, err := src.Write(objects.CommitKind, commit.Encode())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, packfile.Write(&buf, src, []objects.OID{blobOID, treeOID, commitOID}))

	dst := odb.New(memory.New())
	parser := packfile.NewParser(dst)
	result, err := parser.Parse(context.Background(), buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 3, result.ObjectCount)

	kind, _, err := dst.Read(commitOID)
	require.NoError(t, err)
	require.Equal(t, objects.CommitKind, kind)
}
