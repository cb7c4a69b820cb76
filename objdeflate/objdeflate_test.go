package objdeflate_test

import (
	"bytes"
	"testing"

	"github.com/chr33s/git/objdeflate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	original := []byte("blob 13\x00hello world\n")
	compressed, err := objdeflate.Compress(original)
	require.NoError(t, err)

	decompressed, err := objdeflate.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, original, decompressed)
}

func TestNewReaderStreamsCompressedData(t *testing.T) {
	original := []byte("streamed content\n")
	compressed, err := objdeflate.Compress(original)
	require.NoError(t, err)

	r, err := objdeflate.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	defer r.Close()

	got := make([]byte, len(original))
	_, err = r.Read(got)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestDecompressRejectsGarbage(t *testing.T) {
	_, err := objdeflate.Decompress([]byte("not zlib data"))
	assert.Error(t, err)
}
