package varint_test

import (
	"bytes"
	"testing"

	"github.com/chr33s/git/varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 16384, 1 << 40, ^uint64(0)}
	for _, v := range values {
		encoded := varint.Write(nil, v)
		decoded, n, err := varint.Read(encoded)
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
		assert.Equal(t, len(encoded), n)
	}
}

func TestReadTruncatedReturnsUnexpectedEOF(t *testing.T) {
	encoded := varint.Write(nil, 1<<20)
	_, _, err := varint.Read(encoded[:len(encoded)-1])
	assert.Error(t, err)
}

func TestReadFromMatchesRead(t *testing.T) {
	encoded := varint.Write(nil, 987654321)
	v, err := varint.ReadFrom(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, uint64(987654321), v)
}
