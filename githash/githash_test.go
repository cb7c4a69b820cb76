package githash_test

import (
	"testing"

	"github.com/chr33s/git/githash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumIsDeterministicAndHexEncoded(t *testing.T) {
	sum := githash.Sum([]byte("blob 5\x00hello"))
	assert.Len(t, sum, githash.HexSize)
	assert.True(t, githash.Valid(sum))
}

func TestHexToBytesAndBack(t *testing.T) {
	sum := githash.Sum([]byte("some content"))
	raw, err := githash.HexToBytes(sum)
	require.NoError(t, err)
	assert.Equal(t, githash.Size, len(raw))
	assert.Equal(t, sum, githash.BytesToHex(raw))
}

func TestHexToBytesRejectsWrongLength(t *testing.T) {
	_, err := githash.HexToBytes("deadbeef")
	assert.Error(t, err)
}

func TestValidRejectsNonHex(t *testing.T) {
	assert.False(t, githash.Valid("not-a-valid-oid-at-all-zzzzzzzzzzzzzzzzz"))
}

func TestZeroOIDIsAllZeroes(t *testing.T) {
	assert.True(t, githash.Valid(githash.ZeroOID))
	raw, err := githash.HexToBytes(githash.ZeroOID)
	require.NoError(t, err)
	for _, b := range raw {
		assert.Equal(t, byte(0), b)
	}
}
