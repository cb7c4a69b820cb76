package delta_test

import (
	"bytes"
	"testing"

	"github.com/chr33s/git/delta"
	"github.com/chr33s/git/objects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateApplyRoundTrip(t *testing.T) {
	cases := []struct {
		name           string
		source, target []byte
	}{
		{"identical", []byte("the quick brown fox jumps over the lazy dog"), []byte("the quick brown fox jumps over the lazy dog")},
		{"append", []byte("hello world"), []byte("hello world, and more besides")},
		{"prepend", []byte("world"), []byte("hello world")},
		{"interleaved", []byte("aaaabbbbccccdddd"), []byte("aaaaXXXXccccYYYYdddd")},
		{"empty source", []byte(""), []byte("brand new content")},
		{"empty target", []byte("old content"), []byte("")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := delta.Create(tc.source, tc.target)
			got, err := delta.Apply(tc.source, d)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tc.target, got), "roundtrip mismatch for %q", tc.name)
		})
	}
}

func TestApplyRejectsSourceSizeMismatch(t *testing.T) {
	d := delta.Create([]byte("source bytes"), []byte("target bytes"))
	_, err := delta.Apply([]byte("wrong length base"), d)
	assert.ErrorIs(t, err, delta.ErrCorrupt)
}

func TestApplyRejectsTruncatedCopyInstruction(t *testing.T) {
	base := []byte("the quick brown fox jumps over the lazy dog")
	var d []byte
	d = append(d, byte(len(base))) // source size varint (fits in one byte)
	d = append(d, 5)               // target size varint, value is irrelevant here
	d = append(d, 0x91)            // COPY opcode requesting an offset byte and a size byte...
	d = append(d, 0x00)            // ...but only the offset byte is present; size byte missing

	_, err := delta.Apply(base, d)
	assert.ErrorIs(t, err, delta.ErrCorrupt)
}

func TestShouldUseDelta(t *testing.T) {
	assert.True(t, delta.ShouldUseDelta(1000, 100))
	assert.False(t, delta.ShouldUseDelta(1000, 950))
}

func TestCacheFIFOEviction(t *testing.T) {
	c := delta.NewCache(2)
	c.Put(objects.OID("a"), delta.Entry{Data: []byte("1")})
	c.Put(objects.OID("b"), delta.Entry{Data: []byte("2")})
	c.Put(objects.OID("c"), delta.Entry{Data: []byte("3")}) // evicts "a"

	_, ok := c.Get(objects.OID("a"))
	assert.False(t, ok)
	v, ok := c.Get(objects.OID("b"))
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v.Data)
	v, ok = c.Get(objects.OID("c"))
	require.True(t, ok)
	assert.Equal(t, []byte("3"), v.Data)
}
