package bytesutil_test

import (
	"testing"

	"github.com/chr33s/git/bytesutil"
	"github.com/stretchr/testify/assert"
)

func TestBuilderAccumulatesWritesInOrder(t *testing.T) {
	b := bytesutil.NewBuilder(8)
	b.WriteByte('a')
	b.Write([]byte("bc"))
	b.WriteByte('d')

	assert.Equal(t, []byte("abcd"), b.Bytes())
	assert.Equal(t, 4, b.Len())
}

func TestBuilderWithoutHintStillWorks(t *testing.T) {
	b := bytesutil.NewBuilder(0)
	b.Write([]byte("no hint"))
	assert.Equal(t, "no hint", string(b.Bytes()))
}
