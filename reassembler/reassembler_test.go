package reassembler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kpchow/mintcp/bytestream"
)

func TestPushInOrder(t *testing.T) {
	out := bytestream.New(100)
	r := New(100, out)

	r.Push([]byte("abc"), 0, false)
	assert.Equal(t, []byte("abc"), out.Read(100))
	assert.True(t, r.Empty())
}

func TestPushOutOfOrderThenFillsGap(t *testing.T) {
	out := bytestream.New(100)
	r := New(100, out)

	r.Push([]byte("cd"), 2, false)
	assert.Equal(t, 0, out.BufferSize(), "nothing assembled yet, there's a gap")
	assert.Equal(t, 2, r.UnassembledBytes())

	r.Push([]byte("ab"), 0, false)
	assert.Equal(t, []byte("abcd"), out.Read(100))
	assert.True(t, r.Empty())
}

func TestOverlappingFragmentsMerge(t *testing.T) {
	out := bytestream.New(100)
	r := New(100, out)

	r.Push([]byte("bcd"), 1, false)
	r.Push([]byte("abcdef"), 0, false)
	assert.Equal(t, []byte("abcdef"), out.Read(100))
}

func TestDuplicateSubstringIsDropped(t *testing.T) {
	out := bytestream.New(100)
	r := New(100, out)

	r.Push([]byte("ab"), 0, false)
	out.Read(100)
	r.Push([]byte("ab"), 0, false)
	assert.Equal(t, 0, out.BufferSize())
	assert.True(t, r.Empty())
}

func TestEOFTriggeredOnlyAfterFullAssembly(t *testing.T) {
	out := bytestream.New(100)
	r := New(100, out)

	r.Push([]byte("cd"), 2, true)
	assert.False(t, out.InputEnded(), "tail is pending, not yet contiguous")

	r.Push([]byte("ab"), 0, false)
	assert.True(t, out.InputEnded())
}

func TestCapacityBoundedFragmentIsTrimmedNotRejectedWhenPartlyFits(t *testing.T) {
	out := bytestream.New(2)
	r := New(2, out)

	r.Push([]byte("abcd"), 0, false)
	assert.Equal(t, []byte("ab"), out.Read(2))
}

func TestFragmentEntirelyBeyondCapacityIsDiscarded(t *testing.T) {
	out := bytestream.New(2)
	r := New(2, out)

	r.Push([]byte("xy"), 5, false)
	assert.Equal(t, 0, r.UnassembledBytes())
	assert.True(t, r.Empty())
}
