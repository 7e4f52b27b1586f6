package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_FillFlipDrain(t *testing.T) {
	b := NewBuffer(8)
	require.Equal(t, 8, b.Cap())
	require.Equal(t, 0, b.Position())

	n := copy(b.Free(), "abc")
	b.Advance(n)
	assert.Equal(t, 3, b.Position())
	assert.Equal(t, []byte("abc"), b.Pending())

	b.Flip()
	assert.Equal(t, 0, b.Position())
	assert.Equal(t, 3, b.Limit())
	assert.Equal(t, []byte("ab"), b.Next(2))
	assert.Equal(t, 1, b.Remaining())
}

func TestBuffer_MarkReset(t *testing.T) {
	b := NewBuffer(8)
	b.Write([]byte("hello"))
	b.Flip()

	b.Next(1)
	b.Mark()
	b.Next(3)
	b.Reset()
	assert.Equal(t, 1, b.Position())
	assert.Equal(t, []byte("ello"), b.Peek())
}

func TestBuffer_ResetWithoutMark(t *testing.T) {
	b := NewBuffer(4)
	b.Write([]byte("ab"))
	b.Flip()
	b.Next(1)
	b.Reset()
	assert.Equal(t, 1, b.Position())
}

func TestBuffer_ClearAndCompact(t *testing.T) {
	b := NewBuffer(8)
	b.Write([]byte("abcdef"))
	b.Flip()
	b.Next(4)

	b.Compact()
	assert.Equal(t, 2, b.Position())
	assert.Equal(t, 8, b.Limit())
	assert.Equal(t, []byte("ef"), b.Pending())

	b.Clear()
	assert.Equal(t, 0, b.Position())
	assert.Len(t, b.Free(), 8)
}

func TestBuffer_WriteAndAdvanceClamp(t *testing.T) {
	b := NewBuffer(4)
	assert.Equal(t, 4, b.Write([]byte("abcdef")))
	assert.True(t, b.Full())
	b.Clear()
	b.Advance(10)
	assert.Equal(t, 4, b.Position())
	b.Advance(-1)
	assert.Equal(t, 4, b.Position())
}

func TestWrap_UsesFullCapacity(t *testing.T) {
	slab := make([]byte, 0, 16)
	b := Wrap(slab)
	assert.Equal(t, 16, b.Cap())
	assert.Equal(t, 0, b.Position())
}
