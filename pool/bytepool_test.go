package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytePool_GetPut(t *testing.T) {
	p := NewBytePool(64)
	b := p.GetBuffer()
	assert.Len(t, b, 64)

	p.PutBuffer(b[:10])
	again := p.GetBuffer()
	assert.Len(t, again, 64)

	st := p.Stats()
	assert.Equal(t, int64(2), st["gets"])
	assert.Equal(t, int64(1), st["puts"])
}

func TestBytePool_ForeignSlabDropped(t *testing.T) {
	p := NewBytePool(64)
	p.PutBuffer(make([]byte, 32))
	assert.Equal(t, int64(0), p.Stats()["puts"])
}

func TestBytePool_DefaultSize(t *testing.T) {
	assert.Equal(t, DefaultSlabSize, NewBytePool(0).Size())
}
