// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import (
	"sync"
	"sync/atomic"
)

// BytePool hands out fixed-size byte slabs and takes them back when a
// connection is torn down.
type BytePool struct {
	size  int
	slabs sync.Pool

	gets   atomic.Int64
	puts   atomic.Int64
	allocs atomic.Int64
}

// NewBytePool returns a pool of slabs of exactly size bytes.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = DefaultSlabSize
	}
	p := &BytePool{size: size}
	p.slabs.New = func() any {
		p.allocs.Add(1)
		b := make([]byte, p.size)
		return &b
	}
	return p
}

// Size returns the slab size.
func (p *BytePool) Size() int { return p.size }

// GetBuffer returns a slab of Size() bytes. Its contents are unspecified.
func (p *BytePool) GetBuffer() []byte {
	p.gets.Add(1)
	return *(p.slabs.Get().(*[]byte))
}

// PutBuffer returns a slab to the pool. Slabs of a foreign size are dropped.
func (p *BytePool) PutBuffer(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	p.puts.Add(1)
	buf = buf[:p.size]
	p.slabs.Put(&buf)
}

// Stats reports pool usage counters.
func (p *BytePool) Stats() map[string]int64 {
	return map[string]int64{
		"gets":   p.gets.Load(),
		"puts":   p.puts.Load(),
		"allocs": p.allocs.Load(),
	}
}
