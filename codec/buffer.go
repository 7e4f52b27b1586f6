// File: codec/buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package codec

// Buffer is a fixed-capacity byte cursor with ByteBuffer-like semantics.
//
// In fill mode [0, pos) holds pending bytes and [pos, cap) is free.
// After Flip, [pos, lim) is the readable region.
// The zero value is unusable; construct with NewBuffer or Wrap.
type Buffer struct {
	buf  []byte
	pos  int
	lim  int
	mark int
}

// NewBuffer allocates a buffer of the given capacity in fill mode.
func NewBuffer(capacity int) *Buffer {
	return Wrap(make([]byte, capacity))
}

// Wrap uses b as backing storage, discarding its contents.
func Wrap(b []byte) *Buffer {
	b = b[:cap(b)]
	return &Buffer{buf: b, lim: len(b), mark: -1}
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.buf) }

// Position returns the cursor. In fill mode it is the next write offset.
func (b *Buffer) Position() int { return b.pos }

// Limit returns the end of the readable (or writable) region.
func (b *Buffer) Limit() int { return b.lim }

// Remaining is the number of bytes between position and limit.
func (b *Buffer) Remaining() int { return b.lim - b.pos }

// HasRemaining reports whether any byte lies between position and limit.
func (b *Buffer) HasRemaining() bool { return b.pos < b.lim }

// Free returns the writable tail in fill mode. Callers read into it and then Advance.
func (b *Buffer) Free() []byte { return b.buf[b.pos:b.lim] }

// Advance moves the position forward by n bytes, clamped to the limit.
func (b *Buffer) Advance(n int) {
	if n <= 0 {
		return
	}
	b.pos += n
	if b.pos > b.lim {
		b.pos = b.lim
	}
}

// Write copies p into the free region and returns how many bytes fit.
func (b *Buffer) Write(p []byte) int {
	n := copy(b.buf[b.pos:b.lim], p)
	b.pos += n
	return n
}

// Flip switches from fill mode to drain mode.
func (b *Buffer) Flip() {
	b.lim = b.pos
	b.pos = 0
	b.mark = -1
}

// Mark remembers the current position.
func (b *Buffer) Mark() { b.mark = b.pos }

// Reset rewinds to the marked position. Without a mark it is a no-op.
func (b *Buffer) Reset() {
	if b.mark >= 0 {
		b.pos = b.mark
	}
}

// Peek returns the readable region without consuming it. The slice aliases the buffer.
func (b *Buffer) Peek() []byte { return b.buf[b.pos:b.lim] }

// Next consumes and returns up to n readable bytes. The slice aliases the buffer.
func (b *Buffer) Next(n int) []byte {
	if n > b.Remaining() {
		n = b.Remaining()
	}
	p := b.buf[b.pos : b.pos+n]
	b.pos += n
	return p
}

// Clear returns the buffer to an empty fill mode.
func (b *Buffer) Clear() {
	b.pos = 0
	b.lim = len(b.buf)
	b.mark = -1
}

// Compact moves the unconsumed [pos, lim) bytes to the front and re-enters fill
// mode positioned right after them.
func (b *Buffer) Compact() {
	n := copy(b.buf, b.buf[b.pos:b.lim])
	b.pos = n
	b.lim = len(b.buf)
	b.mark = -1
}

// Pending returns the unconsumed bytes while in fill mode.
func (b *Buffer) Pending() []byte { return b.buf[:b.pos] }

// Full reports whether no free space is left in fill mode.
func (b *Buffer) Full() bool { return b.pos == len(b.buf) }

// Bytes exposes the backing slab, for returning it to a pool.
func (b *Buffer) Bytes() []byte { return b.buf }
