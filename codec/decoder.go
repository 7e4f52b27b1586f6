// File: codec/decoder.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package codec

// Decoder extracts at most one message from the readable region of b.
//
// It returns ok=false when the bytes do not yet form a complete message; the
// position it leaves behind is then discarded. A non-nil error is a protocol
// violation and aborts the connection.
type Decoder interface {
	Decode(b *Buffer) (msg []byte, ok bool, err error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(b *Buffer) ([]byte, bool, error)

// Decode calls f(b).
func (f DecoderFunc) Decode(b *Buffer) ([]byte, bool, error) { return f(b) }

// DecodeStream drains every complete message from a fill-mode buffer.
//
// Messages are returned in arrival order and are copies, independent of the
// buffer. On return the buffer is back in fill mode: cleared when everything was
// consumed, otherwise compacted with the unconsumed tail at offset zero. On error
// the messages decoded before it are still returned.
func DecodeStream(b *Buffer, dec Decoder) ([][]byte, error) {
	var batch [][]byte
	b.Flip()
	for b.HasRemaining() {
		b.Mark()
		start := b.Position()
		msg, ok, err := dec.Decode(b)
		if err != nil {
			b.Reset()
			b.Compact()
			return batch, err
		}
		if !ok {
			b.Reset()
			break
		}
		if msg != nil {
			batch = append(batch, append([]byte(nil), msg...))
		}
		if b.Position() == start {
			// success without progress would spin forever
			break
		}
	}
	if !b.HasRemaining() {
		b.Clear()
	} else {
		b.Compact()
	}
	return batch, nil
}
