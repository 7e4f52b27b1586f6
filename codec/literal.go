// File: codec/literal.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package codec

import "bytes"

// QueryTimeOrder is the only command the time protocol recognises.
const QueryTimeOrder = "QUERY TIME ORDER"

// LiteralDecoder recognises one fixed command, case-insensitively.
//
// The command counts only when it is followed by whitespace or by nothing yet
// read; "QUERY TIME ORDERS" is unrecognised as a whole. Input that can no longer
// become the command is emitted as an unrecognised message: up to the next LF if there is one, otherwise everything buffered.
// A proper prefix of the command is held back until more bytes arrive.
type LiteralDecoder struct {
	literal []byte
}

// NewLiteralDecoder builds a decoder for the given command.
func NewLiteralDecoder(literal string) *LiteralDecoder {
	return &LiteralDecoder{literal: []byte(literal)}
}

// Decode implements Decoder.
func (d *LiteralDecoder) Decode(b *Buffer) ([]byte, bool, error) {
	skipSpace(b)
	data := b.Peek()
	if len(data) == 0 {
		// whitespace only; consumed
		return nil, true, nil
	}

	n := len(d.literal)
	if len(data) >= n && bytes.EqualFold(data[:n], d.literal) &&
		(len(data) == n || isSpace(data[n])) {
		return b.Next(n), true, nil
	}
	if len(data) < n && bytes.EqualFold(data, d.literal[:len(data)]) {
		return nil, false, nil
	}

	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line := b.Next(i + 1)
		return bytes.TrimRight(line, "\r\n"), true, nil
	}
	return b.Next(len(data)), true, nil
}

func skipSpace(b *Buffer) {
	data := b.Peek()
	i := 0
	for i < len(data) && isSpace(data[i]) {
		i++
	}
	b.Advance(i)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
