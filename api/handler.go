// File: api/handler.go
// Package api defines Handler interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Conn is the write side of a connection as seen from worker goroutines.
type Conn interface {
	// Write sends p to the peer. Safe to call from any goroutine.
	Write(p []byte) (int, error)
	ID() uint64
	RemoteAddr() string
}

// Message is one decoded request bound to the connection it must be answered on.
type Message struct {
	Body []byte
	Conn Conn
}

// Handler computes the response for a decoded message.
type Handler interface {
	Handle(msg Message) []byte
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(msg Message) []byte

// Handle calls f(msg).
func (f HandlerFunc) Handle(msg Message) []byte {
	return f(msg)
}
