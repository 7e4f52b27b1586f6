// File: reactor/endpoint.go
// Author: momentics <momentics@gmail.com>

package reactor

import "net"

// endpoint is the non-blocking socket surface a Connection drives.
type endpoint interface {
	Fd() int
	// Read returns (0, nil) when no data is available and io.EOF once the peer
	// has closed its side.
	Read(p []byte) (int, error)
	// Write returns the bytes accepted by the kernel; (0, nil) means it would block.
	Write(p []byte) (int, error)
	Close() error
	RemoteAddr() string
}

// listener is the non-blocking listening socket.
type listener interface {
	Fd() int
	// Accept returns (nil, nil) when no connection is pending.
	Accept() (endpoint, error)
	Addr() net.Addr
	Close() error
}
