//go:build !linux
// +build !linux

// File: reactor/socket_stub.go
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-reactor/api"
)

func listenTCP(addr string, backlog int) (listener, error) {
	return nil, fmt.Errorf("reactor: listen %s: %w", addr, api.ErrNotSupported)
}
