// File: server/run.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"strconv"
	"time"
)

// Run starts the server and blocks until ctx is cancelled or the reactor stops
// on its own. It then shuts down within ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		s.log.Info("shutdown requested")
	case <-s.reactor.Done():
		s.log.WithError(s.reactor.Err()).Warn("reactor exited")
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(sctx); err != nil {
		return err
	}
	return s.reactor.Err()
}

// ParsePort returns the port in arg, or DefaultPort when arg is empty or not a
// valid TCP port.
func ParsePort(arg string) int {
	p, err := strconv.Atoi(arg)
	if err != nil || p <= 0 || p > 65535 {
		return DefaultPort
	}
	return p
}
