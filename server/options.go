// File: server/options.go
// Package server defines functional options for the Server facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"time"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/codec"
	"github.com/momentics/hioload-reactor/control"
	"github.com/sirupsen/logrus"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger sets the logger shared by the reactor and the worker pool.
func WithLogger(l logrus.FieldLogger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// WithHandler replaces the time handler.
func WithHandler(h api.Handler) ServerOption {
	return func(s *Server) {
		s.handler = h
	}
}

// WithClock overrides the time source of the default handler.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = now
	}
}

// WithMetrics registers collectors on m instead of a private registry.
func WithMetrics(m *control.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithDecoder overrides the request framing.
func WithDecoder(dec codec.Decoder) ServerOption {
	return func(s *Server) {
		s.decoder = dec
	}
}
