// File: reactor/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"time"

	"github.com/momentics/hioload-reactor/codec"
	"github.com/momentics/hioload-reactor/control"
	"github.com/momentics/hioload-reactor/pool"
	"github.com/sirupsen/logrus"
)

// Config holds the reactor parameters.
type Config struct {
	Addr              string        // TCP bind address, e.g. ":8080"
	Backlog           int           // listen backlog
	ReadBufferSize    int           // per-connection read buffer capacity
	PollTimeout       time.Duration // upper bound of one multiplexer wait
	MaxEvents         int           // readiness events handled per wait
	MaxConnections    int           // 0 = unlimited
	MaxPendingWrite   int           // per-connection unsent response bytes
	MaxQueuedRequests int           // per-connection decoded requests awaiting a worker
	PinCPU            bool          // bind the loop thread to CPU
	CPU               int
}

// DefaultConfig returns the defaults of the time server.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		Backlog:           1024,
		ReadBufferSize:    pool.DefaultSlabSize,
		PollTimeout:       time.Second,
		MaxEvents:         128,
		MaxPendingWrite:   64 * 1024,
		MaxQueuedRequests: 1024,
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.Backlog <= 0 {
		c.Backlog = d.Backlog
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = d.PollTimeout
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = d.MaxEvents
	}
	if c.MaxPendingWrite <= 0 {
		c.MaxPendingWrite = d.MaxPendingWrite
	}
	if c.MaxQueuedRequests <= 0 {
		c.MaxQueuedRequests = d.MaxQueuedRequests
	}
}

// Option customizes a Reactor.
type Option func(*Reactor)

// WithDecoder replaces the default QUERY TIME ORDER decoder.
func WithDecoder(dec codec.Decoder) Option {
	return func(r *Reactor) {
		r.decoder = dec
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Reactor) {
		r.log = l
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *control.Metrics) Option {
	return func(r *Reactor) {
		r.metrics = m
	}
}

// WithBufferPool shares a slab pool between reactors.
func WithBufferPool(p *pool.BytePool) Option {
	return func(r *Reactor) {
		r.bufs = p
	}
}

// WithPoller overrides the multiplexer factory.
func WithPoller(newPoller func() (Poller, error)) Option {
	return func(r *Reactor) {
		r.newPoller = newPoller
	}
}
