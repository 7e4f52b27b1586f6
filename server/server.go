package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/codec"
	"github.com/momentics/hioload-reactor/control"
	"github.com/momentics/hioload-reactor/internal/concurrency"
	"github.com/momentics/hioload-reactor/pool"
	"github.com/momentics/hioload-reactor/reactor"
	"github.com/sirupsen/logrus"
)

// Runtime-tunable configuration keys.
const (
	KeyMaxWorkers = "pool.max_workers"
	KeyKeepAlive  = "pool.keep_alive"
)

// Server is the high-level facade wiring the worker pool, the reactor and the
// control plane.
type Server struct {
	cfg     *Config
	log     logrus.FieldLogger
	handler api.Handler
	decoder codec.Decoder
	now     func() time.Time

	control *control.Control
	metrics *control.Metrics
	exec    *concurrency.Executor
	bufs    *pool.BytePool
	reactor *reactor.Reactor
}

var _ api.GracefulShutdown = (*Server)(nil)

// NewServer builds the Server facade. Nothing is bound until Start.
func NewServer(cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{cfg: cfg, log: logrus.StandardLogger()}
	for _, o := range opts {
		o(s)
	}
	if s.handler == nil {
		s.handler = NewTimeOrderHandler(s.now)
	}
	if s.metrics == nil {
		s.metrics = control.NewMetrics(cfg.MetricsNamespace)
	}

	exec, err := concurrency.NewExecutor(concurrency.Config{
		CoreWorkers:   cfg.CoreWorkers,
		MaxWorkers:    cfg.MaxWorkers,
		QueueCapacity: cfg.QueueCapacity,
		KeepAlive:     cfg.KeepAlive,
		Policy:        cfg.RejectPolicy,
		Logger:        s.log,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: worker pool: %w", api.ErrSetup, err)
	}
	s.exec = exec
	s.bufs = pool.NewBytePool(cfg.ReadBufferSize)

	ropts := []reactor.Option{
		reactor.WithLogger(s.log),
		reactor.WithMetrics(s.metrics),
		reactor.WithBufferPool(s.bufs),
	}
	if s.decoder != nil {
		ropts = append(ropts, reactor.WithDecoder(s.decoder))
	}
	s.reactor = reactor.New(cfg.reactorConfig(), exec, s.handler, ropts...)

	s.control = control.New()
	if err := s.initControl(); err != nil {
		return nil, fmt.Errorf("%w: control: %w", api.ErrSetup, err)
	}
	s.registerCollectors()
	return s, nil
}

func (s *Server) initControl() error {
	store := s.control.Config()
	store.Validate(KeyMaxWorkers, func(v any) error {
		n, ok := control.AsInt(v)
		if !ok {
			return fmt.Errorf("%w: want integer, got %T", api.ErrInvalidArgument, v)
		}
		if n < s.cfg.CoreWorkers || n <= 0 {
			return fmt.Errorf("%w: max workers %d below core %d", api.ErrInvalidArgument, n, s.cfg.CoreWorkers)
		}
		return nil
	})
	store.Validate(KeyKeepAlive, func(v any) error {
		d, ok := control.AsDuration(v)
		if !ok || d <= 0 {
			return fmt.Errorf("%w: keep-alive %v", api.ErrInvalidArgument, v)
		}
		return nil
	})
	if err := store.SetConfig(map[string]any{
		KeyMaxWorkers: s.cfg.MaxWorkers,
		KeyKeepAlive:  s.cfg.KeepAlive,
	}); err != nil {
		return err
	}
	store.OnReload(s.applyConfig)

	s.control.RegisterDebugHook("reactor.state", func() any { return s.reactor.State().String() })
	s.control.RegisterDebugHook("reactor.connections", func() any { return s.reactor.Connections() })
	s.control.RegisterDebugHook("pool.stats", func() any { return s.exec.Stats() })
	s.control.RegisterDebugHook("pool.buffers", func() any { return s.bufs.Stats() })
	return nil
}

// applyConfig pushes runtime-tunable keys into the worker pool.
func (s *Server) applyConfig() {
	store := s.control.Config()
	if n, ok := store.GetInt(KeyMaxWorkers); ok {
		if err := s.exec.SetMaxWorkers(n); err != nil {
			s.log.WithError(err).Warn("apply max workers")
		}
	}
	if d, ok := store.GetDuration(KeyKeepAlive); ok {
		s.exec.SetKeepAlive(d)
	}
	s.log.WithField("config", store.GetSnapshot()).Info("configuration reloaded")
}

func (s *Server) registerCollectors() {
	stat := func(pick func(concurrency.Stats) float64) func() float64 {
		return func() float64 { return pick(s.exec.Stats()) }
	}
	s.metrics.GaugeFunc("pool", "workers", "Live worker goroutines.",
		stat(func(st concurrency.Stats) float64 { return float64(st.Workers) }))
	s.metrics.GaugeFunc("pool", "active_workers", "Workers currently running a task.",
		stat(func(st concurrency.Stats) float64 { return float64(st.Active) }))
	s.metrics.GaugeFunc("pool", "queued_tasks", "Tasks waiting in the pool queue.",
		stat(func(st concurrency.Stats) float64 { return float64(st.Queued) }))
	s.metrics.CounterFunc("pool", "tasks_completed_total", "Tasks finished by workers.",
		stat(func(st concurrency.Stats) float64 { return float64(st.Completed) }))
	s.metrics.CounterFunc("pool", "tasks_panicked_total", "Tasks that panicked.",
		stat(func(st concurrency.Stats) float64 { return float64(st.Panicked) }))
}

// Start binds the listener and launches the reactor.
func (s *Server) Start() error {
	if err := s.reactor.Start(); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"addr":        s.reactor.Addr().String(),
		"core":        s.cfg.CoreWorkers,
		"max":         s.cfg.MaxWorkers,
		"queue":       s.cfg.QueueCapacity,
		"reject":      s.cfg.RejectPolicy.String(),
		"buffer_size": s.cfg.ReadBufferSize,
	}).Info("time server listening")
	return nil
}

// Shutdown lets queued requests finish, then stops the reactor. The reactor
// keeps flushing responses while the pool drains.
func (s *Server) Shutdown(ctx context.Context) error {
	poolErr := s.exec.Shutdown(ctx)
	if poolErr != nil {
		dropped := s.exec.ShutdownNow()
		s.log.WithError(poolErr).WithField("dropped", len(dropped)).Warn("worker pool did not drain")
	}
	return errors.Join(poolErr, s.reactor.Stop())
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr { return s.reactor.Addr() }

// Done is closed once the reactor has stopped.
func (s *Server) Done() <-chan struct{} { return s.reactor.Done() }

// GetControl exposes runtime configuration and debug hooks.
func (s *Server) GetControl() api.Control { return s.control }

// Debug serves the debug state as JSON.
func (s *Server) Debug() *control.DebugHooks { return s.control.Debug() }

// Metrics returns the Prometheus collectors of this server.
func (s *Server) Metrics() *control.Metrics { return s.metrics }

// PoolStats reports the worker pool counters.
func (s *Server) PoolStats() concurrency.Stats { return s.exec.Stats() }
