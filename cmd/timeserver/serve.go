package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/momentics/hioload-reactor/internal/concurrency"
	"github.com/momentics/hioload-reactor/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const envPrefix = "TIMESERVER_"

type serveOptions struct {
	host            string
	port            int
	coreWorkers     int
	maxWorkers      int
	queueCapacity   int
	keepAlive       time.Duration
	reject          string
	maxConns        int
	reactorCPU      int
	bufferSize      int
	pollTimeout     time.Duration
	shutdownTimeout time.Duration
	metricsAddr     string
}

func defaultServeOptions() *serveOptions {
	d := server.DefaultConfig()
	return &serveOptions{
		port:            server.DefaultPort,
		coreWorkers:     d.CoreWorkers,
		maxWorkers:      d.MaxWorkers,
		queueCapacity:   d.QueueCapacity,
		keepAlive:       d.KeepAlive,
		reject:          d.RejectPolicy.String(),
		bufferSize:      d.ReadBufferSize,
		reactorCPU:      -1,
		pollTimeout:     d.PollTimeout,
		shutdownTimeout: d.ShutdownTimeout,
	}
}

func (o *serveOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.host, "host", o.host, "Bind address, empty for all interfaces")
	f.IntVarP(&o.port, "port", "p", o.port, "TCP port")
	f.IntVar(&o.coreWorkers, "workers", o.coreWorkers, "Core worker goroutines")
	f.IntVar(&o.maxWorkers, "max-workers", o.maxWorkers, "Maximum worker goroutines")
	f.IntVar(&o.queueCapacity, "queue", o.queueCapacity, "Worker queue capacity")
	f.DurationVar(&o.keepAlive, "keep-alive", o.keepAlive, "Idle time before extra workers exit")
	f.StringVar(&o.reject, "reject", o.reject, "Saturation policy: abort, caller-runs or block")
	f.IntVar(&o.maxConns, "max-conns", o.maxConns, "Connection limit, 0 for none")
	f.IntVar(&o.reactorCPU, "reactor-cpu", o.reactorCPU, "Pin the reactor thread to this CPU, -1 to disable")
	f.IntVar(&o.bufferSize, "buffer-size", o.bufferSize, "Per-connection read buffer in bytes")
	f.DurationVar(&o.pollTimeout, "poll-timeout", o.pollTimeout, "Reactor wait bound")
	f.DurationVar(&o.shutdownTimeout, "shutdown-timeout", o.shutdownTimeout, "Graceful shutdown bound")
	f.StringVar(&o.metricsAddr, "metrics-addr", o.metricsAddr, "Serve /metrics and /debug/state on this address")
}

// applyEnv fills options whose flag was not set from TIMESERVER_* variables.
func (o *serveOptions) applyEnv(cmd *cobra.Command, lookup func(string) (string, bool)) error {
	if v, ok := lookup(envPrefix + "HOST"); ok && !cmd.Flags().Changed("host") {
		o.host = v
	}
	if v, ok := lookup(envPrefix + "PORT"); ok && !cmd.Flags().Changed("port") {
		o.port = server.ParsePort(v)
	}
	if v, ok := lookup(envPrefix + "METRICS_ADDR"); ok && !cmd.Flags().Changed("metrics-addr") {
		o.metricsAddr = v
	}
	if v, ok := lookup(envPrefix + "WORKERS"); ok && !cmd.Flags().Changed("workers") {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		o.coreWorkers = n
	}
	return nil
}

func (o *serveOptions) config() (*server.Config, error) {
	policy, err := concurrency.ParsePolicy(o.reject)
	if err != nil {
		return nil, err
	}
	cfg := server.DefaultConfig()
	cfg.ListenAddr = net.JoinHostPort(o.host, strconv.Itoa(o.port))
	cfg.CoreWorkers = o.coreWorkers
	cfg.MaxWorkers = o.maxWorkers
	if cfg.MaxWorkers < cfg.CoreWorkers {
		cfg.MaxWorkers = cfg.CoreWorkers
	}
	cfg.QueueCapacity = o.queueCapacity
	cfg.KeepAlive = o.keepAlive
	cfg.RejectPolicy = policy
	cfg.MaxConnections = o.maxConns
	cfg.ReadBufferSize = o.bufferSize
	if o.reactorCPU >= 0 {
		cfg.PinReactor = true
		cfg.ReactorCPU = o.reactorCPU
	}
	cfg.PollTimeout = o.pollTimeout
	cfg.ShutdownTimeout = o.shutdownTimeout
	return cfg, nil
}

func serveCmd(logOpts *logOptions) *cobra.Command {
	opts := defaultServeOptions()
	cmd := &cobra.Command{
		Use:   "serve [port]",
		Short: "Run the time server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, logOpts, opts, args)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, logOpts *logOptions, opts *serveOptions, args []string) error {
	log, err := logOpts.logger()
	if err != nil {
		return err
	}
	if err := opts.applyEnv(cmd, os.LookupEnv); err != nil {
		return err
	}
	if len(args) == 1 {
		// a bad positional port falls back to the default
		opts.port = server.ParsePort(args[0])
	}
	cfg, err := opts.config()
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg, server.WithLogger(log))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.metricsAddr != "" {
		ms := startMetrics(opts.metricsAddr, srv, log)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = ms.Shutdown(sctx)
		}()
	}
	return srv.Run(ctx)
}

func startMetrics(addr string, srv *server.Server, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", srv.Metrics().Handler())
	mux.Handle("/debug/state", srv.Debug())
	hs := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	log.WithField("addr", addr).Info("metrics listening")
	return hs
}
