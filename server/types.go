package server

import (
	"runtime"
	"time"

	"github.com/momentics/hioload-reactor/internal/concurrency"
	"github.com/momentics/hioload-reactor/pool"
	"github.com/momentics/hioload-reactor/reactor"
)

// DefaultPort is used when no valid port is supplied.
const DefaultPort = 8080

// Config holds all server-side configuration parameters.
//
// The zero value of the reactor fields leaves the reactor thread unpinned;
// ReactorCPU is consulted only when PinReactor is set.
type Config struct {
	ListenAddr        string        // TCP bind address, e.g. ":8080"
	Backlog           int           // listen backlog
	ReadBufferSize    int           // per-connection read buffer
	PollTimeout       time.Duration // reactor wait bound, also the worst-case stop latency
	MaxConnections    int           // 0 = unlimited
	MaxPendingWrite   int           // unsent response bytes per connection
	MaxQueuedRequests int           // decoded requests per connection awaiting a worker
	PinReactor        bool          // lock the reactor thread to ReactorCPU
	ReactorCPU        int

	CoreWorkers   int
	MaxWorkers    int
	QueueCapacity int
	KeepAlive     time.Duration // idle time before non-core workers exit
	RejectPolicy  concurrency.RejectPolicy

	ShutdownTimeout  time.Duration // graceful shutdown bound used by Run
	MetricsNamespace string
}

// DefaultConfig returns the time server defaults.
func DefaultConfig() *Config {
	core := runtime.NumCPU()
	return &Config{
		ListenAddr:        ":8080",
		Backlog:           1024,
		ReadBufferSize:    pool.DefaultSlabSize,
		PollTimeout:       time.Second,
		MaxPendingWrite:   64 * 1024,
		MaxQueuedRequests: 1024,
		CoreWorkers:       core,
		MaxWorkers:        core * 2,
		QueueCapacity:     1000,
		KeepAlive:         120 * time.Second,
		RejectPolicy:      concurrency.Abort,
		ShutdownTimeout:   10 * time.Second,
		MetricsNamespace:  "timeserver",
	}
}

func (c *Config) reactorConfig() reactor.Config {
	return reactor.Config{
		Addr:              c.ListenAddr,
		Backlog:           c.Backlog,
		ReadBufferSize:    c.ReadBufferSize,
		PollTimeout:       c.PollTimeout,
		MaxConnections:    c.MaxConnections,
		MaxPendingWrite:   c.MaxPendingWrite,
		MaxQueuedRequests: c.MaxQueuedRequests,
		PinCPU:            c.PinReactor,
		CPU:               c.ReactorCPU,
	}
}
