// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor configuration and saturation policies.

package concurrency

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// RejectPolicy decides what Execute does when the queue is full and the pool is at
// its maximum size.
type RejectPolicy int

const (
	// Abort returns ErrRejected to the submitter.
	Abort RejectPolicy = iota
	// CallerRuns runs the task on the submitting goroutine.
	CallerRuns
	// Block waits until the queue has room or the executor shuts down.
	Block
)

func (p RejectPolicy) String() string {
	switch p {
	case Abort:
		return "abort"
	case CallerRuns:
		return "caller-runs"
	case Block:
		return "block"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a policy name (as printed by String) back to its value.
func ParsePolicy(s string) (RejectPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "abort", "reject", "":
		return Abort, nil
	case "caller-runs", "callerruns", "caller":
		return CallerRuns, nil
	case "block":
		return Block, nil
	}
	return Abort, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Config sizes an Executor.
type Config struct {
	CoreWorkers   int           // workers kept alive while idle
	MaxWorkers    int           // hard ceiling on live workers
	QueueCapacity int           // bounded FIFO length, 0 = direct hand-off only
	KeepAlive     time.Duration // idle time after which non-core workers exit
	Policy        RejectPolicy
	Logger        logrus.FieldLogger
}

// DefaultConfig mirrors the sizing of the classic time server handler pool.
func DefaultConfig() Config {
	core := runtime.NumCPU()
	return Config{
		CoreWorkers:   core,
		MaxWorkers:    core * 2,
		QueueCapacity: 1000,
		KeepAlive:     120 * time.Second,
		Policy:        Abort,
	}
}

func (c *Config) validate() error {
	if c.CoreWorkers < 0 || c.MaxWorkers <= 0 || c.MaxWorkers < c.CoreWorkers {
		return fmt.Errorf("%w: core=%d max=%d", ErrInvalidWorkerCount, c.CoreWorkers, c.MaxWorkers)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQueueCapacity, c.QueueCapacity)
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = 120 * time.Second
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return nil
}
