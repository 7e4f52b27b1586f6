// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "errors"

var (
	// ErrPoolClosed indicates the executor has been shut down
	ErrPoolClosed = errors.New("executor is closed")

	// ErrRejected indicates the queue and every worker slot are taken
	ErrRejected = errors.New("task rejected: executor saturated")

	// ErrInvalidWorkerCount indicates invalid worker count configuration
	ErrInvalidWorkerCount = errors.New("invalid worker count")

	// ErrInvalidQueueCapacity indicates a negative queue capacity
	ErrInvalidQueueCapacity = errors.New("invalid queue capacity")

	// ErrNilTask is returned when Execute is called without a task
	ErrNilTask = errors.New("nil task")

	// ErrUnknownPolicy is returned by ParsePolicy for unrecognised names
	ErrUnknownPolicy = errors.New("unknown rejection policy")

	// ErrInvalidCPU is returned for a CPU index outside [0, NumCPUs)
	ErrInvalidCPU = errors.New("invalid cpu index")

	// ErrAffinityUnsupported is returned where threads cannot be pinned
	ErrAffinityUnsupported = errors.New("cpu affinity not supported on this platform")
)
