// Package api
// Author: momentics
//
// Executor contract for off-loop task dispatch.

package api

// Executor abstracts the worker pool that runs decoded requests off the reactor thread.
type Executor interface {
	// Execute schedules task for execution, or applies the rejection policy.
	Execute(task func()) error

	// NumWorkers returns current number of live worker routines.
	NumWorkers() int
}
