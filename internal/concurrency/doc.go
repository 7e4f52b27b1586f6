// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker pool that runs decoded requests off the reactor goroutine.
// The pool keeps between CoreWorkers and MaxWorkers goroutines, queues work in a
// bounded FIFO and applies an explicit RejectPolicy when saturated.
// PinCurrentThread binds a thread-locked goroutine, such as the reactor loop,
// to one CPU.
package concurrency
