// File: internal/concurrency/executor.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks across worker goroutines through a bounded FIFO.
// Sizing follows the core/max model: new work first grows the pool to CoreWorkers,
// then queues, then grows to MaxWorkers, and only then hits the RejectPolicy.

package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"
)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

const (
	stateRunning int32 = iota
	stateShutdown
	stateStopped
)

// Executor manages a pool of worker goroutines.
type Executor struct {
	mu       sync.Mutex
	taskCond *sync.Cond // task queued, shutdown, or keep-alive expiry
	roomCond *sync.Cond // queue slot freed, for Block policy
	queue    *queue.Queue

	capacity  int
	core      int
	max       int
	keepAlive time.Duration
	policy    RejectPolicy
	log       logrus.FieldLogger

	workers int
	idle    int
	state   int32
	nextID  int

	wg       sync.WaitGroup
	done     chan struct{}
	doneOnce sync.Once

	// statistics
	submitted atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
	panicked  atomic.Int64
}

// Stats is a point-in-time view of the executor.
type Stats struct {
	Workers   int
	Active    int
	Queued    int
	Capacity  int
	Submitted int64
	Completed int64
	Rejected  int64
	Panicked  int64
}

// NewExecutor validates cfg and returns an idle executor. Workers start lazily.
func NewExecutor(cfg Config) (*Executor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &Executor{
		queue:     queue.New(),
		capacity:  cfg.QueueCapacity,
		core:      cfg.CoreWorkers,
		max:       cfg.MaxWorkers,
		keepAlive: cfg.KeepAlive,
		policy:    cfg.Policy,
		log:       cfg.Logger.WithField("component", "executor"),
		done:      make(chan struct{}),
	}
	e.taskCond = sync.NewCond(&e.mu)
	e.roomCond = sync.NewCond(&e.mu)
	return e, nil
}

// Execute submits task. It never drops work silently: the task is run, queued,
// handed to the caller (CallerRuns) or refused with an error.
func (e *Executor) Execute(task func()) error {
	if task == nil {
		return ErrNilTask
	}
	e.mu.Lock()
	for {
		if e.state != stateRunning {
			e.mu.Unlock()
			return ErrPoolClosed
		}
		if e.workers < e.core {
			e.spawnLocked(task)
			e.mu.Unlock()
			e.submitted.Add(1)
			return nil
		}
		if e.queue.Length() < e.capacity {
			e.queue.Add(TaskFunc(task))
			if e.workers == 0 {
				e.spawnLocked(nil)
			}
			e.taskCond.Signal()
			e.mu.Unlock()
			e.submitted.Add(1)
			return nil
		}
		if e.workers < e.max {
			e.spawnLocked(task)
			e.mu.Unlock()
			e.submitted.Add(1)
			return nil
		}

		switch e.policy {
		case CallerRuns:
			e.mu.Unlock()
			e.submitted.Add(1)
			e.safeExecute(task)
			return nil
		case Block:
			e.roomCond.Wait()
			continue
		default:
			e.mu.Unlock()
			e.rejected.Add(1)
			return ErrRejected
		}
	}
}

// Submit is an alias of Execute kept for api.Executor-style callers.
func (e *Executor) Submit(task TaskFunc) error {
	return e.Execute(task)
}

func (e *Executor) spawnLocked(first TaskFunc) {
	e.workers++
	e.nextID++
	w := &worker{id: e.nextID, executor: e}
	e.wg.Add(1)
	go w.run(first)
}

// NumWorkers returns the number of live workers.
func (e *Executor) NumWorkers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workers
}

// SetMaxWorkers changes the worker ceiling. Surplus workers exit once idle.
func (e *Executor) SetMaxWorkers(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n <= 0 || n < e.core {
		return ErrInvalidWorkerCount
	}
	e.max = n
	e.taskCond.Broadcast()
	e.roomCond.Broadcast()
	return nil
}

// SetKeepAlive changes how long non-core workers linger while idle.
func (e *Executor) SetKeepAlive(d time.Duration) {
	if d <= 0 {
		return
	}
	e.mu.Lock()
	e.keepAlive = d
	e.taskCond.Broadcast()
	e.mu.Unlock()
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	st := Stats{
		Workers:  e.workers,
		Active:   e.workers - e.idle,
		Queued:   e.queue.Length(),
		Capacity: e.capacity,
	}
	e.mu.Unlock()
	st.Submitted = e.submitted.Load()
	st.Completed = e.completed.Load()
	st.Rejected = e.rejected.Load()
	st.Panicked = e.panicked.Load()
	return st
}

// Shutdown stops accepting tasks, lets queued and running tasks finish and waits
// for every worker to exit or ctx to expire.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.state == stateRunning {
		e.state = stateShutdown
	}
	e.wakeAllLocked()
	e.mu.Unlock()

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShutdownNow stops accepting tasks and returns the queued ones that never
// started. Running tasks are not interrupted.
func (e *Executor) ShutdownNow() []TaskFunc {
	e.mu.Lock()
	e.state = stateStopped
	pending := make([]TaskFunc, 0, e.queue.Length())
	for e.queue.Length() > 0 {
		pending = append(pending, e.queue.Remove().(TaskFunc))
	}
	e.wakeAllLocked()
	e.mu.Unlock()
	return pending
}

// Wait blocks until all workers have exited after a shutdown.
func (e *Executor) Wait() {
	<-e.done
}

func (e *Executor) wakeAllLocked() {
	e.taskCond.Broadcast()
	e.roomCond.Broadcast()
	if e.workers == 0 {
		e.doneOnce.Do(func() { close(e.done) })
	}
}

// take blocks until a task is available. It returns nil when the calling worker
// should exit, having already removed it from the live count.
func (e *Executor) take() TaskFunc {
	e.mu.Lock()
	defer e.mu.Unlock()

	var deadline time.Time
	for {
		if e.workers > e.max {
			e.exitLocked()
			return nil
		}
		if e.queue.Length() > 0 {
			task := e.queue.Remove().(TaskFunc)
			e.roomCond.Signal()
			return task
		}
		if e.state != stateRunning {
			e.exitLocked()
			return nil
		}
		if e.workers > e.core {
			now := time.Now()
			if deadline.IsZero() {
				deadline = now.Add(e.keepAlive)
				time.AfterFunc(e.keepAlive, e.tick)
			} else if !now.Before(deadline) {
				e.exitLocked()
				return nil
			}
		}
		e.idle++
		e.taskCond.Wait()
		e.idle--
	}
}

func (e *Executor) tick() {
	e.mu.Lock()
	e.taskCond.Broadcast()
	e.mu.Unlock()
}

func (e *Executor) exitLocked() {
	e.workers--
	if e.state != stateRunning && e.workers == 0 {
		e.doneOnce.Do(func() { close(e.done) })
	}
	// a shrinking pool may have opened a slot for a Block submitter
	e.roomCond.Broadcast()
}

// safeExecute runs the task and updates statistics, recovering from panics.
func (e *Executor) safeExecute(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			e.panicked.Add(1)
			e.log.WithField("panic", r).Error("task panicked")
		}
		e.completed.Add(1)
	}()
	task()
}

// worker represents a single executor goroutine.
type worker struct {
	id       int
	executor *Executor
}

func (w *worker) run(first TaskFunc) {
	defer w.executor.wg.Done()
	task := first
	for {
		if task != nil {
			w.executor.safeExecute(task)
		}
		task = w.executor.take()
		if task == nil {
			return
		}
	}
}
