// File: reactor/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/codec"
	"github.com/momentics/hioload-reactor/control"
)

type mailOp uint8

const (
	opFlush mailOp = iota + 1
	opClose
)

// Connection is the per-socket state of one accepted peer.
//
// The read buffer and the interest set belong to the reactor goroutine. The
// outbound path (pending bytes, state transitions) is guarded by outMu so that
// workers can write and the reactor can close without racing on the fd.
// Decoded requests wait in reqs; at most one worker task drains them, so
// responses leave in request order.
type Connection struct {
	id      uint64
	ep      endpoint
	remote  string
	created time.Time

	in       *codec.Buffer
	interest api.Interest

	state      atomic.Int32
	outMu      sync.Mutex
	pending    []byte
	maxPending int
	writeErr   error

	reqMu   sync.Mutex
	reqs    *queue.Queue
	serving bool

	notify  func(*Connection, mailOp)
	metrics *control.Metrics
}

var _ api.Conn = (*Connection)(nil)

func (c *Connection) ID() uint64         { return c.id }
func (c *Connection) RemoteAddr() string { return c.remote }
func (c *Connection) Fd() int            { return c.ep.Fd() }

// State reports the lifecycle phase.
func (c *Connection) State() api.ConnState { return api.ConnState(c.state.Load()) }

// Write sends p to the peer and is safe for concurrent use. Bytes the socket
// cannot take right away are kept and flushed by the reactor on WRITE
// readiness; the return value counts them as written.
func (c *Connection) Write(p []byte) (int, error) {
	c.outMu.Lock()
	defer c.outMu.Unlock()

	if c.State() != api.ConnOpen {
		return 0, api.ErrConnClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if len(c.pending) > 0 {
		if len(c.pending)+len(p) > c.maxPending {
			c.failLocked(api.ErrWriteBufferFull)
			return 0, api.ErrWriteBufferFull
		}
		c.pending = append(c.pending, p...)
		return len(p), nil
	}

	n, err := c.ep.Write(p)
	c.metrics.BytesWritten(n)
	if err != nil {
		c.failLocked(err)
		return n, err
	}
	if n < len(p) {
		rest := p[n:]
		if len(rest) > c.maxPending {
			c.failLocked(api.ErrWriteBufferFull)
			return n, api.ErrWriteBufferFull
		}
		c.pending = append(c.pending[:0], rest...)
		c.metrics.WriteStall()
		c.notify(c, opFlush)
	}
	return len(p), nil
}

// failLocked records the first write failure and asks the reactor to close.
func (c *Connection) failLocked(err error) {
	if c.writeErr == nil {
		c.writeErr = err
		c.notify(c, opClose)
	}
}

func (c *Connection) writeFailure() error {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	return c.writeErr
}

// PendingBytes reports how many response bytes still wait for the socket.
func (c *Connection) PendingBytes() int {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	return len(c.pending)
}

// flushPending writes as much pending output as the socket takes. It reports
// whether nothing is left.
func (c *Connection) flushPending() (bool, error) {
	c.outMu.Lock()
	defer c.outMu.Unlock()

	if c.State() != api.ConnOpen {
		return true, api.ErrConnClosed
	}
	if len(c.pending) == 0 {
		return true, nil
	}
	n, err := c.ep.Write(c.pending)
	c.metrics.BytesWritten(n)
	if err != nil {
		return false, err
	}
	rest := copy(c.pending, c.pending[n:])
	c.pending = c.pending[:rest]
	return rest == 0, nil
}

// enqueue appends a decoded batch. It reports whether the caller must start a
// task to drain the queue; false means a task is already running.
func (c *Connection) enqueue(batch [][]byte, limit int) (bool, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	if limit > 0 && c.reqs.Length()+len(batch) > limit {
		return false, api.ErrRequestBacklog
	}
	for _, body := range batch {
		c.reqs.Add(body)
	}
	if c.serving || c.reqs.Length() == 0 {
		return false, nil
	}
	c.serving = true
	return true, nil
}

// nextRequest pops the oldest request. When nothing is left, or the connection
// is no longer open, it ends the draining task.
func (c *Connection) nextRequest() ([]byte, bool) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	if c.State() != api.ConnOpen {
		c.dropRequestsLocked()
		return nil, false
	}
	if c.reqs.Length() == 0 {
		c.serving = false
		return nil, false
	}
	return c.reqs.Remove().([]byte), true
}

// abandon discards queued requests after the draining task could not start.
func (c *Connection) abandon() {
	c.reqMu.Lock()
	c.dropRequestsLocked()
	c.reqMu.Unlock()
}

func (c *Connection) dropRequestsLocked() {
	for c.reqs.Length() > 0 {
		c.reqs.Remove()
	}
	c.serving = false
}

// QueuedRequests reports decoded requests not yet handed to the handler.
func (c *Connection) QueuedRequests() int {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	return c.reqs.Length()
}

// beginClose moves OPEN to CLOSING. Only the first caller gets true.
func (c *Connection) beginClose() bool {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	return c.state.CompareAndSwap(int32(api.ConnOpen), int32(api.ConnClosing))
}

// finishClose releases the socket. Writers hold outMu around every fd access,
// so none can reach a descriptor number that the kernel has already reused.
func (c *Connection) finishClose() error {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	err := c.ep.Close()
	c.pending = nil
	c.state.Store(int32(api.ConnClosed))
	return err
}
