// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The event loop: accept, read, decode, hand off, flush.

package reactor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/codec"
	"github.com/momentics/hioload-reactor/control"
	"github.com/momentics/hioload-reactor/internal/concurrency"
	"github.com/momentics/hioload-reactor/pool"
	"github.com/sirupsen/logrus"
)

type mail struct {
	conn *Connection
	op   mailOp
}

// Reactor accepts TCP connections and drives them from a single goroutine.
type Reactor struct {
	cfg     Config
	exec    api.Executor
	handler api.Handler
	decoder codec.Decoder
	log     logrus.FieldLogger
	metrics *control.Metrics
	bufs    *pool.BytePool

	newPoller func() (Poller, error)
	listen    func(addr string, backlog int) (listener, error)

	startMu sync.Mutex
	state   atomic.Int32
	done    chan struct{}
	err     error // set by the loop before done is closed

	// owned by the loop goroutine once started
	poller Poller
	ln     listener
	conns  map[int]*Connection
	nextID uint64

	active atomic.Int64

	mailMu  sync.Mutex
	mailbox []mail
}

var _ api.Reactor = (*Reactor)(nil)

// New builds a reactor in state NEW. exec runs handler for every decoded message.
func New(cfg Config, exec api.Executor, handler api.Handler, opts ...Option) *Reactor {
	cfg.normalize()
	r := &Reactor{
		cfg:       cfg,
		exec:      exec,
		handler:   handler,
		decoder:   codec.NewLiteralDecoder(codec.QueryTimeOrder),
		log:       logrus.StandardLogger(),
		newPoller: NewPoller,
		listen:    listenTCP,
		conns:     make(map[int]*Connection),
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	if r.bufs == nil || r.bufs.Size() != cfg.ReadBufferSize {
		r.bufs = pool.NewBytePool(cfg.ReadBufferSize)
	}
	r.log = r.log.WithField("component", "reactor")
	return r
}

// State returns the lifecycle phase.
func (r *Reactor) State() api.State { return api.State(r.state.Load()) }

// Connections returns the number of registered connections.
func (r *Reactor) Connections() int { return int(r.active.Load()) }

// Done is closed once the reactor reaches STOPPED.
func (r *Reactor) Done() <-chan struct{} { return r.done }

// Err returns the error that ended the loop, if any. Valid after Done.
func (r *Reactor) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Addr returns the bound listening address, or nil before Start.
func (r *Reactor) Addr() net.Addr {
	r.startMu.Lock()
	defer r.startMu.Unlock()
	if r.ln == nil {
		return nil
	}
	return r.ln.Addr()
}

// Start opens the multiplexer, binds the listener, registers it for ACCEPT and
// launches the loop. Setup failures are returned and leave the reactor STOPPED.
func (r *Reactor) Start() error {
	r.startMu.Lock()
	defer r.startMu.Unlock()

	switch r.State() {
	case api.StateNew:
	case api.StateStopped:
		return api.ErrReactorStopped
	default:
		return api.ErrReactorRunning
	}
	if r.exec == nil || r.handler == nil {
		return fmt.Errorf("%w: executor and handler are required", api.ErrInvalidArgument)
	}

	p, err := r.newPoller()
	if err != nil {
		r.failStart()
		return fmt.Errorf("%w: open poller: %w", api.ErrSetup, err)
	}
	ln, err := r.listen(r.cfg.Addr, r.cfg.Backlog)
	if err != nil {
		p.Close()
		r.failStart()
		bindErr := api.NewError(api.ErrCodeSetup, "bind listener").
			Wrap(err).
			WithContext("addr", r.cfg.Addr).
			WithContext("backlog", r.cfg.Backlog)
		return fmt.Errorf("%w: %w", api.ErrSetup, bindErr)
	}
	if err := p.Add(ln.Fd(), api.InterestAccept); err != nil {
		ln.Close()
		p.Close()
		r.failStart()
		return fmt.Errorf("%w: register listener: %w", api.ErrSetup, err)
	}
	r.poller = p
	r.ln = ln

	if !r.state.CompareAndSwap(int32(api.StateNew), int32(api.StateRunning)) {
		// Stop won the race while we were binding.
		ln.Close()
		p.Close()
		return api.ErrReactorStopped
	}
	r.log.WithField("addr", ln.Addr().String()).Info("reactor started")
	go r.loop()
	return nil
}

func (r *Reactor) failStart() {
	if r.state.CompareAndSwap(int32(api.StateNew), int32(api.StateStopped)) {
		close(r.done)
	}
}

// Stop asks the loop to exit and waits until every connection, the listener and
// the multiplexer are closed. It is idempotent.
func (r *Reactor) Stop() error {
	for {
		switch r.State() {
		case api.StateNew:
			if r.state.CompareAndSwap(int32(api.StateNew), int32(api.StateStopped)) {
				close(r.done)
				return nil
			}
		case api.StateRunning:
			if r.state.CompareAndSwap(int32(api.StateRunning), int32(api.StateStopping)) {
				if err := r.poller.Wake(); err != nil {
					// the loop still notices within one PollTimeout
					r.log.WithError(err).Warn("wake failed")
				}
				<-r.done
				return nil
			}
		default:
			<-r.done
			return nil
		}
	}
}

func (r *Reactor) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer r.teardown()

	if r.cfg.PinCPU {
		restore, err := concurrency.PinCurrentThread(r.cfg.CPU)
		if err != nil {
			r.log.WithError(err).WithField("cpu", r.cfg.CPU).Warn("reactor thread not pinned")
		} else {
			defer restore()
			r.log.WithField("cpu", r.cfg.CPU).Debug("reactor thread pinned")
		}
	}

	events := make([]Event, r.cfg.MaxEvents)
	for r.State() == api.StateRunning {
		n, err := r.poller.Wait(events, r.cfg.PollTimeout)
		if err != nil {
			r.err = err
			r.log.WithError(err).Error("multiplexer failed, stopping")
			return
		}
		if n > 0 {
			r.metrics.PollWakeup()
		}
		r.drainMailbox()
		for i := 0; i < n; i++ {
			r.dispatch(events[i])
		}
	}
}

func (r *Reactor) teardown() {
	for _, c := range r.conns {
		r.closeConn(c, control.CloseShutdown, nil)
	}
	r.mailMu.Lock()
	r.mailbox = nil
	r.mailMu.Unlock()

	if err := r.ln.Close(); err != nil {
		r.log.WithError(err).Warn("close listener")
	}
	if err := r.poller.Close(); err != nil {
		r.log.WithError(err).Warn("close multiplexer")
	}
	r.state.Store(int32(api.StateStopped))
	r.log.Info("reactor stopped")
	close(r.done)
}

// dispatch handles one readiness event; a failure only affects its connection.
func (r *Reactor) dispatch(ev Event) {
	if ev.Fd == r.ln.Fd() {
		r.accept()
		return
	}
	c, ok := r.conns[ev.Fd]
	if !ok {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.closeConn(c, control.CloseError, fmt.Errorf("panic: %v", p))
		}
	}()

	if ev.Ready&api.Failed != 0 && ev.Ready&api.Readable == 0 {
		r.closeConn(c, control.CloseError, errors.New("socket error"))
		return
	}
	if ev.Ready&api.Writable != 0 {
		r.handleWrite(c)
		if c.State() != api.ConnOpen {
			return
		}
	}
	if ev.Ready&(api.Readable|api.Hangup) != 0 {
		r.handleRead(c)
	}
}

func (r *Reactor) accept() {
	ep, err := r.ln.Accept()
	if err != nil {
		r.metrics.AcceptError()
		r.log.WithError(err).Warn("accept failed")
		return
	}
	if ep == nil {
		return
	}
	if max := r.cfg.MaxConnections; max > 0 && len(r.conns) >= max {
		ep.Close()
		r.metrics.ConnRefused(control.CloseLimit)
		r.log.WithField("remote", ep.RemoteAddr()).Warn("connection limit reached")
		return
	}
	if _, err := r.register(ep); err != nil {
		r.log.WithError(err).WithField("remote", ep.RemoteAddr()).Warn("register connection")
	}
}

// register wraps an accepted endpoint and polls it for READ.
func (r *Reactor) register(ep endpoint) (*Connection, error) {
	r.nextID++
	c := &Connection{
		id:         r.nextID,
		ep:         ep,
		remote:     ep.RemoteAddr(),
		created:    time.Now(),
		in:         codec.Wrap(r.bufs.GetBuffer()),
		interest:   api.InterestRead,
		maxPending: r.cfg.MaxPendingWrite,
		reqs:       queue.New(),
		notify:     r.post,
		metrics:    r.metrics,
	}
	if err := r.poller.Add(ep.Fd(), api.InterestRead); err != nil {
		r.bufs.PutBuffer(c.in.Bytes())
		ep.Close()
		r.metrics.ConnRefused(control.CloseError)
		return nil, err
	}
	r.conns[ep.Fd()] = c
	r.active.Add(1)
	r.metrics.ConnAccepted()
	r.connLog(c).Debug("connection accepted")
	return c, nil
}

func (r *Reactor) handleRead(c *Connection) {
	n, err := c.ep.Read(c.in.Free())
	switch {
	case err == io.EOF:
		r.closeConn(c, control.CloseEOF, nil)
		return
	case err != nil:
		r.closeConn(c, control.CloseError, err)
		return
	case n == 0:
		return
	}
	c.in.Advance(n)
	r.metrics.BytesRead(n)

	msgs, derr := codec.DecodeStream(c.in, r.decoder)
	r.metrics.MessagesDecoded(len(msgs))
	if len(msgs) > 0 && !r.submit(c, msgs) {
		return
	}
	if derr != nil {
		r.closeConn(c, control.CloseProtocol, derr)
		return
	}
	if c.in.Full() {
		r.closeConn(c, control.CloseProtocol, api.ErrFrameTooLarge)
	}
}

// submit queues a decoded batch on the connection and starts a worker task
// unless one is already draining it.
func (r *Reactor) submit(c *Connection, batch [][]byte) bool {
	start, err := c.enqueue(batch, r.cfg.MaxQueuedRequests)
	if err == nil && start {
		if err = r.exec.Execute(func() { r.serve(c) }); err != nil {
			c.abandon()
		}
	}
	if err != nil {
		r.metrics.TaskRejected()
		r.connLog(c).WithError(err).Warn("request rejected")
		r.closeConn(c, control.CloseRejected, err)
		return false
	}
	return true
}

// serve runs on a worker goroutine and answers queued requests one by one.
func (r *Reactor) serve(c *Connection) {
	for {
		body, ok := c.nextRequest()
		if !ok {
			return
		}
		resp := r.handler.Handle(api.Message{Body: body, Conn: c})
		if len(bytes.TrimSpace(resp)) == 0 {
			continue
		}
		if _, err := c.Write(resp); err != nil {
			r.connLog(c).WithError(err).Debug("write response")
		}
	}
}

func (r *Reactor) handleWrite(c *Connection) {
	done, err := c.flushPending()
	if err != nil {
		r.closeConn(c, control.CloseError, err)
		return
	}
	if done && c.interest&api.InterestWrite != 0 {
		r.setInterest(c, api.InterestRead)
	}
}

func (r *Reactor) setInterest(c *Connection, in api.Interest) {
	if c.interest == in {
		return
	}
	if err := r.poller.Modify(c.ep.Fd(), in); err != nil {
		r.closeConn(c, control.CloseError, err)
		return
	}
	c.interest = in
}

// post queues a request from a worker and wakes the loop.
func (r *Reactor) post(c *Connection, op mailOp) {
	r.mailMu.Lock()
	r.mailbox = append(r.mailbox, mail{conn: c, op: op})
	r.mailMu.Unlock()
	if r.poller != nil {
		_ = r.poller.Wake()
	}
}

func (r *Reactor) drainMailbox() {
	r.mailMu.Lock()
	batch := r.mailbox
	r.mailbox = nil
	r.mailMu.Unlock()

	for _, m := range batch {
		c := m.conn
		if cur, ok := r.conns[c.ep.Fd()]; !ok || cur != c || c.State() != api.ConnOpen {
			continue
		}
		switch m.op {
		case opFlush:
			if c.PendingBytes() > 0 {
				r.setInterest(c, api.InterestRead|api.InterestWrite)
			}
		case opClose:
			r.closeConn(c, control.CloseError, c.writeFailure())
		}
	}
}

// closeConn cancels the registration and closes the socket exactly once.
func (r *Reactor) closeConn(c *Connection, reason string, cause error) {
	if !c.beginClose() {
		return
	}
	fd := c.ep.Fd()
	if err := r.poller.Remove(fd); err != nil {
		r.connLog(c).WithError(err).Debug("unregister")
	}
	if cur, ok := r.conns[fd]; ok && cur == c {
		delete(r.conns, fd)
	}
	if err := c.finishClose(); err != nil {
		r.connLog(c).WithError(err).Debug("close socket")
	}
	r.bufs.PutBuffer(c.in.Bytes())
	r.active.Add(-1)
	r.metrics.ConnClosed(reason)

	entry := r.connLog(c).WithField("reason", reason)
	if cause != nil {
		entry = entry.WithError(cause)
	}
	entry.Debug("connection closed")
}

func (r *Reactor) connLog(c *Connection) logrus.FieldLogger {
	return r.log.WithFields(logrus.Fields{"conn_id": c.id, "remote": c.remote})
}

// Run starts the reactor and blocks until ctx is done or the loop ends on its
// own, then stops it.
func (r *Reactor) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-r.done:
	}
	if err := r.Stop(); err != nil {
		return err
	}
	return r.Err()
}
