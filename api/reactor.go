// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Lifecycle states and readiness kinds shared by the reactor and its observers.

package api

// State is the lifecycle phase of a reactor.
type State int32

const (
	StateNew State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ConnState is the lifecycle phase of a single connection.
type ConnState int32

const (
	ConnOpen ConnState = iota
	ConnClosing
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnOpen:
		return "open"
	case ConnClosing:
		return "closing"
	case ConnClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Interest is the set of readiness kinds a descriptor is polled for.
type Interest uint8

const (
	InterestAccept Interest = 1 << iota
	InterestRead
	InterestWrite
)

// Readiness is what the multiplexer reported for one descriptor.
type Readiness uint8

const (
	Readable Readiness = 1 << iota
	Writable
	Hangup
	Failed
)

// Reactor is the external control surface of the event loop.
type Reactor interface {
	Start() error
	Stop() error
	State() State
}
