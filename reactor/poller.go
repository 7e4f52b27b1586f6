// File: reactor/poller.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness multiplexer interface.

package reactor

import (
	"time"

	"github.com/momentics/hioload-reactor/api"
)

// Event is one readiness notification returned by Wait.
type Event struct {
	Fd    int
	Ready api.Readiness
}

// Poller is the readiness multiplexer owned by the reactor goroutine.
// Only Wake may be called from other goroutines.
type Poller interface {
	// Add registers fd. A descriptor has at most one registration.
	Add(fd int, interest api.Interest) error

	// Modify replaces the interest set of a registered fd.
	Modify(fd int, interest api.Interest) error

	// Remove cancels the registration of fd.
	Remove(fd int) error

	// Wait blocks for at most timeout and fills events. It returns early, possibly
	// with zero events, after Wake.
	Wait(events []Event, timeout time.Duration) (int, error)

	// Wake interrupts a blocked or the next Wait.
	Wake() error

	// Close releases the multiplexer.
	Close() error
}
