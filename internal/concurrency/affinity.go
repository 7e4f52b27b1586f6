// File: internal/concurrency/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// CPU affinity for goroutines that own their OS thread.

package concurrency

import (
	"fmt"
	"runtime"
)

// PinCurrentThread binds the calling OS thread to cpu. The caller must hold
// runtime.LockOSThread for the pin to stay with its goroutine. The returned
// restore func reinstates the previous mask.
func PinCurrentThread(cpu int) (restore func() error, err error) {
	if cpu < 0 || cpu >= NumCPUs() {
		return nil, fmt.Errorf("%w: cpu %d of %d", ErrInvalidCPU, cpu, NumCPUs())
	}
	return platformPinCurrentThread(cpu)
}

// NumCPUs returns the number of logical CPUs.
func NumCPUs() int {
	return runtime.NumCPU()
}
