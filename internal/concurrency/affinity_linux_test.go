//go:build linux

package concurrency

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPinCurrentThread(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	cpus, err := allowedCPUs()
	require.NoError(t, err)
	require.NotEmpty(t, cpus)
	target := cpus[len(cpus)-1]
	if target >= NumCPUs() {
		t.Skipf("cpu %d outside NumCPU range", target)
	}

	var before unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &before))

	restore, err := PinCurrentThread(target)
	require.NoError(t, err)

	var pinned unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &pinned))
	assert.Equal(t, 1, pinned.Count())
	assert.True(t, pinned.IsSet(target))

	require.NoError(t, restore())
	var after unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &after))
	assert.Equal(t, before, after)
}

func TestPinCurrentThread_OutOfRange(t *testing.T) {
	_, err := PinCurrentThread(-1)
	assert.ErrorIs(t, err, ErrInvalidCPU)
	_, err = PinCurrentThread(NumCPUs())
	assert.ErrorIs(t, err, ErrInvalidCPU)
}
