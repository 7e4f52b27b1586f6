//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific platform metrics or debug hook integrations.

package control

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// RegisterPlatformHooks sets Linux-specific debug metrics.
func RegisterPlatformHooks(dp *DebugHooks) {
	dp.RegisterHook("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterHook("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
	dp.RegisterHook("platform.open_files_limit", func() any {
		var rl unix.Rlimit
		if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
			return err.Error()
		}
		return rl.Cur
	})
}
