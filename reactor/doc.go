// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides a single-goroutine, readiness-based TCP event loop.
//
// One goroutine, locked to its OS thread, owns the multiplexer (epoll on Linux),
// the listening socket and every Connection's read buffer and registration.
// Decoded messages are queued on their Connection and drained by at most one
// api.Executor task at a time, so replies leave in request order. Workers
// answer through Connection.Write, which is the only Connection method safe
// off the loop.
package reactor
