// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime control plane for hioload-reactor: live configuration with reload
// hooks, Prometheus metrics for the reactor and worker pool, and named debug
// hooks that can be dumped as JSON.
package control
