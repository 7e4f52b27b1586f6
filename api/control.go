// File: api/control.go
// Package api defines Control interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Control manages dynamic config and runtime diagnostics.
type Control interface {
	GetConfig() map[string]any
	SetConfig(cfg map[string]any) error
	OnReload(fn func())
	RegisterDebugHook(name string, fn func() any)
	DumpState() map[string]any
}
