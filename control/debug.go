// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug handler and hook reflector for internal inspection.

package control

import (
	"encoding/json"
	"net/http"
	"sync"
)

// DebugHooks holds registered hook functions.
type DebugHooks struct {
	mu     sync.RWMutex
	hooks map[string]func() any
}

// NewDebugHooks creates a hook registry.
func NewDebugHooks() *DebugHooks {
	return &DebugHooks{
		hooks: make(map[string]func() any),
	}
}

// RegisterHook inserts a named debug hook.
func (dp *DebugHooks) RegisterHook(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.hooks[name] = fn
}

// DumpState returns output of all hooks.
func (dp *DebugHooks) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any)
	for k, fn := range dp.hooks {
		out[k] = fn()
	}
	return out
}

// ServeHTTP writes DumpState as JSON.
func (dp *DebugHooks) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dp.DumpState()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
