// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and hot-reload propagation.

package control

import (
	"fmt"
	"sync"
	"time"
)

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
type ConfigStore struct {
	mu         sync.RWMutex
	config     map[string]any
	validators map[string]func(any) error
	listeners  []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:     make(map[string]any),
		validators: make(map[string]func(any) error),
		listeners:  make([]func(), 0),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	copy := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		copy[k] = v
	}
	return copy
}

// Get returns a single value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// GetInt returns key as an int, accepting the numeric kinds JSON and flags produce.
func (cs *ConfigStore) GetInt(key string) (int, bool) {
	v, ok := cs.Get(key)
	if !ok {
		return 0, false
	}
	return AsInt(v)
}

// GetDuration returns key as a duration. Strings are parsed with time.ParseDuration.
func (cs *ConfigStore) GetDuration(key string) (time.Duration, bool) {
	v, ok := cs.Get(key)
	if !ok {
		return 0, false
	}
	return AsDuration(v)
}

// Validate installs a check that SetConfig runs before accepting key.
func (cs *ConfigStore) Validate(key string, fn func(any) error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.validators[key] = fn
}

// SetConfig merges new values and dispatches reload if needed.
// Nothing is applied when any value fails validation.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) error {
	cs.mu.Lock()
	for k, v := range newCfg {
		if fn, ok := cs.validators[k]; ok {
			if err := fn(v); err != nil {
				cs.mu.Unlock()
				return fmt.Errorf("config %q: %w", k, err)
			}
		}
	}
	for k, v := range newCfg {
		cs.config[k] = v
	}
	listeners := append([]func(){}, cs.listeners...)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return nil
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// AsInt converts the numeric kinds JSON decoding and flag parsing produce.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// AsDuration accepts a time.Duration, a duration string or a nanosecond count.
func AsDuration(v any) (time.Duration, bool) {
	switch d := v.(type) {
	case time.Duration:
		return d, true
	case string:
		p, err := time.ParseDuration(d)
		return p, err == nil
	}
	if n, ok := AsInt(v); ok {
		return time.Duration(n), true
	}
	return 0, false
}
