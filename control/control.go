// Package control
// Author: momentics <momentics@gmail.com>
//
// Control implements api.Control on top of the config store and debug hooks.

package control

import "github.com/momentics/hioload-reactor/api"

// Control bundles live configuration and debug introspection.
type Control struct {
	config *ConfigStore
	debug  *DebugHooks
}

var _ api.Control = (*Control)(nil)

// New returns a Control with the platform hooks already registered.
func New() *Control {
	c := &Control{
		config: NewConfigStore(),
		debug:  NewDebugHooks(),
	}
	RegisterPlatformHooks(c.debug)
	return c
}

func (c *Control) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

func (c *Control) SetConfig(cfg map[string]any) error {
	return c.config.SetConfig(cfg)
}

func (c *Control) OnReload(fn func()) {
	c.config.OnReload(fn)
}

func (c *Control) RegisterDebugHook(name string, fn func() any) {
	c.debug.RegisterHook(name, fn)
}

func (c *Control) DumpState() map[string]any {
	return c.debug.DumpState()
}

// Config exposes the underlying store for typed reads and validators.
func (c *Control) Config() *ConfigStore { return c.config }

// Debug exposes the hook registry, which doubles as an http.Handler.
func (c *Control) Debug() *DebugHooks { return c.debug }
