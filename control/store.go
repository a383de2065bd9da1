// control/store.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and reload propagation.

package control

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-headunit/api"
)

// ReloadListener observes a configuration change.
type ReloadListener func(old, cur *Config)

// ConfigStore holds the active configuration and notifies listeners on change.
type ConfigStore struct {
	cur atomic.Pointer[Config]

	mu        sync.Mutex // serializes updates and guards listeners
	listeners []ReloadListener
}

var _ api.AutostartPolicy = (*ConfigStore)(nil)

// NewConfigStore initializes a store with cfg, or the defaults when cfg is nil.
func NewConfigStore(cfg *Config) *ConfigStore {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cs := &ConfigStore{}
	cs.cur.Store(cfg.Clone())
	return cs
}

// Current returns a copy of the active configuration.
func (cs *ConfigStore) Current() *Config {
	return cs.cur.Load().Clone()
}

// Replace swaps in cfg and dispatches reload listeners synchronously.
func (cs *ConfigStore) Replace(cfg *Config) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	old := cs.cur.Load()
	next := cfg.Clone()
	cs.cur.Store(next)
	cs.dispatchReload(old, next)
}

// SetAutostartDisabled toggles the autostart switch at runtime.
func (cs *ConfigStore) SetAutostartDisabled(disabled bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	old := cs.cur.Load()
	if old.Autostart.Disabled == disabled {
		return
	}
	next := old.Clone()
	next.Autostart.Disabled = disabled
	cs.cur.Store(next)
	cs.dispatchReload(old, next)
}

// AutostartDisabled implements api.AutostartPolicy.
func (cs *ConfigStore) AutostartDisabled() bool {
	return cs.cur.Load().Autostart.Disabled
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn ReloadListener) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// dispatchReload invokes all listeners. Caller holds mu.
func (cs *ConfigStore) dispatchReload(old, cur *Config) {
	for _, fn := range cs.listeners {
		fn(old.Clone(), cur.Clone())
	}
}
