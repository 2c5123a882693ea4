// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and hot-reload propagation.

package control

import (
	"sync"
	"time"
)

// Well-known configuration keys consumed by the poller and connector layers.
const (
	KeyPollMaxEvents   = "pollset.max_events"
	KeyConnectDeadline = "connect.default_deadline"
)

// Defaults applied when a key is absent from the store.
const (
	DefaultPollMaxEvents   = 128
	DefaultConnectDeadline = 20 * time.Second
)

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make([]func(), 0),
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

// GetInt returns an integer value for key, or def when unset or mistyped.
func (cs *ConfigStore) GetInt(key string, def int) int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if v, ok := cs.config[key].(int); ok {
		return v
	}
	return def
}

// GetDuration returns a duration value for key, or def when unset or mistyped.
func (cs *ConfigStore) GetDuration(key string, def time.Duration) time.Duration {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if v, ok := cs.config[key].(time.Duration); ok {
		return v
	}
	return def
}

// SetConfig merges new values and dispatches reload if needed.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	cs.dispatchReload()
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// dispatchReload invokes all listeners.
func (cs *ConfigStore) dispatchReload() {
	for _, fn := range cs.listeners {
		go fn()
	}
}
