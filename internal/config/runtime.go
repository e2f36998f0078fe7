package config

import "sync/atomic"

// Runtime holds the current configuration snapshot. Readers get an
// immutable copy through Snapshot; the watcher swaps in reloads
// atomically, so hot paths never take a lock.
type Runtime struct {
	current atomic.Pointer[Config]
}

// NewRuntime seeds the holder with the initial configuration.
func NewRuntime(cfg *Config) *Runtime {
	r := &Runtime{}
	r.current.Store(cfg)
	return r
}

// Snapshot returns the current configuration. Callers must not mutate it.
func (r *Runtime) Snapshot() *Config {
	return r.current.Load()
}

// Update swaps in a new configuration snapshot.
func (r *Runtime) Update(cfg *Config) {
	r.current.Store(cfg)
}
