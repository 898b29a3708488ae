package check

import (
	"context"
	"sort"
	"sync"
)

// Func probes one resource and reports its condition. Returning an error
// means the probe itself could not run; the engine converts either path
// into an error-status result, so implementations never crash a run.
type Func func(ctx context.Context, params Params) (Report, error)

// Registry maps check-type names to their implementations. New check types
// register at composition time without touching the engine.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register binds name to fn, replacing any previous binding.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Resolve returns the check function registered under name.
func (r *Registry) Resolve(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Types returns the registered check-type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Defaults returns a registry with all built-in check types registered.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register("http", CheckHTTP)
	r.Register("tcp", CheckTCP)
	r.Register("ping", CheckPing)
	r.Register("docker", CheckDocker)
	r.Register("disk", CheckDisk)
	r.Register("redis", CheckRedis)
	return r
}
