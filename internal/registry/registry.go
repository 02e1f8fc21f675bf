// Package registry lets modules publish services during Register and pick up
// each other's services during Boot.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/nfrund/taskmanager/internal/config"
)

// ErrNotRegistered is returned by Lookup for an unknown key or a key whose
// value has another type.
var ErrNotRegistered = errors.New("service not registered")

// Key names a service and fixes its type, e.g. Key[*tasks.Service]("tasks.service").
type Key[T any] string

// Registry is safe for concurrent use.
type Registry struct {
	cfg config.Provider

	mu       sync.RWMutex
	services map[string]any
}

func New(cfg config.Provider) *Registry {
	return &Registry{cfg: cfg, services: make(map[string]any)}
}

// Config returns the configuration every module boots with.
func (r *Registry) Config() config.Provider {
	return r.cfg
}

// Set stores value under key, replacing any earlier value.
func Set[T any](r *Registry, key Key[T], value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[string(key)] = value
}

// Get returns the value under key and whether it was found with type T.
func Get[T any](r *Registry, key Key[T]) (T, bool) {
	r.mu.RLock()
	v, ok := r.services[string(key)]
	r.mu.RUnlock()

	t, ok2 := v.(T)
	return t, ok && ok2
}

// Lookup is Get with an error naming the missing key, for use in Boot.
func Lookup[T any](r *Registry, key Key[T]) (T, error) {
	v, ok := Get(r, key)
	if !ok {
		return v, fmt.Errorf("%w: %s", ErrNotRegistered, string(key))
	}
	return v, nil
}

// Keys lists the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.services))
	for k := range r.services {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
