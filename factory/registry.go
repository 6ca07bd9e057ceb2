// Package factory wires strategy names from configuration to concrete
// implementations. Registries are explicit objects passed by dependency
// injection; there is no package-level mutable state. A registry may be
// singleton-scoped, in which case it reuses one instance per canonical
// config fingerprint — rate limiters must be shared this way so concurrent
// callers account against the same window.
package factory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
)

// Constructor builds one strategy instance from its config.
type Constructor[C, T any] func(cfg C) (T, error)

// Registry maps strategy names to constructors for one kind of collaborator.
type Registry[C, T any] struct {
	kind      string
	singleton bool

	mu           sync.Mutex
	constructors map[string]Constructor[C, T]
	instances    map[string]T
}

// NewRegistry creates a registry for the named kind. When singleton is set,
// Resolve returns the same instance for equal (name, config) pairs.
func NewRegistry[C, T any](kind string, singleton bool) *Registry[C, T] {
	return &Registry[C, T]{
		kind:         kind,
		singleton:    singleton,
		constructors: make(map[string]Constructor[C, T]),
		instances:    make(map[string]T),
	}
}

// Register adds a named strategy. Re-registering a name replaces it.
func (r *Registry[C, T]) Register(name string, ctor Constructor[C, T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = ctor
}

// Resolve builds (or, in singleton scope, reuses) the strategy registered
// under name.
func (r *Registry[C, T]) Resolve(name string, cfg C) (T, error) {
	var zero T

	r.mu.Lock()
	ctor, ok := r.constructors[name]
	r.mu.Unlock()
	if !ok {
		return zero, fmt.Errorf("factory: unknown %s strategy %q", r.kind, name)
	}

	if !r.singleton {
		return ctor(cfg)
	}

	key := name + ":" + fingerprint(cfg)
	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.instances[key]; ok {
		return inst, nil
	}
	inst, err := ctor(cfg)
	if err != nil {
		return zero, err
	}
	r.instances[key] = inst
	return inst, nil
}

// Names returns the registered strategy names.
func (r *Registry[C, T]) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	return names
}

// fingerprint canonicalizes a config value for singleton identity.
func fingerprint(cfg any) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", cfg))
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}
