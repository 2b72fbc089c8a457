// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry manages tool registration and lookup. It is owned by the
// Gateway instance that dispatches through it; there is no package-level
// registry. Thread-safe for concurrent access.
type Registry struct {
	tools map[string]*Descriptor
	mu    sync.RWMutex
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Descriptor),
	}
}

// Register adds a tool to the registry. If a tool with the same name
// exists, it is overwritten and a warning is logged.
func (r *Registry) Register(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tools[d.Name]; ok {
		slog.Warn("tool conflict: overwriting existing tool",
			"tool", d.Name,
			"previous_endpoint", existing.Endpoint,
			"new_endpoint", d.Endpoint)
	}
	r.tools[d.Name] = d
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.tools[name]
	return d, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
