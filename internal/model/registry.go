package model

import (
	"fmt"

	"github.com/ember-run/ember/internal/registry"
)

// Registry holds named backend Clients. The orchestrator's fallback and
// synthesis orders are fixed lists of names; registration order does not
// affect them.
type Registry struct {
	*registry.BaseRegistry[Client]
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Client]()}
}

// RegisterBackend adds a backend under name.
func (r *Registry) RegisterBackend(name string, c Client) error {
	if c == nil {
		return fmt.Errorf("model: backend %q is nil", name)
	}
	return r.Register(name, c)
}

// Available returns the subset of registered backends currently reporting
// Available() == true, keyed by name.
func (r *Registry) Available() map[string]Client {
	out := make(map[string]Client)
	for _, name := range r.Names() {
		c, _ := r.Get(name)
		if c.Available() {
			out[name] = c
		}
	}
	return out
}
