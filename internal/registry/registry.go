// Package registry holds the static catalog of models the server can download and serve.
package registry

import (
	"fmt"
	"strings"

	"chatd/pkg/types"
)

// Registry is an immutable lookup table keyed by model id.
type Registry struct {
	models []types.ModelDescriptor
	byID   map[string]int
}

// New validates the descriptors and builds a registry preserving their order.
func New(models []types.ModelDescriptor) (*Registry, error) {
	r := &Registry{
		models: make([]types.ModelDescriptor, 0, len(models)),
		byID:   make(map[string]int, len(models)),
	}
	for i, m := range models {
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: empty id", i)
		}
		if _, dup := r.byID[m.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, m.ID)
		}
		if !m.Architecture.Valid() {
			return nil, fmt.Errorf("catalog entry %q: unsupported type %q", m.ID, m.Architecture)
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		r.byID[m.ID] = len(r.models)
		r.models = append(r.models, m)
	}
	return r, nil
}

// Describe returns the descriptor for id; false means the id is not in the catalog.
func (r *Registry) Describe(id string) (types.ModelDescriptor, bool) {
	i, ok := r.byID[id]
	if !ok {
		return types.ModelDescriptor{}, false
	}
	return r.models[i], true
}

// Contains reports whether id is in the catalog.
func (r *Registry) Contains(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// List returns a copy of the catalog in definition order.
func (r *Registry) List() []types.ModelDescriptor {
	out := make([]types.ModelDescriptor, len(r.models))
	copy(out, r.models)
	return out
}

// Len returns the number of catalog entries.
func (r *Registry) Len() int { return len(r.models) }
