// Package registry maps node-kind names, as they appear in graph
// definitions, to the Go constructors that build the per-kind Functions.
// The compiler consults the registry for every node it needs; an unknown
// kind is a graph generation error, not a panic, because kind names come
// from user files.
package registry

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/ctxlog"
	"github.com/vk/nodefn/internal/fn"
)

// Kind describes one registered node kind.
type Kind struct {
	// Name is the identifier used in graph definitions, e.g. "math.add".
	Name string
	// Description is a short human-readable summary for listings.
	Description string
	// Build instantiates the kind's Function for one node, given the
	// node's construction params. The returned Function must be published.
	Build func(ctx context.Context, params map[string]cty.Value) (*fn.Function, error)
}

// Registry holds the node kinds available to one compiler instance.
type Registry struct {
	kinds map[string]*Kind
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{kinds: make(map[string]*Kind)}
}

// Register adds a kind. Registering the same name twice panics; kinds are
// wired at startup by code, so a duplicate is a programming error.
func (r *Registry) Register(k *Kind) {
	if _, exists := r.kinds[k.Name]; exists {
		panic(fmt.Sprintf("registry: node kind %q already registered", k.Name))
	}
	r.kinds[k.Name] = k
}

// Lookup returns the kind for a name.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Instantiate builds the Function for one node of the given kind.
func (r *Registry) Instantiate(ctx context.Context, kindName string, params map[string]cty.Value) (*fn.Function, error) {
	k, ok := r.kinds[kindName]
	if !ok {
		return nil, fmt.Errorf("unknown node kind %q", kindName)
	}
	ctxlog.FromContext(ctx).Debug("instantiating node kind", "kind", kindName)
	f, err := k.Build(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("building node kind %q: %w", kindName, err)
	}
	return f, nil
}

// Names returns the registered kind names in unspecified order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	return names
}
