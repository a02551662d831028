// Package compile turns a source node graph into a callable Function. The
// compiler freezes the graph, discovers the formal interface from the
// marker nodes, builds a cycle-checked dependency graph over the transitive
// predecessors of the formal outputs, and attaches execution bodies: a
// dependency-analysis body, optionally a code-generation body with a derived
// eager body, and the node-by-node interpreter as the always-available
// baseline. The frozen source graph and the dependency graph become owned
// resources of the Function.
package compile

import (
	"context"

	"github.com/vk/nodefn/internal/ctxlog"
	"github.com/vk/nodefn/internal/fn"
	"github.com/vk/nodefn/internal/graph"
	"github.com/vk/nodefn/internal/registry"
	"github.com/vk/nodefn/internal/tuple"
)

// Resource debug names under which the compiler stores graph artifacts in
// the Function.
const (
	ResourceFrozenGraph = "frozen source graph"
	ResourceDepGraph    = "dependency graph"
)

// Options tunes body attachment.
type Options struct {
	// PreferProgram selects the program-derived eager body over the
	// interpreter when every required node kind supports code generation.
	// The code-generation body itself is attached whenever available,
	// independent of this flag.
	PreferProgram bool
}

// Generate compiles the graph with default options.
func Generate(ctx context.Context, b *graph.Builder, reg *registry.Registry, name string) (*fn.Function, error) {
	return GenerateWith(ctx, b, reg, name, Options{})
}

// GenerateWith compiles the graph under construction in b into a published
// Function. The builder remains usable; the Function owns a frozen snapshot.
func GenerateWith(ctx context.Context, b *graph.Builder, reg *registry.Registry, name string, opts Options) (*fn.Function, error) {
	logger := ctxlog.FromContext(ctx).With("function", name)
	logger.Debug("compiling graph")

	frozen, err := b.Freeze()
	if err != nil {
		return nil, &GraphGenerationError{Reason: "invalid source graph", Err: err}
	}

	dg, err := buildDepGraph(ctx, frozen, reg)
	if err != nil {
		return nil, err
	}

	inEntries := make([]tuple.Entry, len(dg.formalIn))
	for i, d := range dg.formalIn {
		inEntries[i] = tuple.Entry{Name: d.Name, Type: d.Type}
	}
	outEntries := make([]tuple.Entry, len(dg.formalOut))
	for i, d := range dg.formalOut {
		outEntries[i] = tuple.Entry{Name: d.Name, Type: d.Type}
	}

	f := fn.New(name, tuple.NewMeta(inEntries...), tuple.NewMeta(outEntries...))
	f.AttachDeps(fn.DepsFunc(dg.requiredInputsFor))

	program, err := lowerProgram(ctx, dg)
	if err != nil {
		return nil, &GraphGenerationError{Reason: "program lowering failed", Err: err}
	}
	if program != nil {
		f.AttachCodegen(program)
	}

	if opts.PreferProgram && program != nil {
		logger.Debug("attaching program-derived eager body")
		f.AttachEager(fn.DeriveEager(program))
	} else {
		f.AttachEager(&interpreter{dg: dg})
	}

	f.AddResource(frozen, ResourceFrozenGraph)
	f.AddResource(dg, ResourceDepGraph)
	logger.Debug("graph compiled",
		"inputs", len(dg.formalIn), "outputs", len(dg.formalOut),
		"nodes", len(dg.required), "has_program", program != nil)
	return f.Publish(), nil
}

// DependencyGraph retrieves the dependency graph owned by a compiled
// Function, for debugging surfaces such as visualization.
func DependencyGraph(f *fn.Function) (*DepGraph, bool) {
	res, ok := f.Resource(ResourceDepGraph)
	if !ok {
		return nil, false
	}
	dg, ok := res.(*DepGraph)
	return dg, ok
}
