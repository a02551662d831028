// Package fn defines the callable unit of the runtime: a Function aggregates
// input/output tuple shapes, a closed set of execution body variants, and
// owned resources whose lifetime is tied to the Function. The drivers in this
// package enforce the ownership-transfer calling convention around every
// body invocation.
package fn

import (
	"context"

	"github.com/vk/nodefn/internal/trace"
	"github.com/vk/nodefn/internal/tuple"
)

// BodyKind identifies one execution body variant. A Function carries at most
// one body per kind; presence is queried with HasBody rather than runtime
// type discovery.
type BodyKind int

const (
	// BodyEager computes all outputs in a single invocation.
	BodyEager BodyKind = iota
	// BodyLazy computes outputs across multiple entries, requesting inputs
	// on demand through a LazyState.
	BodyLazy
	// BodyDeps reports which inputs are required to produce given outputs.
	BodyDeps
	// BodyCodegen emits register instructions for whole-graph lowering.
	BodyCodegen
)

// String returns the variant name for logs and errors.
func (k BodyKind) String() string {
	switch k {
	case BodyEager:
		return "eager"
	case BodyLazy:
		return "lazy"
	case BodyDeps:
		return "deps"
	case BodyCodegen:
		return "codegen"
	default:
		return "unknown"
	}
}

// EagerBody computes every output in one invocation.
//
// Ownership convention: the body owns all initialized input slots and may
// read, move out, or destroy them. It must initialize every output slot
// before returning successfully. On failure the driver fills the remaining
// outputs with defaults, so callers never observe a partially initialized
// output tuple. Bodies hold no per-call state and must be callable
// concurrently from independent calls.
type EagerBody interface {
	Call(ctx context.Context, in, out *tuple.Tuple, stack *trace.Stack) error
}

// EagerFunc adapts a function to EagerBody.
type EagerFunc func(ctx context.Context, in, out *tuple.Tuple, stack *trace.Stack) error

// Call implements EagerBody.
func (f EagerFunc) Call(ctx context.Context, in, out *tuple.Tuple, stack *trace.Stack) error {
	return f(ctx, in, out, stack)
}

// LazyBody computes outputs across one or more entries of the same logical
// call. On each entry it may read any initialized input, request further
// input indices through the state, or mark the call done. The driver
// guarantees requested inputs are initialized before the next entry and that
// a done body is never re-entered. An entry that neither requests inputs nor
// marks done is a protocol violation and fails the call.
type LazyBody interface {
	// ScratchSize is the fixed number of scratch bytes the body needs to
	// persist intermediate state across entries. The driver allocates the
	// buffer once per logical call.
	ScratchSize() int
	// AlwaysRequired lists input indices guaranteed initialized on the
	// first entry.
	AlwaysRequired() []int
	Call(ctx context.Context, in, out *tuple.Tuple, stack *trace.Stack, state *LazyState) error
}

// DepsBody reports, for a partially bound input set, which inputs must still
// be resolved to produce the given outputs.
type DepsBody interface {
	// RequiredInputs returns the input indices needed to compute the given
	// output indices, in ascending order without duplicates.
	RequiredInputs(outputs []int) []int
}

// DepsFunc adapts a function to DepsBody.
type DepsFunc func(outputs []int) []int

// RequiredInputs implements DepsBody.
func (f DepsFunc) RequiredInputs(outputs []int) []int {
	return f(outputs)
}

// CodegenBody emits the instructions computing a function's outputs into a
// program under construction. inRegs and outRegs are the registers holding
// the function's formal inputs and receiving its formal outputs.
type CodegenBody interface {
	Emit(p *Program, inRegs, outRegs []int) error
}

// EmitFunc adapts a function to CodegenBody.
type EmitFunc func(p *Program, inRegs, outRegs []int) error

// Emit implements CodegenBody.
func (f EmitFunc) Emit(p *Program, inRegs, outRegs []int) error {
	return f(p, inRegs, outRegs)
}
