package fn

import (
	"errors"
	"fmt"
	"io"

	"github.com/vk/nodefn/internal/tuple"
)

// Function is a named, immutable-after-publish aggregate of execution bodies
// plus the tuple shapes of its formal inputs and outputs. It additionally
// owns an ordered set of named resources (for example the frozen source
// graph a compiler built it from) that live exactly as long as the Function.
type Function struct {
	name    string
	inMeta  *tuple.Meta
	outMeta *tuple.Meta

	eager   EagerBody
	lazy    LazyBody
	deps    DepsBody
	codegen CodegenBody

	resources []ownedResource
	published bool
}

type ownedResource struct {
	value     any
	debugName string
}

// New creates an unpublished Function. The compiler attaches bodies and
// resources, then calls Publish before handing it to callers.
func New(name string, inMeta, outMeta *tuple.Meta) *Function {
	return &Function{name: name, inMeta: inMeta, outMeta: outMeta}
}

// Name returns the function's name as used in diagnostic frames.
func (f *Function) Name() string {
	return f.name
}

// InputMeta returns the shape of the function's input tuple.
func (f *Function) InputMeta() *tuple.Meta {
	return f.inMeta
}

// OutputMeta returns the shape of the function's output tuple.
func (f *Function) OutputMeta() *tuple.Meta {
	return f.outMeta
}

// NewInputTuple allocates an empty tuple matching the input shape.
func (f *Function) NewInputTuple() *tuple.Tuple {
	return tuple.New(f.inMeta)
}

// NewOutputTuple allocates an empty tuple matching the output shape.
func (f *Function) NewOutputTuple() *tuple.Tuple {
	return tuple.New(f.outMeta)
}

func (f *Function) mustBeUnpublished(what string) {
	if f.published {
		panic(fmt.Sprintf("fn: %s on published function %q", what, f.name))
	}
}

// AttachEager sets the eager body. Attaching twice or after publish panics;
// bodies are wired by compiler code, not user input.
func (f *Function) AttachEager(b EagerBody) {
	f.mustBeUnpublished("AttachEager")
	if f.eager != nil {
		panic(fmt.Sprintf("fn: function %q already has an eager body", f.name))
	}
	f.eager = b
}

// AttachLazy sets the lazy body.
func (f *Function) AttachLazy(b LazyBody) {
	f.mustBeUnpublished("AttachLazy")
	if f.lazy != nil {
		panic(fmt.Sprintf("fn: function %q already has a lazy body", f.name))
	}
	f.lazy = b
}

// AttachDeps sets the dependency-analysis body.
func (f *Function) AttachDeps(b DepsBody) {
	f.mustBeUnpublished("AttachDeps")
	if f.deps != nil {
		panic(fmt.Sprintf("fn: function %q already has a deps body", f.name))
	}
	f.deps = b
}

// AttachCodegen sets the code-generation body.
func (f *Function) AttachCodegen(b CodegenBody) {
	f.mustBeUnpublished("AttachCodegen")
	if f.codegen != nil {
		panic(fmt.Sprintf("fn: function %q already has a codegen body", f.name))
	}
	f.codegen = b
}

// HasBody reports whether the function carries the given body variant.
func (f *Function) HasBody(kind BodyKind) bool {
	switch kind {
	case BodyEager:
		return f.eager != nil
	case BodyLazy:
		return f.lazy != nil
	case BodyDeps:
		return f.deps != nil
	case BodyCodegen:
		return f.codegen != nil
	default:
		return false
	}
}

// Eager returns the eager body or a BodyUnavailableError.
func (f *Function) Eager() (EagerBody, error) {
	if f.eager == nil {
		return nil, &BodyUnavailableError{Function: f.name, Kind: BodyEager}
	}
	return f.eager, nil
}

// Lazy returns the lazy body or a BodyUnavailableError.
func (f *Function) Lazy() (LazyBody, error) {
	if f.lazy == nil {
		return nil, &BodyUnavailableError{Function: f.name, Kind: BodyLazy}
	}
	return f.lazy, nil
}

// Deps returns the dependency-analysis body or a BodyUnavailableError.
func (f *Function) Deps() (DepsBody, error) {
	if f.deps == nil {
		return nil, &BodyUnavailableError{Function: f.name, Kind: BodyDeps}
	}
	return f.deps, nil
}

// Codegen returns the code-generation body or a BodyUnavailableError.
func (f *Function) Codegen() (CodegenBody, error) {
	if f.codegen == nil {
		return nil, &BodyUnavailableError{Function: f.name, Kind: BodyCodegen}
	}
	return f.codegen, nil
}

// AddResource transfers ownership of a resource into the Function. Only
// allowed before publish. Resources are released in reverse acquisition
// order when the Function is closed.
func (f *Function) AddResource(value any, debugName string) {
	f.mustBeUnpublished("AddResource")
	f.resources = append(f.resources, ownedResource{value: value, debugName: debugName})
}

// Resource looks up an owned resource by its debug name. Intended for
// debugging surfaces such as graph visualization, not for execution paths.
func (f *Function) Resource(debugName string) (any, bool) {
	for _, r := range f.resources {
		if r.debugName == debugName {
			return r.value, true
		}
	}
	return nil, false
}

// Publish freezes the Function: no further bodies or resources may be
// attached. Returns the receiver for chaining.
func (f *Function) Publish() *Function {
	f.published = true
	return f
}

// Close releases owned resources in reverse acquisition order. Resources
// implementing io.Closer are closed; close failures are joined and
// returned, later resources are still released.
func (f *Function) Close() error {
	var errs []error
	for i := len(f.resources) - 1; i >= 0; i-- {
		if closer, ok := f.resources[i].value.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing resource %q: %w", f.resources[i].debugName, err))
			}
		}
	}
	f.resources = nil
	return errors.Join(errs...)
}
