// Package trace implements the call-scoped diagnostic stack. Every nested
// invocation pushes a frame identifying the callee before the call and pops
// it unconditionally afterward, so a failure deep inside a nested graph
// carries a complete, ordered call chain.
package trace

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// Frame is one entry on the diagnostic stack.
type Frame interface {
	// Describe returns a single-line descriptor for error reports.
	Describe() string
}

// TextFrame is a frame identified by plain text, typically a function name.
type TextFrame string

// Describe implements Frame.
func (f TextFrame) Describe() string {
	return string(f)
}

// SourceFrame points at the originating location in a graph definition file.
type SourceFrame struct {
	Name  string
	Range hcl.Range
}

// Describe implements Frame.
func (f SourceFrame) Describe() string {
	return fmt.Sprintf("%s (%s)", f.Name, f.Range.String())
}

// Stack is the diagnostic stack for one call tree. Push and pop must be
// strictly nested; frames are stack-order only, there is no random access.
// A Stack is call-local and not safe for concurrent use.
type Stack struct {
	frames []Frame
}

// NewStack returns an empty diagnostic stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push adds a frame for a nested call.
func (s *Stack) Push(f Frame) {
	s.frames = append(s.frames, f)
}

// Pop removes the most recent frame. Popping an empty stack panics; it means
// push/pop nesting is broken, which is a bug, not an input error.
func (s *Stack) Pop() {
	if len(s.frames) == 0 {
		panic("trace: pop on empty stack")
	}
	s.frames = s.frames[:len(s.frames)-1]
}

// Depth returns the number of frames currently on the stack.
func (s *Stack) Depth() int {
	return len(s.frames)
}

// Descriptors returns the current trace, outermost call first.
func (s *Stack) Descriptors() []string {
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.Describe()
	}
	return out
}

// CallError wraps a runtime call failure with the diagnostic trace captured
// at the moment the failure was observed.
type CallError struct {
	Trace []string
	Err   error
}

// Error implements error.
func (e *CallError) Error() string {
	if len(e.Trace) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s\n  in: %s", e.Err.Error(), strings.Join(e.Trace, " > "))
}

// Unwrap exposes the underlying failure for errors.Is and errors.As.
func (e *CallError) Unwrap() error {
	return e.Err
}
