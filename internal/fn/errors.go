package fn

import (
	"errors"
	"fmt"
)

// ErrTupleShape is returned when a tuple passed to a driver does not match
// the function's declared input or output meta.
var ErrTupleShape = errors.New("tuple shape does not match function meta")

// BodyUnavailableError is returned when a caller requests a body variant the
// Function does not carry. It is recoverable: the caller picks a fallback
// strategy.
type BodyUnavailableError struct {
	Function string
	Kind     BodyKind
}

// Error implements error.
func (e *BodyUnavailableError) Error() string {
	return fmt.Sprintf("function %q has no %s body", e.Function, e.Kind)
}

// LazyProtocolViolationError reports a lazy body entry that neither
// requested inputs nor marked the call done. It is fatal for the call and
// must not affect sibling calls.
type LazyProtocolViolationError struct {
	Function string
	Entry    int
	Reason   string
}

// Error implements error.
func (e *LazyProtocolViolationError) Error() string {
	return fmt.Sprintf("lazy protocol violation in function %q (entry %d): %s", e.Function, e.Entry, e.Reason)
}
