package compile

import "fmt"

// GraphGenerationError reports why a source graph could not be compiled into
// a Function: an unresolvable interface, an unknown node kind, an ill-typed
// link, or a cycle among the formal dependencies. No partial Function is
// published when this error is returned.
type GraphGenerationError struct {
	Node   string // node name, when the failure is attributable to one
	Reason string
	Err    error
}

// Error implements error.
func (e *GraphGenerationError) Error() string {
	msg := "graph generation failed"
	if e.Node != "" {
		msg += fmt.Sprintf(" at node %q", e.Node)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *GraphGenerationError) Unwrap() error {
	return e.Err
}

func genErr(node, format string, args ...any) *GraphGenerationError {
	return &GraphGenerationError{Node: node, Reason: fmt.Sprintf(format, args...)}
}
