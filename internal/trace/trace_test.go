package trace

import (
	"errors"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/require"
)

func TestStack_Nesting(t *testing.T) {
	t.Parallel()

	s := NewStack()
	s.Push(TextFrame("outer"))
	s.Push(SourceFrame{Name: "inner", Range: hcl.Range{
		Filename: "graph.hcl",
		Start:    hcl.Pos{Line: 3, Column: 1},
		End:      hcl.Pos{Line: 3, Column: 10},
	}})

	require.Equal(t, 2, s.Depth())
	desc := s.Descriptors()
	require.Equal(t, "outer", desc[0])
	require.Contains(t, desc[1], "inner")
	require.Contains(t, desc[1], "graph.hcl")

	s.Pop()
	require.Equal(t, []string{"outer"}, s.Descriptors())
	s.Pop()
	require.Equal(t, 0, s.Depth())
}

func TestStack_PopEmptyPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		NewStack().Pop()
	})
}

func TestCallError(t *testing.T) {
	t.Parallel()

	cause := errors.New("division by zero")
	err := &CallError{Trace: []string{"graph", "divide"}, Err: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "division by zero")
	require.Contains(t, err.Error(), "graph > divide")
}
