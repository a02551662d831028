package fn

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/trace"
	"github.com/vk/nodefn/internal/tuple"
)

// addFunction returns a published function computing sum = a + b.
func addFunction(t *testing.T) *Function {
	t.Helper()
	in, out := twoNumberMetas()
	f := New("add", in, out)
	f.AttachEager(EagerFunc(func(_ context.Context, in, out *tuple.Tuple, _ *trace.Stack) error {
		a, err := in.MoveOut(0)
		if err != nil {
			return err
		}
		b, err := in.MoveOut(1)
		if err != nil {
			return err
		}
		return out.Set(0, a.Add(b))
	}))
	return f.Publish()
}

func TestCallEager_Success(t *testing.T) {
	t.Parallel()

	f := addFunction(t)
	in := f.NewInputTuple()
	out := f.NewOutputTuple()
	require.NoError(t, in.Set(0, cty.NumberIntVal(3)))
	require.NoError(t, in.Set(1, cty.NumberIntVal(5)))

	stack := trace.NewStack()
	require.NoError(t, CallEager(context.Background(), f, in, out, stack))

	sum, err := out.Get(0)
	require.NoError(t, err)
	require.True(t, sum.RawEquals(cty.NumberIntVal(8)))
	require.Equal(t, 0, stack.Depth(), "frames must be popped after the call")
}

func TestCallEager_UninitializedInputFails(t *testing.T) {
	t.Parallel()

	f := addFunction(t)
	in := f.NewInputTuple()
	out := f.NewOutputTuple()
	require.NoError(t, in.Set(1, cty.NumberIntVal(5)))

	err := CallEager(context.Background(), f, in, out, trace.NewStack())
	require.ErrorIs(t, err, tuple.ErrSlotEmpty, "an empty input must be a documented precondition violation, not a silent zero")
	require.True(t, out.FullyInitialized(), "outputs are default-initialized even on failure")
}

func TestCallEager_FailureCarriesTraceAndInitializesOutputs(t *testing.T) {
	t.Parallel()

	in, outMeta := twoNumberMetas()
	boom := errors.New("boom")
	f := New("exploder", in, outMeta)
	f.AttachEager(EagerFunc(func(_ context.Context, _, _ *tuple.Tuple, _ *trace.Stack) error {
		return boom
	}))
	f.Publish()

	inT := f.NewInputTuple()
	outT := f.NewOutputTuple()
	require.NoError(t, inT.Set(0, cty.NumberIntVal(1)))
	require.NoError(t, inT.Set(1, cty.NumberIntVal(2)))

	stack := trace.NewStack()
	stack.Push(trace.TextFrame("caller"))
	err := CallEager(context.Background(), f, inT, outT, stack)
	require.ErrorIs(t, err, boom)

	var callErr *trace.CallError
	require.ErrorAs(t, err, &callErr)
	require.Equal(t, []string{"caller", "exploder"}, callErr.Trace)
	require.True(t, outT.FullyInitialized())
	require.Equal(t, 1, stack.Depth(), "only the caller's own frame remains")
}

func TestCallEager_NestedFailurePreservesFullTrace(t *testing.T) {
	t.Parallel()

	inMeta, outMeta := twoNumberMetas()
	boom := errors.New("deep boom")
	inner := New("inner", inMeta, outMeta)
	inner.AttachEager(EagerFunc(func(_ context.Context, _, _ *tuple.Tuple, _ *trace.Stack) error {
		return boom
	}))
	inner.Publish()

	outer := New("outer", inMeta, outMeta)
	outer.AttachEager(EagerFunc(func(ctx context.Context, _, _ *tuple.Tuple, stack *trace.Stack) error {
		return CallEager(ctx, inner, inner.NewInputTuple(), inner.NewOutputTuple(), stack)
	}))
	outer.Publish()

	stack := trace.NewStack()
	stack.Push(trace.TextFrame("root"))
	err := CallEager(context.Background(), outer, outer.NewInputTuple(), outer.NewOutputTuple(), stack)
	require.ErrorIs(t, err, boom)

	var callErr *trace.CallError
	require.ErrorAs(t, err, &callErr)
	require.Equal(t, []string{"root", "outer", "inner"}, callErr.Trace,
		"the trace is captured at the innermost wrap, while every frame is still on the stack")
	require.Equal(t, boom, callErr.Err, "outer levels must not wrap an already-traced error again")
}

func TestCallEager_DestroysUnusedInputs(t *testing.T) {
	t.Parallel()

	capsule := cty.Capsule("res", reflect.TypeOf(orderedCloser{}))
	inMeta := tuple.NewMeta(tuple.Entry{Name: "r", Type: capsule})
	outMeta := tuple.NewMeta(tuple.Entry{Name: "ok", Type: cty.Bool})

	f := New("ignorer", inMeta, outMeta)
	f.AttachEager(EagerFunc(func(_ context.Context, _, out *tuple.Tuple, _ *trace.Stack) error {
		// Never touches its input.
		return out.Set(0, cty.True)
	}))
	f.Publish()

	var order []string
	in := f.NewInputTuple()
	require.NoError(t, in.Set(0, cty.CapsuleVal(capsule, &orderedCloser{name: "r", order: &order})))
	out := f.NewOutputTuple()

	require.NoError(t, CallEager(context.Background(), f, in, out, trace.NewStack()))
	require.Equal(t, []string{"r"}, order, "unused initialized input must be destroyed by the framework")
	require.False(t, in.IsInitialized(0))
}

func TestCallEager_ShapeMismatch(t *testing.T) {
	t.Parallel()

	f := addFunction(t)
	wrong := tuple.New(tuple.NewMeta(tuple.Entry{Name: "x", Type: cty.String}))
	err := CallEager(context.Background(), f, wrong, f.NewOutputTuple(), trace.NewStack())
	require.ErrorIs(t, err, ErrTupleShape)
}

func TestCallEager_BodyUnavailable(t *testing.T) {
	t.Parallel()

	in, out := twoNumberMetas()
	f := New("lazy-only", in, out).Publish()
	err := CallEager(context.Background(), f, f.NewInputTuple(), f.NewOutputTuple(), trace.NewStack())
	var unavailable *BodyUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

// conditionalLazy implements the canonical lazy protocol scenario: input 0
// (bool) is always required; input 1 is requested only when input 0 is true.
type conditionalLazy struct{}

func (conditionalLazy) ScratchSize() int      { return 1 }
func (conditionalLazy) AlwaysRequired() []int { return []int{0} }

func (conditionalLazy) Call(_ context.Context, in, out *tuple.Tuple, _ *trace.Stack, state *LazyState) error {
	if state.IsFirstEntry() {
		cond, err := in.Get(0)
		if err != nil {
			return err
		}
		if cond.False() {
			state.Scratch()[0] = 0
			if err := out.Set(0, cty.NumberIntVal(0)); err != nil {
				return err
			}
			state.Done()
			return nil
		}
		state.Scratch()[0] = 1
		state.RequestInput(1)
		return nil
	}
	if state.Scratch()[0] != 1 {
		return errors.New("scratch buffer did not survive re-entry")
	}
	v, err := in.MoveOut(1)
	if err != nil {
		return err
	}
	if err := out.Set(0, v); err != nil {
		return err
	}
	state.Done()
	return nil
}

func lazySelectFunction() *Function {
	inMeta := tuple.NewMeta(
		tuple.Entry{Name: "cond", Type: cty.Bool},
		tuple.Entry{Name: "value", Type: cty.Number},
	)
	outMeta := tuple.NewMeta(tuple.Entry{Name: "result", Type: cty.Number})
	f := New("conditional", inMeta, outMeta)
	f.AttachLazy(conditionalLazy{})
	return f.Publish()
}

func TestCallLazy_ConditionFalse_FinishesOnFirstEntry(t *testing.T) {
	t.Parallel()

	f := lazySelectFunction()
	in := f.NewInputTuple()
	require.NoError(t, in.Set(0, cty.False))
	out := f.NewOutputTuple()

	supplied := 0
	err := CallLazy(context.Background(), f, in, out, trace.NewStack(), func(_ context.Context, idx int) (cty.Value, error) {
		supplied++
		return cty.NumberIntVal(42), nil
	})
	require.NoError(t, err)
	require.Equal(t, 0, supplied, "index 1 must never be requested when the condition is false")

	v, err := out.Get(0)
	require.NoError(t, err)
	require.True(t, v.RawEquals(cty.NumberIntVal(0)))
}

func TestCallLazy_ConditionTrue_RequestsAndFinishesOnSecondEntry(t *testing.T) {
	t.Parallel()

	f := lazySelectFunction()
	in := f.NewInputTuple()
	require.NoError(t, in.Set(0, cty.True))
	out := f.NewOutputTuple()

	var suppliedIdx []int
	err := CallLazy(context.Background(), f, in, out, trace.NewStack(), func(_ context.Context, idx int) (cty.Value, error) {
		suppliedIdx = append(suppliedIdx, idx)
		return cty.NumberIntVal(42), nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{1}, suppliedIdx)

	v, err := out.Get(0)
	require.NoError(t, err)
	require.True(t, v.RawEquals(cty.NumberIntVal(42)))
}

// stallingLazy violates the protocol: it neither requests nor finishes.
type stallingLazy struct{}

func (stallingLazy) ScratchSize() int      { return 0 }
func (stallingLazy) AlwaysRequired() []int { return nil }

func (stallingLazy) Call(_ context.Context, _, _ *tuple.Tuple, _ *trace.Stack, _ *LazyState) error {
	return nil
}

func TestCallLazy_ProtocolViolation(t *testing.T) {
	t.Parallel()

	inMeta := tuple.NewMeta(tuple.Entry{Name: "x", Type: cty.Number})
	outMeta := tuple.NewMeta(tuple.Entry{Name: "y", Type: cty.Number})
	f := New("staller", inMeta, outMeta)
	f.AttachLazy(stallingLazy{})
	f.Publish()

	out := f.NewOutputTuple()
	err := CallLazy(context.Background(), f, f.NewInputTuple(), out, trace.NewStack(), nil)

	var violation *LazyProtocolViolationError
	require.ErrorAs(t, err, &violation)
	require.Equal(t, 1, violation.Entry)
	require.True(t, out.FullyInitialized(), "even a protocol violation leaves outputs initialized")
}
