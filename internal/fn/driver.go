package fn

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/ctxlog"
	"github.com/vk/nodefn/internal/trace"
	"github.com/vk/nodefn/internal/tuple"
)

// SupplyFunc produces the value for a lazily requested input index. The
// lazy driver calls it for every requested index that is still empty.
type SupplyFunc func(ctx context.Context, index int) (cty.Value, error)

// CallEager invokes the function's eager body with the framework guarantees
// of the calling convention: a diagnostic frame is pushed around the call
// and popped unconditionally, leftover initialized input slots are destroyed
// after the call, and on failure every output slot is default-initialized
// before the error (wrapped with the captured trace) reaches the caller.
func CallEager(ctx context.Context, f *Function, in, out *tuple.Tuple, stack *trace.Stack) error {
	return CallEagerFrame(ctx, f, in, out, stack, nil)
}

// CallEagerFrame is CallEager with an extra caller-supplied frame (typically
// a SourceFrame pointing at the node that triggered the call) pushed outside
// the function's own frame.
func CallEagerFrame(ctx context.Context, f *Function, in, out *tuple.Tuple, stack *trace.Stack, extra trace.Frame) error {
	body, err := f.Eager()
	if err != nil {
		return err
	}
	if err := checkShapes(f, in, out); err != nil {
		return err
	}
	return invokeWithFrames(ctx, f, in, out, stack, extra, func() error {
		return body.Call(ctx, in, out, stack)
	})
}

// CallLazy drives the function's lazy body to completion for one logical
// call. Always-required inputs are supplied before the first entry; after
// each entry, every requested index that is still empty is supplied before
// the body is re-entered. A done body is never re-entered. An entry that
// requests nothing and does not mark done fails the call with a
// LazyProtocolViolationError.
func CallLazy(ctx context.Context, f *Function, in, out *tuple.Tuple, stack *trace.Stack, supply SupplyFunc) error {
	body, err := f.Lazy()
	if err != nil {
		return err
	}
	if err := checkShapes(f, in, out); err != nil {
		return err
	}
	state := NewLazyState(body.ScratchSize())

	return invokeWithFrames(ctx, f, in, out, stack, nil, func() error {
		logger := ctxlog.FromContext(ctx).With("function", f.Name(), "call_id", uuid.NewString())

		if err := supplyInputs(ctx, f, in, body.AlwaysRequired(), supply); err != nil {
			return err
		}
		for {
			state.beginEntry()
			logger.Debug("lazy entry", "entry", state.EntryCount())
			if err := body.Call(ctx, in, out, stack, state); err != nil {
				return err
			}
			if state.IsDone() {
				logger.Debug("lazy call done", "entries", state.EntryCount())
				return nil
			}
			requested := slices.Clone(state.Requested())
			if len(requested) == 0 {
				return &LazyProtocolViolationError{
					Function: f.Name(),
					Entry:    state.EntryCount(),
					Reason:   "entry requested no inputs and did not mark the call done",
				}
			}
			for _, idx := range requested {
				if idx < 0 || idx >= f.InputMeta().Len() {
					return &LazyProtocolViolationError{
						Function: f.Name(),
						Entry:    state.EntryCount(),
						Reason:   fmt.Sprintf("requested input index %d is out of range", idx),
					}
				}
			}
			logger.Debug("lazy inputs requested", "indices", requested)
			if err := supplyInputs(ctx, f, in, requested, supply); err != nil {
				return err
			}
		}
	})
}

// supplyInputs fills the given input indices that are still empty.
func supplyInputs(ctx context.Context, f *Function, in *tuple.Tuple, indices []int, supply SupplyFunc) error {
	for _, idx := range indices {
		if in.IsInitialized(idx) {
			continue
		}
		if supply == nil {
			return fmt.Errorf("input %q (index %d): %w", f.InputMeta().Name(idx), idx, tuple.ErrSlotEmpty)
		}
		v, err := supply(ctx, idx)
		if err != nil {
			return fmt.Errorf("supplying input %q: %w", f.InputMeta().Name(idx), err)
		}
		if err := in.Set(idx, v); err != nil {
			return err
		}
	}
	return nil
}

func checkShapes(f *Function, in, out *tuple.Tuple) error {
	if !in.Meta().Equals(f.InputMeta()) {
		return fmt.Errorf("function %q input: %w", f.Name(), ErrTupleShape)
	}
	if !out.Meta().Equals(f.OutputMeta()) {
		return fmt.Errorf("function %q output: %w", f.Name(), ErrTupleShape)
	}
	return nil
}

// invokeWithFrames wraps a body invocation with frame bookkeeping and the
// post-call tuple guarantees. The trace is captured while the frames are
// still on the stack.
func invokeWithFrames(ctx context.Context, f *Function, in, out *tuple.Tuple, stack *trace.Stack, extra trace.Frame, invoke func() error) error {
	if extra != nil {
		stack.Push(extra)
		defer stack.Pop()
	}
	stack.Push(trace.TextFrame(f.Name()))
	defer stack.Pop()

	err := invoke()
	if err == nil {
		in.Destroy()
		return nil
	}

	// Failure path: callers must still see fully initialized outputs.
	out.InitDefaults()
	in.Destroy()
	ctxlog.FromContext(ctx).Error("function call failed", "function", f.Name(), "error", err)

	// The innermost wrap happens while every frame of the nested call chain
	// is still on the stack. Outer levels must not re-wrap: their frames have
	// already been captured, and a fresh capture here would see only the
	// outer frames.
	var ce *trace.CallError
	if errors.As(err, &ce) {
		return err
	}
	return &trace.CallError{Trace: stack.Descriptors(), Err: err}
}
