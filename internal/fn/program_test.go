package fn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/trace"
	"github.com/vk/nodefn/internal/tuple"
)

func addInstr(in, out []int) Instr {
	return Instr{
		Op: "add",
		In: in, Out: out,
		Eval: func(_ context.Context, regs []cty.Value, in, out []int) error {
			regs[out[0]] = regs[in[0]].Add(regs[in[1]])
			return nil
		},
	}
}

func constInstr(v cty.Value, out []int) Instr {
	return Instr{
		Op:  "const",
		Out: out,
		Eval: func(_ context.Context, regs []cty.Value, _, out []int) error {
			regs[out[0]] = v
			return nil
		},
	}
}

// buildAddFivePrg lowers "result = x + 5" into a program.
func buildAddFivePrg() *Program {
	p := NewProgram()
	x := p.AddReg()
	five := p.AddReg()
	sum := p.AddReg()
	p.Append(constInstr(cty.NumberIntVal(5), []int{five}))
	p.Append(addInstr([]int{x, five}, []int{sum}))
	p.BindInputs([]int{x})
	p.BindOutputs([]int{sum})
	return p
}

func TestProgram_DeriveEager(t *testing.T) {
	t.Parallel()

	p := buildAddFivePrg()
	inMeta := tuple.NewMeta(tuple.Entry{Name: "x", Type: cty.Number})
	outMeta := tuple.NewMeta(tuple.Entry{Name: "result", Type: cty.Number})

	f := New("add5", inMeta, outMeta)
	f.AttachCodegen(p)
	f.AttachEager(DeriveEager(p))
	f.Publish()

	in := f.NewInputTuple()
	require.NoError(t, in.Set(0, cty.NumberIntVal(3)))
	out := f.NewOutputTuple()
	require.NoError(t, CallEager(context.Background(), f, in, out, trace.NewStack()))

	v, err := out.Get(0)
	require.NoError(t, err)
	require.True(t, v.RawEquals(cty.NumberIntVal(8)))
}

func TestProgram_InlineIntoEnclosingProgram(t *testing.T) {
	t.Parallel()

	inner := buildAddFivePrg()

	// Outer program: result = (x + 5) + 5, built by inlining inner twice.
	outer := NewProgram()
	x := outer.AddReg()
	mid := outer.AddReg()
	end := outer.AddReg()
	require.NoError(t, inner.Emit(outer, []int{x}, []int{mid}))
	require.NoError(t, inner.Emit(outer, []int{mid}, []int{end}))
	outer.BindInputs([]int{x})
	outer.BindOutputs([]int{end})

	inMeta := tuple.NewMeta(tuple.Entry{Name: "x", Type: cty.Number})
	outMeta := tuple.NewMeta(tuple.Entry{Name: "result", Type: cty.Number})
	f := New("add10", inMeta, outMeta)
	f.AttachEager(DeriveEager(outer))
	f.Publish()

	in := f.NewInputTuple()
	require.NoError(t, in.Set(0, cty.NumberIntVal(1)))
	out := f.NewOutputTuple()
	require.NoError(t, CallEager(context.Background(), f, in, out, trace.NewStack()))

	v, err := out.Get(0)
	require.NoError(t, err)
	require.True(t, v.RawEquals(cty.NumberIntVal(11)))
}

func TestProgram_InlineRegisterMismatch(t *testing.T) {
	t.Parallel()

	inner := buildAddFivePrg()
	outer := NewProgram()
	err := inner.Emit(outer, []int{outer.AddReg(), outer.AddReg()}, []int{outer.AddReg()})
	require.Error(t, err)
	require.Contains(t, err.Error(), "register count mismatch")
}
