package fn

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/trace"
	"github.com/vk/nodefn/internal/tuple"
)

// Instr is one register instruction of a lowered program. Eval reads the
// registers named by In and writes the registers named by Out.
type Instr struct {
	Op   string
	In   []int
	Out  []int
	Eval func(ctx context.Context, regs []cty.Value, in, out []int) error
}

// Program is a linear register program lowered from a dependency graph. It
// is the code-generation artifact of this runtime: instead of interpreting
// the graph node by node with tuple traffic per node, a program runs a flat
// instruction list over a register file.
//
// A Program implements CodegenBody, so a compiled subgraph can be inlined
// into an enclosing program.
type Program struct {
	regs    int
	inputs  []int
	outputs []int
	instrs  []Instr
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// AddReg allocates a fresh register and returns its index.
func (p *Program) AddReg() int {
	r := p.regs
	p.regs++
	return r
}

// BindInputs declares which registers hold the program's formal inputs.
func (p *Program) BindInputs(regs []int) {
	p.inputs = regs
}

// BindOutputs declares which registers hold the program's formal outputs.
func (p *Program) BindOutputs(regs []int) {
	p.outputs = regs
}

// Append adds an instruction.
func (p *Program) Append(instr Instr) {
	p.instrs = append(p.instrs, instr)
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.instrs)
}

// Emit implements CodegenBody by inlining this program into dst. Registers
// are remapped: formal inputs onto inRegs, formal outputs onto outRegs,
// intermediates onto fresh dst registers.
func (p *Program) Emit(dst *Program, inRegs, outRegs []int) error {
	if len(inRegs) != len(p.inputs) || len(outRegs) != len(p.outputs) {
		return fmt.Errorf("program inline: register count mismatch (have %d in / %d out, want %d / %d)",
			len(inRegs), len(outRegs), len(p.inputs), len(p.outputs))
	}
	remap := make(map[int]int, p.regs)
	for i, r := range p.inputs {
		remap[r] = inRegs[i]
	}
	for i, r := range p.outputs {
		remap[r] = outRegs[i]
	}
	mapReg := func(r int) int {
		if m, ok := remap[r]; ok {
			return m
		}
		m := dst.AddReg()
		remap[r] = m
		return m
	}
	for _, instr := range p.instrs {
		in := make([]int, len(instr.In))
		for i, r := range instr.In {
			in[i] = mapReg(r)
		}
		out := make([]int, len(instr.Out))
		for i, r := range instr.Out {
			out[i] = mapReg(r)
		}
		dst.Append(Instr{Op: instr.Op, In: in, Out: out, Eval: instr.Eval})
	}
	return nil
}

// run executes the instruction list over a fresh register file seeded from
// the input tuple.
func (p *Program) run(ctx context.Context, in, out *tuple.Tuple) error {
	regs := make([]cty.Value, p.regs)
	for i, r := range p.inputs {
		v, err := in.MoveOut(i)
		if err != nil {
			return fmt.Errorf("program input %d: %w", i, err)
		}
		regs[r] = v
	}
	for _, instr := range p.instrs {
		if err := instr.Eval(ctx, regs, instr.In, instr.Out); err != nil {
			return fmt.Errorf("instruction %q: %w", instr.Op, err)
		}
	}
	for i, r := range p.outputs {
		if err := out.Set(i, regs[r]); err != nil {
			return fmt.Errorf("program output %d: %w", i, err)
		}
	}
	return nil
}

// DeriveEager wraps a lowered program as an eager body. This is the
// "compile the generated code instead of interpreting node by node" path;
// the graph interpreter remains the always-available baseline.
func DeriveEager(p *Program) EagerBody {
	return EagerFunc(func(ctx context.Context, in, out *tuple.Tuple, _ *trace.Stack) error {
		return p.run(ctx, in, out)
	})
}
