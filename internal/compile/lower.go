package compile

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/ctxlog"
	"github.com/vk/nodefn/internal/fn"
)

// lowerProgram flattens the dependency graph into a linear register program
// by concatenating the per-node emitters in evaluation order. It returns
// (nil, nil) when some required node kind has no emitter; that is a
// capability gap, not an error, and the compiled Function simply keeps the
// interpreter as its only eager body.
func lowerProgram(ctx context.Context, dg *DepGraph) (*fn.Program, error) {
	logger := ctxlog.FromContext(ctx)
	for _, id := range dg.required {
		if !dg.fns[id].HasBody(fn.BodyCodegen) {
			logger.Debug("skipping program lowering", "node", dg.frozen.Node(id).Name, "kind", dg.frozen.Node(id).Kind)
			return nil, nil
		}
	}

	p := fn.NewProgram()
	regOf := make(map[DataSocket]int)

	inputRegs := make([]int, len(dg.formalIn))
	for i, d := range dg.formalIn {
		r := p.AddReg()
		regOf[DataSocket{Node: dg.inputNode, Socket: d.Name}] = r
		inputRegs[i] = r
	}

	for _, id := range dg.required {
		nf := dg.fns[id]
		inMeta := nf.InputMeta()

		inRegs := make([]int, inMeta.Len())
		for i := 0; i < inMeta.Len(); i++ {
			if link, ok := dg.frozen.IncomingLink(id, inMeta.Name(i)); ok {
				r, ok := regOf[DataSocket{Node: link.FromNode, Socket: link.FromSocket}]
				if !ok {
					return nil, fmt.Errorf("lowering node %q: origin socket %s.%s has no register",
						dg.frozen.Node(id).Name, dg.frozen.Node(link.FromNode).Name, link.FromSocket)
				}
				inRegs[i] = r
				continue
			}
			// Unlinked input: materialize the slot default.
			r := p.AddReg()
			def := inMeta.Default(i)
			p.Append(fn.Instr{
				Op:  "default",
				Out: []int{r},
				Eval: func(_ context.Context, regs []cty.Value, _, out []int) error {
					regs[out[0]] = def
					return nil
				},
			})
			inRegs[i] = r
		}

		outMeta := nf.OutputMeta()
		outRegs := make([]int, outMeta.Len())
		for j := 0; j < outMeta.Len(); j++ {
			r := p.AddReg()
			regOf[DataSocket{Node: id, Socket: outMeta.Name(j)}] = r
			outRegs[j] = r
		}

		codegen, err := nf.Codegen()
		if err != nil {
			return nil, err
		}
		if err := codegen.Emit(p, inRegs, outRegs); err != nil {
			return nil, fmt.Errorf("emitting node %q: %w", dg.frozen.Node(id).Name, err)
		}
	}

	outputRegs := make([]int, len(dg.outputOrigins))
	for k, origin := range dg.outputOrigins {
		r, ok := regOf[origin]
		if !ok {
			return nil, fmt.Errorf("formal output %d: origin socket has no register", k)
		}
		outputRegs[k] = r
	}

	p.BindInputs(inputRegs)
	p.BindOutputs(outputRegs)
	logger.Debug("graph lowered to program", "instructions", p.Len())
	return p, nil
}
