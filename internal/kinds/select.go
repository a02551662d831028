package kinds

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/fn"
	"github.com/vk/nodefn/internal/registry"
	"github.com/vk/nodefn/internal/trace"
	"github.com/vk/nodefn/internal/tuple"
)

// Select input indices. The condition is always required; exactly one of
// the branches is requested per call.
const (
	selectCond = 0
	selectThen = 1
	selectElse = 2
)

// selectLazy is the demand-driven body of select.number: the untaken branch
// is never requested, so its upstream nodes are never evaluated.
type selectLazy struct{}

// ScratchSize persists the chosen branch index between entries.
func (selectLazy) ScratchSize() int { return 1 }

func (selectLazy) AlwaysRequired() []int { return []int{selectCond} }

func (selectLazy) Call(_ context.Context, in, out *tuple.Tuple, _ *trace.Stack, state *fn.LazyState) error {
	if state.IsFirstEntry() {
		cond, err := in.Get(selectCond)
		if err != nil {
			return err
		}
		branch := selectElse
		if cond.True() {
			branch = selectThen
		}
		state.Scratch()[0] = byte(branch)
		if in.IsInitialized(branch) {
			return selectFinish(in, out, branch, state)
		}
		state.RequestInput(branch)
		return nil
	}
	return selectFinish(in, out, int(state.Scratch()[0]), state)
}

func selectFinish(in, out *tuple.Tuple, branch int, state *fn.LazyState) error {
	v, err := in.MoveOut(branch)
	if err != nil {
		return err
	}
	if err := out.Set(0, v); err != nil {
		return err
	}
	state.Done()
	return nil
}

// selectDeps: without knowing the condition value, both branches are
// conservatively required; the condition always is.
func selectDeps(outputs []int) []int {
	if len(outputs) == 0 {
		return nil
	}
	return []int{selectCond, selectThen, selectElse}
}

func registerSelect(r *registry.Registry) {
	r.Register(&registry.Kind{
		Name:        "select.number",
		Description: "picks one of two numbers by a condition, evaluating only the taken branch",
		Build: func(_ context.Context, _ map[string]cty.Value) (*fn.Function, error) {
			inMeta := tuple.NewMeta(
				tuple.Entry{Name: "condition", Type: cty.Bool},
				tuple.Entry{Name: "then", Type: cty.Number},
				tuple.Entry{Name: "else", Type: cty.Number},
			)
			outMeta := tuple.NewMeta(tuple.Entry{Name: "result", Type: cty.Number})
			f := fn.New("select.number", inMeta, outMeta)
			f.AttachLazy(selectLazy{})
			f.AttachDeps(fn.DepsFunc(selectDeps))
			// The strict lowering evaluates both branches; laziness is an
			// interpreter-only property.
			f.AttachCodegen(fn.EmitFunc(func(p *fn.Program, inRegs, outRegs []int) error {
				p.Append(fn.Instr{
					Op: "select.number",
					In: inRegs, Out: outRegs,
					Eval: func(_ context.Context, regs []cty.Value, in, out []int) error {
						if regs[in[selectCond]].True() {
							regs[out[0]] = regs[in[selectThen]]
						} else {
							regs[out[0]] = regs[in[selectElse]]
						}
						return nil
					},
				})
				return nil
			}))
			return f.Publish(), nil
		},
	})
}
