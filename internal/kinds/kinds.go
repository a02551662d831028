// Package kinds registers the built-in node kinds. Each kind builds a
// published Function; arithmetic and string kinds carry eager, deps and
// codegen bodies, the select kind is lazy, and the shader kind deliberately
// has no emitter so whole-graph lowering degrades to interpretation when a
// shader node is involved.
package kinds

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/fn"
	"github.com/vk/nodefn/internal/registry"
	"github.com/vk/nodefn/internal/trace"
	"github.com/vk/nodefn/internal/tuple"
)

// RegisterAll registers every built-in kind into r.
func RegisterAll(r *registry.Registry) {
	registerConstants(r)
	registerMath(r)
	registerStrings(r)
	registerSelect(r)
	registerShader(r)
	registerSubgraph(r)
}

// simpleSpec describes an eager kind whose outputs are a pure function of
// its inputs.
type simpleSpec struct {
	name string
	in   []tuple.Entry
	out  []tuple.Entry
	eval func(ctx context.Context, in, out *tuple.Tuple) error
	// emit lowers the kind to register instructions; nil means the kind
	// does not participate in whole-graph code generation.
	emit func(p *fn.Program, inRegs, outRegs []int) error
}

// buildSimple assembles a published Function from a simpleSpec.
func buildSimple(s simpleSpec) *fn.Function {
	f := fn.New(s.name, tuple.NewMeta(s.in...), tuple.NewMeta(s.out...))

	eval := s.eval
	f.AttachEager(fn.EagerFunc(func(ctx context.Context, in, out *tuple.Tuple, _ *trace.Stack) error {
		return eval(ctx, in, out)
	}))

	// Every output of a simple kind depends on every input.
	numIn := len(s.in)
	f.AttachDeps(fn.DepsFunc(func(outputs []int) []int {
		all := make([]int, numIn)
		for i := range all {
			all[i] = i
		}
		return all
	}))

	if s.emit != nil {
		f.AttachCodegen(fn.EmitFunc(s.emit))
	}
	return f.Publish()
}

// eagerConst is an eager body producing a single fixed output value.
func eagerConst(v cty.Value) fn.EagerFunc {
	return func(_ context.Context, _, out *tuple.Tuple, _ *trace.Stack) error {
		return out.Set(0, v)
	}
}

// registerSimple wraps buildSimple as a registry kind ignoring params.
func registerSimple(r *registry.Registry, description string, s simpleSpec) {
	r.Register(&registry.Kind{
		Name:        s.name,
		Description: description,
		Build: func(_ context.Context, _ map[string]cty.Value) (*fn.Function, error) {
			return buildSimple(s), nil
		},
	})
}

// binaryInstr builds an instruction applying op to two registers.
func binaryInstr(name string, op func(a, b cty.Value) cty.Value) func(p *fn.Program, inRegs, outRegs []int) error {
	return func(p *fn.Program, inRegs, outRegs []int) error {
		p.Append(fn.Instr{
			Op: name,
			In: inRegs, Out: outRegs,
			Eval: func(_ context.Context, regs []cty.Value, in, out []int) error {
				regs[out[0]] = op(regs[in[0]], regs[in[1]])
				return nil
			},
		})
		return nil
	}
}

func registerMath(r *registry.Registry) {
	registerSimple(r, "adds two numbers", simpleSpec{
		name: "math.add",
		in: []tuple.Entry{
			{Name: "a", Type: cty.Number},
			{Name: "b", Type: cty.Number},
		},
		out: []tuple.Entry{{Name: "sum", Type: cty.Number}},
		eval: func(_ context.Context, in, out *tuple.Tuple) error {
			a, err := in.MoveOut(0)
			if err != nil {
				return err
			}
			b, err := in.MoveOut(1)
			if err != nil {
				return err
			}
			return out.Set(0, a.Add(b))
		},
		emit: binaryInstr("math.add", cty.Value.Add),
	})

	registerSimple(r, "multiplies two numbers", simpleSpec{
		name: "math.multiply",
		in: []tuple.Entry{
			{Name: "a", Type: cty.Number},
			{Name: "b", Type: cty.Number},
		},
		out: []tuple.Entry{{Name: "product", Type: cty.Number}},
		eval: func(_ context.Context, in, out *tuple.Tuple) error {
			a, err := in.MoveOut(0)
			if err != nil {
				return err
			}
			b, err := in.MoveOut(1)
			if err != nil {
				return err
			}
			return out.Set(0, a.Multiply(b))
		},
		emit: binaryInstr("math.multiply", cty.Value.Multiply),
	})

	registerSimple(r, "negates a number", simpleSpec{
		name: "math.negate",
		in:   []tuple.Entry{{Name: "value", Type: cty.Number}},
		out:  []tuple.Entry{{Name: "negated", Type: cty.Number}},
		eval: func(_ context.Context, in, out *tuple.Tuple) error {
			v, err := in.MoveOut(0)
			if err != nil {
				return err
			}
			return out.Set(0, v.Negate())
		},
		emit: func(p *fn.Program, inRegs, outRegs []int) error {
			p.Append(fn.Instr{
				Op: "math.negate",
				In: inRegs, Out: outRegs,
				Eval: func(_ context.Context, regs []cty.Value, in, out []int) error {
					regs[out[0]] = regs[in[0]].Negate()
					return nil
				},
			})
			return nil
		},
	})

	registerSimple(r, "compares two numbers", simpleSpec{
		name: "math.less",
		in: []tuple.Entry{
			{Name: "a", Type: cty.Number},
			{Name: "b", Type: cty.Number},
		},
		out: []tuple.Entry{{Name: "less", Type: cty.Bool}},
		eval: func(_ context.Context, in, out *tuple.Tuple) error {
			a, err := in.MoveOut(0)
			if err != nil {
				return err
			}
			b, err := in.MoveOut(1)
			if err != nil {
				return err
			}
			return out.Set(0, a.LessThan(b))
		},
		emit: binaryInstr("math.less", cty.Value.LessThan),
	})
}

func registerStrings(r *registry.Registry) {
	registerSimple(r, "concatenates two strings", simpleSpec{
		name: "str.concat",
		in: []tuple.Entry{
			{Name: "a", Type: cty.String},
			{Name: "b", Type: cty.String},
		},
		out: []tuple.Entry{{Name: "joined", Type: cty.String}},
		eval: func(_ context.Context, in, out *tuple.Tuple) error {
			a, err := in.MoveOut(0)
			if err != nil {
				return err
			}
			b, err := in.MoveOut(1)
			if err != nil {
				return err
			}
			return out.Set(0, cty.StringVal(a.AsString()+b.AsString()))
		},
		emit: func(p *fn.Program, inRegs, outRegs []int) error {
			p.Append(fn.Instr{
				Op: "str.concat",
				In: inRegs, Out: outRegs,
				Eval: func(_ context.Context, regs []cty.Value, in, out []int) error {
					regs[out[0]] = cty.StringVal(regs[in[0]].AsString() + regs[in[1]].AsString())
					return nil
				},
			})
			return nil
		},
	})
}

// constParam extracts and type-checks the "value" param of a constant kind.
func constParam(params map[string]cty.Value, want cty.Type) (cty.Value, error) {
	v, ok := params["value"]
	if !ok {
		return cty.NilVal, fmt.Errorf("constant node requires a %q param", "value")
	}
	if !v.Type().Equals(want) {
		return cty.NilVal, fmt.Errorf("constant param has type %s, want %s", v.Type().FriendlyName(), want.FriendlyName())
	}
	return v, nil
}

func registerConstants(r *registry.Registry) {
	for _, c := range []struct {
		name string
		typ  cty.Type
	}{
		{name: "const.number", typ: cty.Number},
		{name: "const.string", typ: cty.String},
		{name: "const.bool", typ: cty.Bool},
	} {
		typ := c.typ
		name := c.name
		r.Register(&registry.Kind{
			Name:        name,
			Description: "produces a constant value",
			Build: func(_ context.Context, params map[string]cty.Value) (*fn.Function, error) {
				v, err := constParam(params, typ)
				if err != nil {
					return nil, err
				}
				return buildSimple(simpleSpec{
					name: name,
					out:  []tuple.Entry{{Name: "value", Type: typ}},
					eval: func(_ context.Context, _, out *tuple.Tuple) error {
						return out.Set(0, v)
					},
					emit: func(p *fn.Program, _, outRegs []int) error {
						p.Append(fn.Instr{
							Op:  name,
							Out: outRegs,
							Eval: func(_ context.Context, regs []cty.Value, _, out []int) error {
								regs[out[0]] = v
								return nil
							},
						})
						return nil
					},
				}), nil
			},
		})
	}
}
