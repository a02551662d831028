package kinds

import (
	"context"
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/fn"
	"github.com/vk/nodefn/internal/registry"
	"github.com/vk/nodefn/internal/trace"
	"github.com/vk/nodefn/internal/tuple"
)

// FunctionType is the capsule type carrying a compiled Function as a node
// param, so a graph node can invoke another compiled graph (group nodes).
var FunctionType = cty.Capsule("function", reflect.TypeOf(fn.Function{}))

// FunctionVal wraps a compiled Function for use as a node param.
func FunctionVal(f *fn.Function) cty.Value {
	return cty.CapsuleVal(FunctionType, f)
}

func registerSubgraph(r *registry.Registry) {
	r.Register(&registry.Kind{
		Name:        "fn.call",
		Description: "invokes another compiled function",
		Build: func(_ context.Context, params map[string]cty.Value) (*fn.Function, error) {
			v, ok := params["function"]
			if !ok {
				return nil, fmt.Errorf("fn.call requires a %q param", "function")
			}
			if !v.Type().Equals(FunctionType) {
				return nil, fmt.Errorf("fn.call param has type %s, want a function capsule", v.Type().FriendlyName())
			}
			sub := v.EncapsulatedValue().(*fn.Function)

			// The wrapper mirrors the sub-function's shapes, so tuples pass
			// straight through. CallEager pushes the sub-function's frame,
			// which is what makes nested graph traces complete.
			f := fn.New("call:"+sub.Name(), sub.InputMeta(), sub.OutputMeta())
			f.AttachEager(fn.EagerFunc(func(ctx context.Context, in, out *tuple.Tuple, stack *trace.Stack) error {
				return fn.CallEager(ctx, sub, in, out, stack)
			}))
			if deps, err := sub.Deps(); err == nil {
				f.AttachDeps(deps)
			}
			if codegen, err := sub.Codegen(); err == nil {
				f.AttachCodegen(codegen)
			}
			return f.Publish(), nil
		},
	})
}
