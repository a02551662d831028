package kinds

import (
	"context"
	"reflect"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/fn"
	"github.com/vk/nodefn/internal/registry"
	"github.com/vk/nodefn/internal/tuple"
)

// Shader is an opaque marker payload. Shader sockets are only compatible
// with other shader sockets, never with plain data types; the capsule type
// below equals only itself, which enforces exactly that.
type Shader struct {
	Source string
}

// ShaderType is the marker socket type for shader values.
var ShaderType = cty.Capsule("shader", reflect.TypeOf(Shader{}))

func registerShader(r *registry.Registry) {
	// No emitter: a graph containing a shader node cannot be lowered to a
	// program and falls back to interpretation.
	r.Register(&registry.Kind{
		Name:        "shader.source",
		Description: "wraps shader source text into a shader value",
		Build: func(_ context.Context, params map[string]cty.Value) (*fn.Function, error) {
			code, err := constParam(params, cty.String)
			if err != nil {
				return nil, err
			}
			shader := cty.CapsuleVal(ShaderType, &Shader{Source: code.AsString()})
			outMeta := tuple.NewMeta(tuple.Entry{Name: "shader", Type: ShaderType})
			f := fn.New("shader.source", tuple.NewMeta(), outMeta)
			f.AttachEager(eagerConst(shader))
			f.AttachDeps(fn.DepsFunc(func([]int) []int { return nil }))
			return f.Publish(), nil
		},
	})

	r.Register(&registry.Kind{
		Name:        "shader.combine",
		Description: "combines two shader values",
		Build: func(_ context.Context, _ map[string]cty.Value) (*fn.Function, error) {
			return buildShaderCombine(), nil
		},
	})
}

func buildShaderCombine() *fn.Function {
	return buildSimple(simpleSpec{
		name: "shader.combine",
		in: []tuple.Entry{
			{Name: "a", Type: ShaderType},
			{Name: "b", Type: ShaderType},
		},
		out: []tuple.Entry{{Name: "combined", Type: ShaderType}},
		eval: func(_ context.Context, in, out *tuple.Tuple) error {
			a, err := in.MoveOut(0)
			if err != nil {
				return err
			}
			b, err := in.MoveOut(1)
			if err != nil {
				return err
			}
			combined := &Shader{Source: a.EncapsulatedValue().(*Shader).Source + "\n" + b.EncapsulatedValue().(*Shader).Source}
			return out.Set(0, cty.CapsuleVal(ShaderType, combined))
		},
	})
}
