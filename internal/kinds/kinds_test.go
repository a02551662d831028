package kinds

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/fn"
	"github.com/vk/nodefn/internal/registry"
	"github.com/vk/nodefn/internal/trace"
)

func builtinRegistry() *registry.Registry {
	r := registry.New()
	RegisterAll(r)
	return r
}

func TestRegisterAll(t *testing.T) {
	t.Parallel()

	r := builtinRegistry()
	for _, name := range []string{
		"const.number", "const.string", "const.bool",
		"math.add", "math.multiply", "math.negate", "math.less",
		"str.concat", "select.number", "shader.source", "shader.combine", "fn.call",
	} {
		_, ok := r.Lookup(name)
		require.True(t, ok, "kind %q must be registered", name)
	}
}

func TestMathAdd(t *testing.T) {
	t.Parallel()

	r := builtinRegistry()
	f, err := r.Instantiate(context.Background(), "math.add", nil)
	require.NoError(t, err)
	require.True(t, f.HasBody(fn.BodyEager))
	require.True(t, f.HasBody(fn.BodyDeps))
	require.True(t, f.HasBody(fn.BodyCodegen))

	in := f.NewInputTuple()
	require.NoError(t, in.Set(0, cty.NumberIntVal(2)))
	require.NoError(t, in.Set(1, cty.NumberIntVal(40)))
	out := f.NewOutputTuple()
	require.NoError(t, fn.CallEager(context.Background(), f, in, out, trace.NewStack()))

	v, err := out.Get(0)
	require.NoError(t, err)
	require.True(t, v.RawEquals(cty.NumberIntVal(42)))
}

func TestConstRequiresTypedParam(t *testing.T) {
	t.Parallel()

	r := builtinRegistry()

	t.Run("Success: typed value param", func(t *testing.T) {
		t.Parallel()
		f, err := r.Instantiate(context.Background(), "const.number", map[string]cty.Value{"value": cty.NumberIntVal(5)})
		require.NoError(t, err)

		out := f.NewOutputTuple()
		require.NoError(t, fn.CallEager(context.Background(), f, f.NewInputTuple(), out, trace.NewStack()))
		v, err := out.Get(0)
		require.NoError(t, err)
		require.True(t, v.RawEquals(cty.NumberIntVal(5)))
	})

	t.Run("Failure: missing param", func(t *testing.T) {
		t.Parallel()
		_, err := r.Instantiate(context.Background(), "const.number", nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), `"value"`)
	})

	t.Run("Failure: wrong param type", func(t *testing.T) {
		t.Parallel()
		_, err := r.Instantiate(context.Background(), "const.number", map[string]cty.Value{"value": cty.StringVal("5")})
		require.Error(t, err)
		require.Contains(t, err.Error(), "want number")
	})
}

func TestSelectNumber_LazyBranching(t *testing.T) {
	t.Parallel()

	r := builtinRegistry()
	f, err := r.Instantiate(context.Background(), "select.number", nil)
	require.NoError(t, err)
	require.True(t, f.HasBody(fn.BodyLazy))
	require.False(t, f.HasBody(fn.BodyEager), "select is demand-driven only")

	t.Run("false condition requests only the else branch", func(t *testing.T) {
		t.Parallel()
		in := f.NewInputTuple()
		require.NoError(t, in.Set(selectCond, cty.False))
		out := f.NewOutputTuple()

		var requested []int
		err := fn.CallLazy(context.Background(), f, in, out, trace.NewStack(), func(_ context.Context, idx int) (cty.Value, error) {
			requested = append(requested, idx)
			return cty.NumberIntVal(int64(idx * 100)), nil
		})
		require.NoError(t, err)
		require.Equal(t, []int{selectElse}, requested)

		v, err := out.Get(0)
		require.NoError(t, err)
		require.True(t, v.RawEquals(cty.NumberIntVal(200)))
	})

	t.Run("true condition requests only the then branch", func(t *testing.T) {
		t.Parallel()
		in := f.NewInputTuple()
		require.NoError(t, in.Set(selectCond, cty.True))
		out := f.NewOutputTuple()

		var requested []int
		err := fn.CallLazy(context.Background(), f, in, out, trace.NewStack(), func(_ context.Context, idx int) (cty.Value, error) {
			requested = append(requested, idx)
			return cty.NumberIntVal(int64(idx * 100)), nil
		})
		require.NoError(t, err)
		require.Equal(t, []int{selectThen}, requested)

		v, err := out.Get(0)
		require.NoError(t, err)
		require.True(t, v.RawEquals(cty.NumberIntVal(100)))
	})
}

func TestShaderTypeIsOnlyCompatibleWithItself(t *testing.T) {
	t.Parallel()

	require.False(t, ShaderType.Equals(cty.Number))
	require.False(t, ShaderType.Equals(cty.String))
	require.True(t, ShaderType.Equals(ShaderType))
	require.False(t, ShaderType.Equals(FunctionType), "distinct capsule types must not match")
}

func TestFnCall_WrapsCompiledFunction(t *testing.T) {
	t.Parallel()

	r := builtinRegistry()
	sub, err := r.Instantiate(context.Background(), "math.negate", nil)
	require.NoError(t, err)

	f, err := r.Instantiate(context.Background(), "fn.call", map[string]cty.Value{"function": FunctionVal(sub)})
	require.NoError(t, err)
	require.True(t, f.InputMeta().Equals(sub.InputMeta()))

	in := f.NewInputTuple()
	require.NoError(t, in.Set(0, cty.NumberIntVal(4)))
	out := f.NewOutputTuple()
	require.NoError(t, fn.CallEager(context.Background(), f, in, out, trace.NewStack()))

	v, err := out.Get(0)
	require.NoError(t, err)
	require.True(t, v.RawEquals(cty.NumberIntVal(-4)))
}
