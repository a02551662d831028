package fn

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/tuple"
)

func twoNumberMetas() (*tuple.Meta, *tuple.Meta) {
	in := tuple.NewMeta(
		tuple.Entry{Name: "a", Type: cty.Number},
		tuple.Entry{Name: "b", Type: cty.Number},
	)
	out := tuple.NewMeta(tuple.Entry{Name: "sum", Type: cty.Number})
	return in, out
}

func TestFunction_BodyCapabilities(t *testing.T) {
	t.Parallel()

	in, out := twoNumberMetas()
	f := New("add", in, out)
	require.False(t, f.HasBody(BodyEager))

	_, err := f.Eager()
	var unavailable *BodyUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, "add", unavailable.Function)
	require.Equal(t, BodyEager, unavailable.Kind)

	f.AttachEager(EagerFunc(nil))
	require.True(t, f.HasBody(BodyEager))
	require.False(t, f.HasBody(BodyLazy))
	require.False(t, f.HasBody(BodyDeps))
	require.False(t, f.HasBody(BodyCodegen))
}

func TestFunction_AttachAfterPublishPanics(t *testing.T) {
	t.Parallel()

	in, out := twoNumberMetas()
	f := New("add", in, out).Publish()
	require.Panics(t, func() { f.AttachEager(EagerFunc(nil)) })
	require.Panics(t, func() { f.AddResource("x", "debug") })
}

func TestFunction_AttachTwicePanics(t *testing.T) {
	t.Parallel()

	in, out := twoNumberMetas()
	f := New("add", in, out)
	f.AttachEager(EagerFunc(nil))
	require.Panics(t, func() { f.AttachEager(EagerFunc(nil)) })
}

// orderedCloser records close order into a shared slice.
type orderedCloser struct {
	name  string
	order *[]string
}

func (c *orderedCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return nil
}

func TestFunction_ResourcesCloseInReverseOrder(t *testing.T) {
	t.Parallel()

	in, out := twoNumberMetas()
	f := New("add", in, out)

	var order []string
	f.AddResource(&orderedCloser{name: "first", order: &order}, "first")
	f.AddResource("not a closer", "plain")
	f.AddResource(&orderedCloser{name: "second", order: &order}, "second")
	f.Publish()

	res, ok := f.Resource("plain")
	require.True(t, ok)
	require.Equal(t, "not a closer", res)

	require.NoError(t, f.Close())
	require.Equal(t, []string{"second", "first"}, order)
}
