package compile

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/fn"
	"github.com/vk/nodefn/internal/graph"
	"github.com/vk/nodefn/internal/trace"
	"github.com/vk/nodefn/internal/tuple"
)

var hclRangeZero = hcl.Range{}

// interpreter is the direct, always-available eager body of a compiled
// graph: it evaluates required nodes in dependency order with a per-socket
// value cache. All mutable state lives in the per-call evalEnv, so one
// interpreter instance serves any number of concurrent calls.
type interpreter struct {
	dg *DepGraph
}

// Call implements fn.EagerBody.
func (ip *interpreter) Call(ctx context.Context, in, out *tuple.Tuple, stack *trace.Stack) error {
	env := &evalEnv{dg: ip.dg, in: in, cache: make(map[DataSocket]cty.Value)}
	for k, origin := range ip.dg.outputOrigins {
		v, err := env.socketValue(ctx, origin, stack)
		if err != nil {
			return err
		}
		if err := out.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// evalEnv is the per-call evaluation state.
type evalEnv struct {
	dg    *DepGraph
	in    *tuple.Tuple
	cache map[DataSocket]cty.Value
}

// socketValue computes (or returns the cached) value of an output socket.
// Nodes are evaluated at most once per call; sibling nodes with no data
// dependency between them have unspecified relative order.
func (env *evalEnv) socketValue(ctx context.Context, s DataSocket, stack *trace.Stack) (cty.Value, error) {
	if v, ok := env.cache[s]; ok {
		return v, nil
	}
	node := env.dg.frozen.Node(s.Node)

	if node.Kind == graph.KindFunctionInput {
		idx, ok := env.dg.inputIndex[s.Socket]
		if !ok {
			return cty.NilVal, fmt.Errorf("no formal input named %q", s.Socket)
		}
		v, err := env.in.Get(idx)
		if err != nil {
			return cty.NilVal, fmt.Errorf("formal input %q: %w", s.Socket, err)
		}
		env.cache[s] = v
		return v, nil
	}

	if err := env.evalNode(ctx, s.Node, stack); err != nil {
		return cty.NilVal, err
	}
	v, ok := env.cache[s]
	if !ok {
		return cty.NilVal, fmt.Errorf("node %q produced no value for socket %q", node.Name, s.Socket)
	}
	return v, nil
}

// evalNode runs one node's Function and caches all of its outputs.
func (env *evalEnv) evalNode(ctx context.Context, id graph.NodeID, stack *trace.Stack) error {
	node := env.dg.frozen.Node(id)
	nf, ok := env.dg.fns[id]
	if !ok {
		return fmt.Errorf("node %q is not part of the dependency graph", node.Name)
	}

	nodeIn := nf.NewInputTuple()
	nodeOut := nf.NewOutputTuple()

	switch {
	case nf.HasBody(fn.BodyEager):
		// Strict: resolve every linked input up front, defaults for the rest.
		inMeta := nf.InputMeta()
		for i := 0; i < inMeta.Len(); i++ {
			link, ok := env.dg.frozen.IncomingLink(id, inMeta.Name(i))
			if !ok {
				continue
			}
			v, err := env.socketValue(ctx, DataSocket{Node: link.FromNode, Socket: link.FromSocket}, stack)
			if err != nil {
				return err
			}
			if err := nodeIn.Set(i, v); err != nil {
				return err
			}
		}
		nodeIn.InitDefaults()
		if err := fn.CallEagerFrame(ctx, nf, nodeIn, nodeOut, stack, nodeFrame(node)); err != nil {
			return err
		}

	case nf.HasBody(fn.BodyLazy):
		// Demand-driven: upstream sockets are only evaluated when the body
		// requests the corresponding input.
		supply := func(ctx context.Context, idx int) (cty.Value, error) {
			link, ok := env.dg.frozen.IncomingLink(id, nf.InputMeta().Name(idx))
			if !ok {
				return nf.InputMeta().Default(idx), nil
			}
			return env.socketValue(ctx, DataSocket{Node: link.FromNode, Socket: link.FromSocket}, stack)
		}
		if err := fn.CallLazy(ctx, nf, nodeIn, nodeOut, stack, supply); err != nil {
			return err
		}

	default:
		return &fn.BodyUnavailableError{Function: nf.Name(), Kind: fn.BodyEager}
	}

	outMeta := nf.OutputMeta()
	for j := 0; j < outMeta.Len(); j++ {
		v, err := nodeOut.MoveOut(j)
		if err != nil {
			return fmt.Errorf("node %q left output %q uninitialized: %w", node.Name, outMeta.Name(j), err)
		}
		env.cache[DataSocket{Node: id, Socket: outMeta.Name(j)}] = v
	}
	return nil
}

// nodeFrame builds the diagnostic frame for a node invocation.
func nodeFrame(node *graph.Node) trace.Frame {
	if node.DefRange != (hclRangeZero) {
		return trace.SourceFrame{Name: node.Name, Range: node.DefRange}
	}
	return trace.TextFrame(node.Name)
}
