package compile

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/ctxlog"
	"github.com/vk/nodefn/internal/fn"
	"github.com/vk/nodefn/internal/graph"
	"github.com/vk/nodefn/internal/registry"
)

// DataSocket identifies one data-carrying output socket in the dependency
// graph: either a regular node's output or a formal input exposed by the
// interface-input node.
type DataSocket struct {
	Node   graph.NodeID
	Socket string
}

// DepGraph is the internal dependency graph of a compiled Function:
// the frozen source graph restricted to the transitive predecessors of the
// formal outputs, with a per-node instantiated Function and a topological
// evaluation order. It is read-only after construction and shared by all
// concurrent calls.
type DepGraph struct {
	frozen *graph.Frozen

	inputNode  graph.NodeID
	hasInput   bool
	outputNode graph.NodeID
	hasOutput  bool

	formalIn  []graph.SocketDecl
	formalOut []graph.SocketDecl
	// inputIndex maps a formal input socket name to its tuple slot.
	inputIndex map[string]int
	// outputOrigins holds, per formal output, the socket its value comes from.
	outputOrigins []DataSocket

	// required holds the non-interface nodes feeding the formal outputs, in
	// dependency-respecting order.
	required []graph.NodeID
	fns      map[graph.NodeID]*fn.Function
}

// DFS colors for cycle detection.
const (
	colorWhite byte = iota
	colorGray
	colorBlack
)

// buildDepGraph discovers the interface, instantiates the required node
// functions, type-checks every used link and rejects cycles reachable from
// the formal outputs. Cycles among nodes that feed nothing are tolerated.
func buildDepGraph(ctx context.Context, frozen *graph.Frozen, reg *registry.Registry) (*DepGraph, error) {
	logger := ctxlog.FromContext(ctx)
	dg := &DepGraph{
		frozen:     frozen,
		inputIndex: make(map[string]int),
		fns:        make(map[graph.NodeID]*fn.Function),
	}

	dg.inputNode, dg.hasInput = frozen.FirstOfKind(graph.KindFunctionInput)
	dg.outputNode, dg.hasOutput = frozen.FirstOfKind(graph.KindFunctionOutput)

	// The trailing sentinel socket is the editor's extend handle, never part
	// of the formal interface.
	if dg.hasInput {
		decls := frozen.Node(dg.inputNode).IfaceSockets
		dg.formalIn = decls[:len(decls)-1]
		for i, d := range dg.formalIn {
			dg.inputIndex[d.Name] = i
		}
	}
	if dg.hasOutput {
		decls := frozen.Node(dg.outputNode).IfaceSockets
		dg.formalOut = decls[:len(decls)-1]
	}
	logger.Debug("interface discovered", "inputs", len(dg.formalIn), "outputs", len(dg.formalOut))

	colors := make([]byte, frozen.NodeCount())
	for _, d := range dg.formalOut {
		link, ok := frozen.IncomingLink(dg.outputNode, d.Name)
		if !ok {
			return nil, genErr(frozen.Node(dg.outputNode).Name, "formal output %q has no incoming link", d.Name)
		}
		if err := dg.visit(ctx, reg, colors, link.FromNode); err != nil {
			return nil, err
		}
		got, err := dg.socketType(DataSocket{Node: link.FromNode, Socket: link.FromSocket})
		if err != nil {
			return nil, err
		}
		if !got.Equals(d.Type) {
			return nil, genErr(frozen.Node(dg.outputNode).Name,
				"link into formal output %q is ill-typed: got %s, want %s",
				d.Name, got.FriendlyName(), d.Type.FriendlyName())
		}
		dg.outputOrigins = append(dg.outputOrigins, DataSocket{Node: link.FromNode, Socket: link.FromSocket})
	}
	logger.Debug("dependency graph built", "required_nodes", len(dg.required))
	return dg, nil
}

// visit is a three-color depth-first traversal over the node arena. A gray
// node seen again means a cycle among the formal dependencies.
func (dg *DepGraph) visit(ctx context.Context, reg *registry.Registry, colors []byte, id graph.NodeID) error {
	node := dg.frozen.Node(id)
	switch colors[id] {
	case colorBlack:
		return nil
	case colorGray:
		return genErr(node.Name, "cycle detected among the dependencies of the formal outputs")
	}
	colors[id] = colorGray

	switch node.Kind {
	case graph.KindFunctionInput:
		// Source of formal inputs; nothing upstream.
	case graph.KindFunctionOutput:
		return genErr(node.Name, "the interface output node cannot feed other nodes")
	default:
		nf, err := reg.Instantiate(ctx, node.Kind, node.Params)
		if err != nil {
			return &GraphGenerationError{Node: node.Name, Reason: "unrecognized or unbuildable node kind", Err: err}
		}
		dg.fns[id] = nf

		inMeta := nf.InputMeta()
		for i := 0; i < inMeta.Len(); i++ {
			link, ok := dg.frozen.IncomingLink(id, inMeta.Name(i))
			if !ok {
				continue // unlinked input falls back to the slot default
			}
			if err := dg.visit(ctx, reg, colors, link.FromNode); err != nil {
				return err
			}
			got, err := dg.socketType(DataSocket{Node: link.FromNode, Socket: link.FromSocket})
			if err != nil {
				return err
			}
			if !got.Equals(inMeta.Type(i)) {
				return genErr(node.Name, "link into socket %q is ill-typed: got %s, want %s",
					inMeta.Name(i), got.FriendlyName(), inMeta.Type(i).FriendlyName())
			}
		}
		dg.required = append(dg.required, id)
	}

	colors[id] = colorBlack
	return nil
}

// socketType resolves the value type of an output socket. The origin node
// has already been visited, so its Function is instantiated.
func (dg *DepGraph) socketType(s DataSocket) (cty.Type, error) {
	node := dg.frozen.Node(s.Node)
	if node.Kind == graph.KindFunctionInput {
		idx, ok := dg.inputIndex[s.Socket]
		if !ok {
			return cty.NilType, genErr(node.Name, "no formal input socket named %q", s.Socket)
		}
		return dg.formalIn[idx].Type, nil
	}
	nf, ok := dg.fns[s.Node]
	if !ok {
		return cty.NilType, genErr(node.Name, "socket %q belongs to a node outside the dependency graph", s.Socket)
	}
	idx, ok := nf.OutputMeta().IndexOf(s.Socket)
	if !ok {
		return cty.NilType, genErr(node.Name, "node kind %q has no output socket named %q", node.Kind, s.Socket)
	}
	return nf.OutputMeta().Type(idx), nil
}

// Frozen returns the frozen source graph.
func (dg *DepGraph) Frozen() *graph.Frozen {
	return dg.frozen
}

// RequiredNodes returns the non-interface nodes feeding the formal outputs,
// in evaluation order.
func (dg *DepGraph) RequiredNodes() []graph.NodeID {
	return dg.required
}

// FormalInputs returns the formal input socket declarations in order.
func (dg *DepGraph) FormalInputs() []graph.SocketDecl {
	return dg.formalIn
}

// FormalOutputs returns the formal output socket declarations in order.
func (dg *DepGraph) FormalOutputs() []graph.SocketDecl {
	return dg.formalOut
}

// NodeFunction returns the instantiated Function for a required node.
func (dg *DepGraph) NodeFunction(id graph.NodeID) (*fn.Function, bool) {
	f, ok := dg.fns[id]
	return f, ok
}

// requiredInputsFor walks the link graph backwards from the given formal
// outputs and reports which formal inputs are reachable, in ascending order.
func (dg *DepGraph) requiredInputsFor(outputs []int) []int {
	seen := make(map[graph.NodeID]bool)
	needed := make(map[int]bool)

	var walk func(s DataSocket)
	walk = func(s DataSocket) {
		node := dg.frozen.Node(s.Node)
		if node.Kind == graph.KindFunctionInput {
			if idx, ok := dg.inputIndex[s.Socket]; ok {
				needed[idx] = true
			}
			return
		}
		if seen[s.Node] {
			return
		}
		seen[s.Node] = true
		nf := dg.fns[s.Node]
		inMeta := nf.InputMeta()
		for i := 0; i < inMeta.Len(); i++ {
			if link, ok := dg.frozen.IncomingLink(s.Node, inMeta.Name(i)); ok {
				walk(DataSocket{Node: link.FromNode, Socket: link.FromSocket})
			}
		}
	}
	for _, o := range outputs {
		if o >= 0 && o < len(dg.outputOrigins) {
			walk(dg.outputOrigins[o])
		}
	}

	result := make([]int, 0, len(needed))
	for i := 0; i < len(dg.formalIn); i++ {
		if needed[i] {
			result = append(result, i)
		}
	}
	return result
}
