package hclgraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nodefn/internal/ctxlog"
	"github.com/vk/nodefn/internal/graph"
)

// Reserved reference roots addressing the interface nodes in "node.socket"
// references. User nodes cannot take these names.
const (
	refInputs  = "inputs"
	refOutputs = "outputs"
)

// Graph is one named graph definition decoded from a file, still in builder
// form so callers can compile or extend it.
type Graph struct {
	Name    string
	Builder *graph.Builder
}

// Load parses one HCL graph file from disk.
func Load(ctx context.Context, path string) ([]Graph, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}
	return decodeFile(ctx, file)
}

// Decode parses graph definitions from an in-memory buffer. The filename is
// used in diagnostics only.
func Decode(ctx context.Context, filename string, src []byte) ([]Graph, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", filename, diags)
	}
	return decodeFile(ctx, file)
}

// Find returns the named graph, or the only graph when name is empty.
func Find(graphs []Graph, name string) (Graph, error) {
	if name == "" {
		if len(graphs) != 1 {
			return Graph{}, fmt.Errorf("file defines %d graphs, specify one by name", len(graphs))
		}
		return graphs[0], nil
	}
	for _, g := range graphs {
		if g.Name == name {
			return g, nil
		}
	}
	return Graph{}, fmt.Errorf("no graph named %q in file", name)
}

func decodeFile(ctx context.Context, file *hcl.File) ([]Graph, error) {
	logger := ctxlog.FromContext(ctx)

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("decoding graph file: %w", diags)
	}

	graphs := make([]Graph, 0, len(root.Graphs))
	seen := make(map[string]bool)
	for _, gb := range root.Graphs {
		if seen[gb.Name] {
			return nil, fmt.Errorf("graph %q is defined more than once", gb.Name)
		}
		seen[gb.Name] = true

		b, err := buildGraph(gb)
		if err != nil {
			return nil, fmt.Errorf("graph %q: %w", gb.Name, err)
		}
		graphs = append(graphs, Graph{Name: gb.Name, Builder: b})
	}
	logger.Debug("graph file decoded", "graphs", len(graphs))
	return graphs, nil
}

// buildGraph translates one decoded graph block into a builder.
func buildGraph(gb *graphBlock) (*graph.Builder, error) {
	b := graph.NewBuilder()

	var inputID, outputID graph.NodeID
	hasInputs, hasOutputs := gb.Inputs != nil, gb.Outputs != nil

	if hasInputs {
		decls, err := socketDecls(gb.Inputs.Sockets)
		if err != nil {
			return nil, fmt.Errorf("inputs: %w", err)
		}
		inputID = b.AddInterfaceInput(decls...)
	}
	if hasOutputs {
		decls, err := socketDecls(gb.Outputs.Sockets)
		if err != nil {
			return nil, fmt.Errorf("outputs: %w", err)
		}
		outputID = b.AddInterfaceOutput(decls...)
	}

	nodeIDs := make(map[string]graph.NodeID)
	for _, nb := range gb.Nodes {
		if nb.Name == refInputs || nb.Name == refOutputs {
			return nil, fmt.Errorf("node name %q is reserved", nb.Name)
		}
		if _, dup := nodeIDs[nb.Name]; dup {
			return nil, fmt.Errorf("node %q is defined more than once", nb.Name)
		}
		params, err := evalParams(nb.Params)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nb.Name, err)
		}
		id := b.AddNode(nb.Kind, nb.Name, params)
		if nb.Remain != nil {
			b.SetNodeRange(id, nb.Remain.MissingItemRange())
		}
		nodeIDs[nb.Name] = id
	}

	resolve := func(ref string) (graph.NodeID, string, error) {
		nodeName, socket, ok := strings.Cut(ref, ".")
		if !ok {
			return 0, "", fmt.Errorf("reference %q is not of the form node.socket", ref)
		}
		switch nodeName {
		case refInputs:
			if !hasInputs {
				return 0, "", fmt.Errorf("reference %q: graph has no inputs block", ref)
			}
			return inputID, socket, nil
		case refOutputs:
			return 0, "", fmt.Errorf("reference %q: output sockets cannot feed other nodes", ref)
		default:
			id, ok := nodeIDs[nodeName]
			if !ok {
				return 0, "", fmt.Errorf("reference %q: no node named %q", ref, nodeName)
			}
			return id, socket, nil
		}
	}

	for _, nb := range gb.Nodes {
		for _, in := range nb.Inputs {
			fromID, fromSocket, err := resolve(in.From)
			if err != nil {
				return nil, fmt.Errorf("node %q input %q: %w", nb.Name, in.Socket, err)
			}
			b.Link(fromID, fromSocket, nodeIDs[nb.Name], in.Socket)
		}
	}

	if hasOutputs {
		for _, sb := range gb.Outputs.Sockets {
			if sb.From == "" {
				return nil, fmt.Errorf("output socket %q needs a from reference", sb.Name)
			}
			fromID, fromSocket, err := resolve(sb.From)
			if err != nil {
				return nil, fmt.Errorf("output socket %q: %w", sb.Name, err)
			}
			b.Link(fromID, fromSocket, outputID, sb.Name)
		}
	}
	return b, nil
}

// socketDecls translates socket blocks into typed declarations.
func socketDecls(sockets []*socketBlock) ([]graph.SocketDecl, error) {
	decls := make([]graph.SocketDecl, len(sockets))
	for i, sb := range sockets {
		typ, err := typeExprToCtyType(sb.Type)
		if err != nil {
			return nil, fmt.Errorf("socket %q: %w", sb.Name, err)
		}
		decls[i] = graph.SocketDecl{Name: sb.Name, Type: typ}
	}
	return decls, nil
}

// evalParams evaluates a params attribute into construction values. Params
// are static literals, so evaluation uses no variable context.
func evalParams(expr hcl.Expression) (map[string]cty.Value, error) {
	if expr == nil {
		return nil, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating params: %w", diags)
	}
	if v.IsNull() {
		return nil, nil
	}
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, fmt.Errorf("params must be an object, got %s", v.Type().FriendlyName())
	}
	return v.AsValueMap(), nil
}
