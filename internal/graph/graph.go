// Package graph models the source node graph the compiler consumes: nodes
// with typed sockets and directed links between them. A mutable Builder is
// populated by the HCL loader (or programmatically by tests and editors) and
// then frozen into an immutable, index-based arena; all compilation works on
// the frozen form, so socket lookups are cheap and nothing is mutated after
// indexing.
package graph

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Reserved node kinds marking a graph's external interface, and the sentinel
// socket appended to interface nodes. The sentinel mirrors the editor's
// trailing "add more" handle and is excluded from the formal interface.
const (
	KindFunctionInput  = "function_input"
	KindFunctionOutput = "function_output"
	SentinelSocket     = "__extend__"
)

// NodeID is an index into the frozen node arena.
type NodeID int

// SocketDecl declares one typed socket on an interface node.
type SocketDecl struct {
	Name string
	Type cty.Type
}

// Link is a directed connection from an output socket to an input socket,
// both addressed by name. Socket names are resolved against node kinds at
// compile time.
type Link struct {
	FromNode   NodeID
	FromSocket string
	ToNode     NodeID
	ToSocket   string
	DefRange   hcl.Range
}

// Node is one frozen graph node. IfaceSockets is populated only for the
// reserved interface kinds: outputs of a function_input node, inputs of a
// function_output node, including the trailing sentinel.
type Node struct {
	Kind         string
	Name         string
	Params       map[string]cty.Value
	IfaceSockets []SocketDecl
	DefRange     hcl.Range
}

// Builder accumulates nodes and links for a graph under construction. It is
// not safe for concurrent use.
type Builder struct {
	nodes []Node
	links []Link
}

// NewBuilder returns an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddNode adds a node of a registered kind and returns its ID. Params are
// kind-specific construction values (for example a constant's value).
func (b *Builder) AddNode(kind, name string, params map[string]cty.Value) NodeID {
	b.nodes = append(b.nodes, Node{Kind: kind, Name: name, Params: params})
	return NodeID(len(b.nodes) - 1)
}

// SetNodeRange records the source location a node was defined at, for
// diagnostics.
func (b *Builder) SetNodeRange(id NodeID, rng hcl.Range) {
	b.nodes[id].DefRange = rng
}

// AddInterfaceInput adds the marker node whose output sockets become the
// graph's formal inputs. The sentinel extend-handle socket is appended
// automatically, so callers declare exactly the formal interface.
func (b *Builder) AddInterfaceInput(sockets ...SocketDecl) NodeID {
	decls := append(append([]SocketDecl{}, sockets...), SocketDecl{Name: SentinelSocket, Type: cty.DynamicPseudoType})
	b.nodes = append(b.nodes, Node{Kind: KindFunctionInput, Name: "inputs", IfaceSockets: decls})
	return NodeID(len(b.nodes) - 1)
}

// AddInterfaceOutput adds the marker node whose input sockets become the
// graph's formal outputs. The sentinel socket is appended automatically.
func (b *Builder) AddInterfaceOutput(sockets ...SocketDecl) NodeID {
	decls := append(append([]SocketDecl{}, sockets...), SocketDecl{Name: SentinelSocket, Type: cty.DynamicPseudoType})
	b.nodes = append(b.nodes, Node{Kind: KindFunctionOutput, Name: "outputs", IfaceSockets: decls})
	return NodeID(len(b.nodes) - 1)
}

// Link connects an output socket to an input socket.
func (b *Builder) Link(from NodeID, fromSocket string, to NodeID, toSocket string) {
	b.LinkAt(from, fromSocket, to, toSocket, hcl.Range{})
}

// LinkAt is Link with the source location the link was defined at.
func (b *Builder) LinkAt(from NodeID, fromSocket string, to NodeID, toSocket string, rng hcl.Range) {
	b.links = append(b.links, Link{FromNode: from, FromSocket: fromSocket, ToNode: to, ToSocket: toSocket, DefRange: rng})
}

type socketKey struct {
	node   NodeID
	socket string
}

// Frozen is the immutable, indexed form of a source graph. The compiler and
// any number of concurrent readers may share it; it is never mutated after
// Freeze returns.
type Frozen struct {
	nodes    []Node
	links    []Link
	byKind   map[string][]NodeID
	incoming map[socketKey]int
	outgoing map[NodeID][]int
}

// Freeze validates and indexes the builder's contents. The builder remains
// usable afterwards; the frozen graph holds its own copies.
func (b *Builder) Freeze() (*Frozen, error) {
	f := &Frozen{
		nodes:    append([]Node{}, b.nodes...),
		links:    append([]Link{}, b.links...),
		byKind:   make(map[string][]NodeID),
		incoming: make(map[socketKey]int),
		outgoing: make(map[NodeID][]int),
	}
	for i, n := range f.nodes {
		f.byKind[n.Kind] = append(f.byKind[n.Kind], NodeID(i))
	}
	for _, kind := range []string{KindFunctionInput, KindFunctionOutput} {
		if len(f.byKind[kind]) > 1 {
			return nil, fmt.Errorf("graph has %d %s nodes, at most one is allowed", len(f.byKind[kind]), kind)
		}
	}
	for i, l := range f.links {
		if l.FromNode < 0 || int(l.FromNode) >= len(f.nodes) || l.ToNode < 0 || int(l.ToNode) >= len(f.nodes) {
			return nil, fmt.Errorf("link %d references a node that does not exist", i)
		}
		key := socketKey{node: l.ToNode, socket: l.ToSocket}
		if prev, exists := f.incoming[key]; exists {
			return nil, fmt.Errorf("socket %q of node %q has more than one incoming link (links %d and %d)",
				l.ToSocket, f.nodes[l.ToNode].Name, prev, i)
		}
		f.incoming[key] = i
		f.outgoing[l.FromNode] = append(f.outgoing[l.FromNode], i)
	}
	return f, nil
}

// NodeCount returns the number of nodes in the arena.
func (f *Frozen) NodeCount() int {
	return len(f.nodes)
}

// Node returns the node at the given index.
func (f *Frozen) Node(id NodeID) *Node {
	return &f.nodes[id]
}

// FirstOfKind returns the single node of the given kind, if present.
func (f *Frozen) FirstOfKind(kind string) (NodeID, bool) {
	ids := f.byKind[kind]
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

// IncomingLink returns the link feeding the given input socket, if any.
// Sockets carry at most one incoming link; Freeze enforces that.
func (f *Frozen) IncomingLink(node NodeID, socket string) (*Link, bool) {
	idx, ok := f.incoming[socketKey{node: node, socket: socket}]
	if !ok {
		return nil, false
	}
	return &f.links[idx], true
}

// Links returns all links in the graph.
func (f *Frozen) Links() []Link {
	return f.links
}
