// Package hclgraph loads node graph definitions from HCL files into graph
// builders. A file holds one or more graph blocks; each block declares the
// formal interface, the nodes and the links between their sockets. Socket
// references use the "node.socket" form, with the reserved names "inputs"
// and "outputs" addressing the graph's interface nodes.
package hclgraph

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes all top-level blocks of one graph file.
type fileRoot struct {
	Graphs []*graphBlock `hcl:"graph,block"`
	Remain hcl.Body      `hcl:",remain"`
}

// graphBlock is one named graph definition.
type graphBlock struct {
	Name    string       `hcl:"name,label"`
	Inputs  *ifaceBlock  `hcl:"inputs,block"`
	Outputs *ifaceBlock  `hcl:"outputs,block"`
	Nodes   []*nodeBlock `hcl:"node,block"`
	Remain  hcl.Body     `hcl:",remain"`
}

// ifaceBlock declares the sockets of one interface side.
type ifaceBlock struct {
	Sockets []*socketBlock `hcl:"socket,block"`
}

// socketBlock declares one typed interface socket. From is only meaningful
// inside an outputs block, where it names the socket the value comes from.
type socketBlock struct {
	Name string         `hcl:"name,label"`
	Type hcl.Expression `hcl:"type"`
	From string         `hcl:"from,optional"`
}

// nodeBlock declares one graph node: its kind, optional construction params
// and the links feeding its input sockets.
type nodeBlock struct {
	Name   string         `hcl:"name,label"`
	Kind   string         `hcl:"kind"`
	Params hcl.Expression `hcl:"params,optional"`
	Inputs []*inputBlock  `hcl:"input,block"`
	Remain hcl.Body       `hcl:",remain"`
}

// inputBlock links one input socket to an upstream "node.socket" reference.
type inputBlock struct {
	Socket string `hcl:"name,label"`
	From   string `hcl:"from"`
}
