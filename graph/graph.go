// Package graph implements the mutable node graph the render engine works
// against: nodes connected through typed inputs and outputs, with scalar,
// keyframed and array-valued parameters.
//
// A Graph owns change notifications. The editing layer mutates nodes through
// the methods here; every value or connectivity edit is reported to
// subscribers with the affected input. Snapshot copies held by the engine
// live in a second Graph that simply has no subscribers.
package graph

import "fmt"

// Graph is a collection of nodes plus a change-notification feed.
type Graph struct {
	listeners  map[int]func(*Input)
	nextListen int
}

func New() *Graph {
	return &Graph{listeners: map[int]func(*Input){}}
}

// Subscribe registers fn to be called synchronously with every input whose
// value or connectivity changes. The returned function cancels the
// subscription.
func (g *Graph) Subscribe(fn func(*Input)) func() {
	id := g.nextListen
	g.nextListen++
	g.listeners[id] = fn
	return func() { delete(g.listeners, id) }
}

func (g *Graph) notify(in *Input) {
	for _, fn := range g.listeners {
		fn(in)
	}
}

// Node is a processing step identified by kind, with named inputs and
// outputs declared at construction time.
type Node struct {
	graph   *Graph
	kind    string
	name    string
	inputs  []*Input
	outputs []*Output
}

// NewNode creates an empty node. Callers declare inputs and outputs
// afterwards; see the render package for the stock node kinds.
func (g *Graph) NewNode(kind, name string) *Node {
	return &Node{graph: g, kind: kind, name: name}
}

func (n *Node) Graph() *Graph { return n.graph }
func (n *Node) Kind() string  { return n.kind }
func (n *Node) Name() string  { return n.name }

// AddInput declares a scalar input with a default value.
func (n *Node) AddInput(id string, def Value) *Input {
	in := &Input{node: n, id: id, def: def, value: def}
	n.inputs = append(n.inputs, in)
	return in
}

// AddArrayInput declares an array input. def is the default value for
// members created later.
func (n *Node) AddArrayInput(id string, def Value) *Input {
	in := &Input{node: n, id: id, array: true, def: def}
	n.inputs = append(n.inputs, in)
	return in
}

// AddOutput declares an output.
func (n *Node) AddOutput(id string) *Output {
	out := &Output{node: n, id: id}
	n.outputs = append(n.outputs, out)
	return out
}

// Input resolves an input by identifier. Array members are addressable as
// "id[index]".
func (n *Node) Input(id string) *Input {
	for _, in := range n.inputs {
		if in.id == id {
			return in
		}
		if in.array {
			for _, sub := range in.subs {
				if sub.id == id {
					return sub
				}
			}
		}
	}
	return nil
}

// Output resolves an output by identifier.
func (n *Node) Output(id string) *Output {
	for _, out := range n.outputs {
		if out.id == id {
			return out
		}
	}
	return nil
}

// Inputs returns the declared top-level inputs.
func (n *Node) Inputs() []*Input { return n.inputs }

// Outputs returns the declared outputs.
func (n *Node) Outputs() []*Output { return n.outputs }

// InputsIncludingArrays flattens the input list: each top-level input
// followed by its array members, in declaration order. Two nodes of the
// same kind with matching array lengths yield positionally aligned lists.
func (n *Node) InputsIncludingArrays() []*Input {
	var all []*Input
	for _, in := range n.inputs {
		all = append(all, in)
		if in.array {
			all = append(all, in.subs...)
		}
	}
	return all
}

// OutputsTo reports whether any of n's outputs feed target, transitively if
// recursive is set.
func (n *Node) OutputsTo(target *Node, recursive bool) bool {
	for _, out := range n.outputs {
		for _, e := range out.edges {
			if e.to.node == target {
				return true
			}
			if recursive && e.to.node.OutputsTo(target, true) {
				return true
			}
		}
	}
	return false
}

// Copy clones the node's static shape into dst: same kind, name, input and
// output declarations. Values stay at defaults, arrays start empty and no
// edges are created; CopyInputs transfers state separately.
func (n *Node) Copy(dst *Graph) *Node {
	c := dst.NewNode(n.kind, n.name)
	for _, in := range n.inputs {
		if in.array {
			c.AddArrayInput(in.id, in.def)
		} else {
			c.AddInput(in.id, in.def)
		}
	}
	for _, out := range n.outputs {
		c.AddOutput(out.id)
	}
	return c
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.name, n.kind)
}
