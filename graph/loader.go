package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/mfay/montage/media"
)

// Builder constructs a node of a particular kind with its inputs and
// outputs declared. The render package registers builders for the stock
// kinds; tests register their own.
type Builder func(g *Graph, name string) *Node

// Document is a node graph loaded from an HCL file.
type Document struct {
	Graph  *Graph
	Output *Node
	nodes  map[string]*Node
}

// Node resolves a document node by name.
func (d *Document) Node(name string) *Node { return d.nodes[name] }

type documentFile struct {
	Output   string          `hcl:"output"`
	Nodes    []*nodeBlock    `hcl:"node,block"`
	Connects []*connectBlock `hcl:"connect,block"`
}

type nodeBlock struct {
	Kind   string        `hcl:"kind,label"`
	Name   string        `hcl:"name,label"`
	Params []*paramBlock `hcl:"param,block"`
}

type paramBlock struct {
	Name  string     `hcl:"name,label"`
	Value *cty.Value `hcl:"value,optional"`
	Keys  []keyBlock `hcl:"key,block"`
}

type keyBlock struct {
	Time  string    `hcl:"time"`
	Value cty.Value `hcl:"value"`
}

type connectBlock struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

func newHCLEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{},
	}
}

// LoadDocument parses an HCL graph document, instantiating nodes through
// the supplied builders and wiring the declared connections.
func LoadDocument(path string, builders map[string]Builder) (*Document, error) {
	var file documentFile
	if err := hclsimple.DecodeFile(path, newHCLEvalContext(), &file); err != nil {
		return nil, err
	}
	return buildDocument(&file, builders)
}

// LoadDocumentBytes is LoadDocument for in-memory HCL source.
func LoadDocumentBytes(src []byte, filename string, builders map[string]Builder) (*Document, error) {
	var file documentFile
	if err := hclsimple.Decode(filename, src, newHCLEvalContext(), &file); err != nil {
		return nil, err
	}
	return buildDocument(&file, builders)
}

func buildDocument(file *documentFile, builders map[string]Builder) (*Document, error) {
	doc := &Document{
		Graph: New(),
		nodes: map[string]*Node{},
	}

	for _, nb := range file.Nodes {
		build, ok := builders[nb.Kind]
		if !ok {
			return nil, fmt.Errorf("graph document: unknown node kind %q", nb.Kind)
		}
		if _, exists := doc.nodes[nb.Name]; exists {
			return nil, fmt.Errorf("graph document: duplicate node name %q", nb.Name)
		}

		node := build(doc.Graph, nb.Name)
		doc.nodes[nb.Name] = node

		for _, pb := range nb.Params {
			in, err := resolveInput(node, pb.Name)
			if err != nil {
				return nil, err
			}
			if pb.Value != nil {
				in.SetValue(*pb.Value)
			}
			for _, kb := range pb.Keys {
				t, err := media.ParseRational(kb.Time)
				if err != nil {
					return nil, fmt.Errorf("graph document: node %q param %q: %w", nb.Name, pb.Name, err)
				}
				in.SetKeyframe(t, kb.Value)
			}
		}
	}

	for _, cb := range file.Connects {
		out, err := resolveOutputRef(doc, cb.From)
		if err != nil {
			return nil, err
		}
		in, err := resolveInputRef(doc, cb.To)
		if err != nil {
			return nil, err
		}
		Connect(out, in)
	}

	outNode, ok := doc.nodes[file.Output]
	if !ok {
		return nil, fmt.Errorf("graph document: output names unknown node %q", file.Output)
	}
	doc.Output = outNode

	return doc, nil
}

// resolveInput finds an input by id, growing array inputs so that indexed
// members like "layers[2]" exist on demand.
func resolveInput(n *Node, id string) (*Input, error) {
	if in := n.Input(id); in != nil {
		return in, nil
	}

	if base, idx, ok := splitArrayRef(id); ok {
		arr := n.Input(base)
		if arr != nil && arr.IsArray() {
			if idx >= len(arr.Members()) {
				arr.Resize(idx + 1)
			}
			if in := n.Input(id); in != nil {
				return in, nil
			}
		}
	}

	return nil, fmt.Errorf("graph document: node %q has no input %q", n.Name(), id)
}

func splitArrayRef(id string) (base string, idx int, ok bool) {
	open := strings.IndexByte(id, '[')
	if open < 0 || !strings.HasSuffix(id, "]") {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[open+1 : len(id)-1])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return id[:open], n, true
}

func resolveInputRef(doc *Document, ref string) (*Input, error) {
	nodeName, inputID, ok := strings.Cut(ref, ".")
	if !ok {
		return nil, fmt.Errorf("graph document: malformed input ref %q", ref)
	}
	node, exists := doc.nodes[nodeName]
	if !exists {
		return nil, fmt.Errorf("graph document: input ref %q names unknown node", ref)
	}
	return resolveInput(node, inputID)
}

func resolveOutputRef(doc *Document, ref string) (*Output, error) {
	nodeName, outputID, ok := strings.Cut(ref, ".")
	if !ok {
		return nil, fmt.Errorf("graph document: malformed output ref %q", ref)
	}
	node, exists := doc.nodes[nodeName]
	if !exists {
		return nil, fmt.Errorf("graph document: output ref %q names unknown node", ref)
	}
	out := node.Output(outputID)
	if out == nil {
		return nil, fmt.Errorf("graph document: node %q has no output %q", nodeName, outputID)
	}
	return out, nil
}
