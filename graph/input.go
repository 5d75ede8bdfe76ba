package graph

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/mfay/montage/media"
)

// Value is the parameter value type. cty gives the graph a typed value
// system (numbers, strings, bools, tuples) that the HCL document loader can
// populate directly.
type Value = cty.Value

// Keyframe is a value pinned to a time.
type Keyframe struct {
	Time  media.Rational
	Value Value
}

// Input is a parameter slot on a node. It is one of three shapes: scalar
// (value plus optional keyframes), array (a list of member inputs), or
// connected (driven by another node's output). An input accepts at most one
// incoming edge.
type Input struct {
	node      *Node
	id        string
	array     bool
	container *Input
	subs      []*Input
	def       Value
	value     Value
	keyframes []Keyframe
	edge      *Edge
}

func (in *Input) Node() *Node { return in.node }
func (in *Input) ID() string  { return in.id }

// IsArray reports whether this is an array input.
func (in *Input) IsArray() bool { return in.array }

// Container returns the enclosing array input for an array member, or nil.
func (in *Input) Container() *Input { return in.container }

// Members returns the array members.
func (in *Input) Members() []*Input { return in.subs }

// SetValue sets the static value and notifies the graph.
func (in *Input) SetValue(v Value) {
	in.value = v
	in.node.graph.notify(in)
}

// Value returns the static (non-animated) value.
func (in *Input) Value() Value { return in.value }

// SetKeyframe inserts or replaces the keyframe at t and notifies the graph.
func (in *Input) SetKeyframe(t media.Rational, v Value) {
	for i := range in.keyframes {
		if in.keyframes[i].Time == t {
			in.keyframes[i].Value = v
			in.node.graph.notify(in)
			return
		}
	}
	in.keyframes = append(in.keyframes, Keyframe{Time: t, Value: v})
	sort.Slice(in.keyframes, func(i, j int) bool {
		return in.keyframes[i].Time.Less(in.keyframes[j].Time)
	})
	in.node.graph.notify(in)
}

// RemoveKeyframe deletes the keyframe at t, if present.
func (in *Input) RemoveKeyframe(t media.Rational) {
	for i := range in.keyframes {
		if in.keyframes[i].Time == t {
			in.keyframes = append(in.keyframes[:i], in.keyframes[i+1:]...)
			in.node.graph.notify(in)
			return
		}
	}
}

// Keyframes returns the sorted keyframe list.
func (in *Input) Keyframes() []Keyframe { return in.keyframes }

// ValueAt evaluates the input at t: keyframe interpolation when keyframes
// exist (linear for numbers, hold otherwise), the static value otherwise.
// Connections are not followed; that is the renderer's job.
func (in *Input) ValueAt(t media.Rational) Value {
	if len(in.keyframes) == 0 {
		return in.value
	}

	kf := in.keyframes
	if !kf[0].Time.Less(t) && kf[0].Time != t {
		return kf[0].Value
	}
	for i := 0; i < len(kf); i++ {
		if kf[i].Time == t {
			return kf[i].Value
		}
		if t.Less(kf[i].Time) {
			return interpolate(kf[i-1], kf[i], t)
		}
	}
	return kf[len(kf)-1].Value
}

func interpolate(a, b Keyframe, t media.Rational) Value {
	if a.Value.Type() != cty.Number || b.Value.Type() != cty.Number {
		return a.Value
	}
	av, _ := a.Value.AsBigFloat().Float64()
	bv, _ := b.Value.AsBigFloat().Float64()
	span := b.Time.Sub(a.Time).Float64()
	if span == 0 {
		return a.Value
	}
	frac := t.Sub(a.Time).Float64() / span
	return cty.NumberFloatVal(av + (bv-av)*frac)
}

// Append adds a member to an array input and notifies the graph with the
// array input itself.
func (in *Input) Append() *Input {
	if !in.array {
		panic(fmt.Sprintf("graph: Append on non-array input %s.%s", in.node.name, in.id))
	}
	sub := &Input{
		node:      in.node,
		id:        fmt.Sprintf("%s[%d]", in.id, len(in.subs)),
		container: in,
		def:       in.def,
		value:     in.def,
	}
	in.subs = append(in.subs, sub)
	in.node.graph.notify(in)
	return sub
}

// Resize grows or shrinks the member list to n entries. Removed members are
// disconnected first.
func (in *Input) Resize(n int) {
	if !in.array {
		panic(fmt.Sprintf("graph: Resize on non-array input %s.%s", in.node.name, in.id))
	}
	for len(in.subs) > n {
		last := in.subs[len(in.subs)-1]
		if last.edge != nil {
			Disconnect(last)
		}
		in.subs = in.subs[:len(in.subs)-1]
	}
	for len(in.subs) < n {
		in.Append()
	}
}

// Connected reports whether an edge drives this input.
func (in *Input) Connected() bool { return in.edge != nil }

// ConnectedOutput returns the driving output, or nil.
func (in *Input) ConnectedOutput() *Output {
	if in.edge == nil {
		return nil
	}
	return in.edge.from
}

// ConnectedNode returns the driving output's node, or nil.
func (in *Input) ConnectedNode() *Node {
	if in.edge == nil {
		return nil
	}
	return in.edge.from.node
}

func (in *Input) String() string {
	return fmt.Sprintf("%s.%s", in.node.name, in.id)
}

// Output is a named production slot on a node. One output may fan out to
// any number of inputs.
type Output struct {
	node  *Node
	id    string
	edges []*Edge
}

func (out *Output) Node() *Node    { return out.node }
func (out *Output) ID() string     { return out.id }
func (out *Output) Edges() []*Edge { return out.edges }

// Edge is a directed connection from an output to an input.
type Edge struct {
	from *Output
	to   *Input
}

func (e *Edge) From() *Output { return e.from }
func (e *Edge) To() *Input    { return e.to }

// Connect wires out to in, replacing any existing edge into in, and
// notifies in's graph. Connecting an array input directly is an error;
// connect a member instead.
func Connect(out *Output, in *Input) {
	if in.array {
		panic(fmt.Sprintf("graph: cannot connect array input %s", in))
	}
	if in.edge != nil {
		removeEdge(in.edge)
	}
	e := &Edge{from: out, to: in}
	out.edges = append(out.edges, e)
	in.edge = e
	in.node.graph.notify(in)
}

// Disconnect removes the edge into in, if any, and notifies in's graph.
func Disconnect(in *Input) {
	if in.edge == nil {
		return
	}
	removeEdge(in.edge)
	in.node.graph.notify(in)
}

func removeEdge(e *Edge) {
	from := e.from
	for i, other := range from.edges {
		if other == e {
			from.edges = append(from.edges[:i], from.edges[i+1:]...)
			break
		}
	}
	e.to.edge = nil
}
