// Package render ships the stock software renderer: builders for the
// standard node kinds and a Worker that evaluates them on the CPU.
package render

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/mfay/montage/graph"
)

// Builders returns the stock node kinds, keyed by kind, for graph
// documents and programmatic construction.
//
//	solid   flat color: red/green/blue/alpha
//	blend   alpha-over of "over" onto "base", scaled by "mix"
//	stack   array of layers; later layers composite over earlier ones
//	tone    sine generator: frequency (Hz) and amplitude
//	gain    scales its audio source by "gain"
//	mix     sums an array of audio sources
//	output  the subject node: one video root, one audio root
func Builders() map[string]graph.Builder {
	return map[string]graph.Builder{
		"solid":  newSolid,
		"blend":  newBlend,
		"stack":  newStack,
		"tone":   newTone,
		"gain":   newGain,
		"mix":    newMix,
		"output": newOutput,
	}
}

func newSolid(g *graph.Graph, name string) *graph.Node {
	n := g.NewNode("solid", name)
	n.AddInput("red", cty.NumberFloatVal(0))
	n.AddInput("green", cty.NumberFloatVal(0))
	n.AddInput("blue", cty.NumberFloatVal(0))
	n.AddInput("alpha", cty.NumberFloatVal(1))
	n.AddOutput("out")
	return n
}

func newBlend(g *graph.Graph, name string) *graph.Node {
	n := g.NewNode("blend", name)
	n.AddInput("base", cty.NullVal(cty.DynamicPseudoType))
	n.AddInput("over", cty.NullVal(cty.DynamicPseudoType))
	n.AddInput("mix", cty.NumberFloatVal(1))
	n.AddOutput("out")
	return n
}

func newStack(g *graph.Graph, name string) *graph.Node {
	n := g.NewNode("stack", name)
	n.AddArrayInput("layers", cty.NullVal(cty.DynamicPseudoType))
	n.AddOutput("out")
	return n
}

func newTone(g *graph.Graph, name string) *graph.Node {
	n := g.NewNode("tone", name)
	n.AddInput("frequency", cty.NumberFloatVal(440))
	n.AddInput("amplitude", cty.NumberFloatVal(0.5))
	n.AddOutput("out")
	return n
}

func newGain(g *graph.Graph, name string) *graph.Node {
	n := g.NewNode("gain", name)
	n.AddInput("source", cty.NullVal(cty.DynamicPseudoType))
	n.AddInput("gain", cty.NumberFloatVal(1))
	n.AddOutput("out")
	return n
}

func newMix(g *graph.Graph, name string) *graph.Node {
	n := g.NewNode("mix", name)
	n.AddArrayInput("sources", cty.NullVal(cty.DynamicPseudoType))
	n.AddOutput("out")
	return n
}

func newOutput(g *graph.Graph, name string) *graph.Node {
	n := g.NewNode("output", name)
	n.AddInput("video", cty.NullVal(cty.DynamicPseudoType))
	n.AddInput("audio", cty.NullVal(cty.DynamicPseudoType))
	return n
}
