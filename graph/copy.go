package graph

import "fmt"

// CopyValue transfers the scalar and keyframe state from src to dst.
// Connections and array members are untouched.
func CopyValue(src, dst *Input) {
	dst.value = src.value
	dst.keyframes = append(dst.keyframes[:0], src.keyframes...)
}

// CopyInputs transfers the value state of every matching input from src to
// dst. Array inputs on dst are resized to match src before their members
// are copied. With includeConnections set, dst inputs are additionally
// wired to the same outputs that drive src; this only makes sense when both
// nodes share a graph.
func CopyInputs(src, dst *Node, includeConnections bool) {
	for _, srcIn := range src.inputs {
		dstIn := dst.Input(srcIn.id)
		if dstIn == nil {
			panic(fmt.Sprintf("graph: CopyInputs between mismatched nodes: %s has no input %q", dst, srcIn.id))
		}

		if srcIn.array {
			ensureMembers(dstIn, len(srcIn.subs))
			for i, srcSub := range srcIn.subs {
				CopyValue(srcSub, dstIn.subs[i])
				if includeConnections && srcSub.edge != nil {
					Connect(srcSub.edge.from, dstIn.subs[i])
				}
			}
			continue
		}

		CopyValue(srcIn, dstIn)
		if includeConnections && srcIn.edge != nil {
			Connect(srcIn.edge.from, dstIn)
		}
	}
}

// ensureMembers grows dst's member list without firing notifications;
// snapshot bookkeeping must not feed back into the change feed.
func ensureMembers(dst *Input, n int) {
	for len(dst.subs) > n {
		last := dst.subs[len(dst.subs)-1]
		if last.edge != nil {
			removeEdge(last.edge)
		}
		dst.subs = dst.subs[:len(dst.subs)-1]
	}
	for len(dst.subs) < n {
		sub := &Input{
			node:      dst.node,
			id:        fmt.Sprintf("%s[%d]", dst.id, len(dst.subs)),
			container: dst,
			def:       dst.def,
			value:     dst.def,
		}
		dst.subs = append(dst.subs, sub)
	}
}

// ExclusiveDependencies returns the upstream nodes reachable through this
// input's connection that are referenced nowhere else: deleting the
// returned nodes after disconnecting in leaves no dangling edge. Shared
// nodes, and anything feeding a shared node, are excluded.
func (in *Input) ExclusiveDependencies() []*Node {
	if in.edge == nil {
		return nil
	}

	closure := map[*Node]bool{}
	collectUpstream(in.edge.from.node, closure)

	// Iteratively discard nodes with any edge escaping the candidate set
	// (other than the edge into in itself). Discarding a node can expose
	// its own suppliers as escaping, so run to a fixed point.
	candidates := make(map[*Node]bool, len(closure))
	for n := range closure {
		candidates[n] = true
	}
	for {
		removed := false
		for n := range candidates {
			if escapes(n, in, candidates) {
				delete(candidates, n)
				removed = true
			}
		}
		if !removed {
			break
		}
	}

	deps := make([]*Node, 0, len(candidates))
	for n := range candidates {
		deps = append(deps, n)
	}
	return deps
}

func collectUpstream(n *Node, seen map[*Node]bool) {
	if seen[n] {
		return
	}
	seen[n] = true
	for _, upIn := range n.InputsIncludingArrays() {
		if upIn.edge != nil {
			collectUpstream(upIn.edge.from.node, seen)
		}
	}
}

func escapes(n *Node, root *Input, set map[*Node]bool) bool {
	for _, out := range n.outputs {
		for _, e := range out.edges {
			if e.to == root {
				continue
			}
			if !set[e.to.node] {
				return true
			}
		}
	}
	return false
}
