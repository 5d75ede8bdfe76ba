package montage

import (
	"fmt"

	"github.com/mfay/montage/graph"
)

// copier maintains the private snapshot of the subject graph that workers
// render against. It owns a full deep copy of everything reachable from the
// subject's video and audio inputs, an identity map from live nodes to
// their snapshot counterparts, and the queue of pending live-graph changes
// awaiting propagation.
//
// The copier has no locking of its own: the backend serializes every call
// on its coordination mutex, and workers only ever see the snapshot between
// flushes (the all-idle gate in the dispatch loop).
type copier struct {
	subject *graph.Node
	snap    *graph.Graph
	root    *graph.Node
	copyMap map[*graph.Node]*graph.Node
	updates []*graph.Input
}

func newCopier() *copier {
	return &copier{copyMap: map[*graph.Node]*graph.Node{}}
}

// attach performs the initial deep copy rooted at subject's video and audio
// inputs. subject must declare inputs named "video" and "audio".
func (c *copier) attach(subject *graph.Node) error {
	video := subject.Input("video")
	audio := subject.Input("audio")
	if video == nil || audio == nil {
		return fmt.Errorf("montage: subject %s lacks video/audio inputs", subject)
	}

	c.subject = subject
	c.snap = graph.New()
	c.root = subject.Copy(c.snap)
	c.copyMap[subject] = c.root

	c.noteChange(video)
	c.noteChange(audio)
	c.flush()

	return nil
}

// reset drops the snapshot, the identity map and all pending updates. The
// caller guarantees no worker still references snapshot nodes.
func (c *copier) reset() {
	c.subject = nil
	c.snap = nil
	c.root = nil
	c.copyMap = map[*graph.Node]*graph.Node{}
	c.updates = nil
}

func (c *copier) pendingLen() int { return len(c.updates) }

// noteChange records that a live input changed value or connectivity,
// coalescing against the pending queue so that no queued entry is redundant
// with another. The queue stays bounded by the number of independent edit
// locations, not the edit count.
func (c *copier) noteChange(in *graph.Input) {
	// A node with no counterpart is not part of the snapshot. Either a
	// queued entry's apply-time re-copy will traverse it, or it is not yet
	// wired into the subject; the connect that eventually reaches it fires
	// on a mapped input and queues the covering re-copy. The usual editing
	// order of create, configure, then connect depends on this.
	if c.copyMap[in.Node()] == nil {
		return
	}

	for i := 0; i < len(c.updates); i++ {
		queued := c.updates[i]

		// Already queued.
		if queued == in {
			return
		}

		// The changed node feeds a queued input: that entry's re-copy
		// will traverse this node and read its current state.
		if in.Node().OutputsTo(queued.Node(), true) {
			return
		}

		// Member of a queued array input: the array's apply visits every
		// member.
		if queued.IsArray() && in.Container() == queued {
			return
		}

		// Symmetric superseding: this change covers the queued entry.
		if queued.Node().OutputsTo(in.Node(), true) ||
			(in.IsArray() && queued.Container() == in) {
			c.updates = append(c.updates[:i], c.updates[i+1:]...)
			i--
		}
	}

	c.updates = append(c.updates, in)
}

// flush drains the pending queue, propagating each update into the
// snapshot. Must run to completion before any worker reads the snapshot.
func (c *copier) flush() {
	if len(c.updates) > 0 {
		Logger().Debug("flushing snapshot updates", "component", "copier", "pending", len(c.updates))
	}

	for len(c.updates) > 0 {
		in := c.updates[0]
		c.updates = c.updates[1:]
		c.copyInputValue(in)
	}
}

// copyInputValue propagates one live input into its snapshot counterpart:
// value state always; on a connectivity difference, the counterpart's
// exclusively-owned dependency subtree is torn down and the live input's
// current connection graph is re-copied in. Array inputs recurse into every
// member.
func (c *copier) copyInputValue(in *graph.Input) {
	ourNode := c.copyMap[in.Node()]
	if ourNode == nil {
		panic(fmt.Sprintf("montage: flush of %s: node has no snapshot counterpart", in))
	}
	ourIn := ourNode.Input(in.ID())
	if ourIn == nil {
		panic(fmt.Sprintf("montage: flush of %s: snapshot node lacks the input", in))
	}

	graph.CopyValue(in, ourIn)

	if in.Connected() || ourIn.Connected() {
		// A connection or disconnection happened here. Drop every
		// snapshot node owned exclusively by the old connection, then
		// rebuild from the live side.
		for _, dep := range ourIn.ExclusiveDependencies() {
			c.unmapSnapshotNode(dep)
		}
		graph.Disconnect(ourIn)
		c.makeConnection(in, ourIn)
	}

	if in.IsArray() {
		// Members about to be trimmed take their exclusive subtrees with
		// them.
		for i := len(in.Members()); i < len(ourIn.Members()); i++ {
			for _, dep := range ourIn.Members()[i].ExclusiveDependencies() {
				c.unmapSnapshotNode(dep)
			}
		}
		ourIn.Resize(len(in.Members()))
		for _, sub := range in.Members() {
			c.copyInputValue(sub)
		}
	}
}

// copyNode returns the snapshot counterpart of a live node, creating it on
// demand, then refreshes its values and re-copies its connections. Values
// are always read from the live graph at call time.
func (c *copier) copyNode(src *graph.Node) *graph.Node {
	dst := c.copyMap[src]
	if dst == nil {
		dst = src.Copy(c.snap)
		c.copyMap[src] = dst
	}

	graph.CopyInputs(src, dst, false)

	srcInputs := src.InputsIncludingArrays()
	dstInputs := dst.InputsIncludingArrays()
	for i := range srcInputs {
		c.makeConnection(srcInputs[i], dstInputs[i])
	}

	return dst
}

// makeConnection mirrors srcIn's connection onto dstIn, copying the
// upstream node first if needed.
func (c *copier) makeConnection(srcIn, dstIn *graph.Input) {
	if !srcIn.Connected() {
		return
	}

	upstream := c.copyNode(srcIn.ConnectedNode())
	out := upstream.Output(srcIn.ConnectedOutput().ID())
	if out == nil {
		panic(fmt.Sprintf("montage: snapshot node %s lacks output %q", upstream, srcIn.ConnectedOutput().ID()))
	}
	graph.Connect(out, dstIn)
}

// unmapSnapshotNode removes the identity-map entry whose counterpart is the
// given snapshot node. The node itself is unreferenced afterwards and gets
// collected.
func (c *copier) unmapSnapshotNode(snap *graph.Node) {
	for live, copied := range c.copyMap {
		if copied == snap {
			delete(c.copyMap, live)
			return
		}
	}
}
