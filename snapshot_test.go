package montage

import (
	"testing"

	"github.com/zclconf/go-cty/cty"

	"github.com/mfay/montage/graph"
	"github.com/mfay/montage/media"
)

// newEffectNode declares the shape shared by the copier tests: two scalar
// inputs, one array input, one output.
func newEffectNode(g *graph.Graph, name string) *graph.Node {
	n := g.NewNode("effect", name)
	n.AddInput("level", cty.NumberIntVal(0))
	n.AddInput("source", cty.NullVal(cty.DynamicPseudoType))
	n.AddArrayInput("layers", cty.NumberIntVal(0))
	n.AddOutput("out")
	return n
}

func newSubjectNode(g *graph.Graph, name string) *graph.Node {
	n := g.NewNode("output", name)
	n.AddInput("video", cty.NullVal(cty.DynamicPseudoType))
	n.AddInput("audio", cty.NullVal(cty.DynamicPseudoType))
	return n
}

func TestAttachDeepCopiesReachableGraph(t *testing.T) {
	g := graph.New()
	subject := newSubjectNode(g, "viewer")
	vid := newEffectNode(g, "vid")
	src := newEffectNode(g, "src")
	aud := newEffectNode(g, "aud")

	src.Input("level").SetValue(cty.NumberIntVal(3))
	graph.Connect(src.Output("out"), vid.Input("source"))
	graph.Connect(vid.Output("out"), subject.Input("video"))
	graph.Connect(aud.Output("out"), subject.Input("audio"))

	c := newCopier()
	if err := c.attach(subject); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if c.pendingLen() != 0 {
		t.Fatalf("pending updates after attach = %d, want 0", c.pendingLen())
	}
	if len(c.copyMap) != 4 {
		t.Fatalf("copy map has %d entries, want 4", len(c.copyMap))
	}

	vidCopy := c.copyMap[vid]
	if vidCopy == nil || vidCopy == vid {
		t.Fatal("vid should have a distinct snapshot counterpart")
	}
	if c.root.Input("video").ConnectedNode() != vidCopy {
		t.Error("snapshot root video input should be driven by vid's counterpart")
	}
	srcCopy := c.copyMap[src]
	if vidCopy.Input("source").ConnectedNode() != srcCopy {
		t.Error("snapshot vid should be driven by src's counterpart")
	}
	if got := srcCopy.Input("level").Value(); !got.RawEquals(cty.NumberIntVal(3)) {
		t.Errorf("snapshot src level = %v, want 3", got)
	}
}

func TestAttachRequiresVideoAndAudioInputs(t *testing.T) {
	g := graph.New()
	n := newEffectNode(g, "notasubject")

	if err := newCopier().attach(n); err == nil {
		t.Fatal("attach should reject a node without video/audio inputs")
	}
}

func TestCoalesceExactDuplicate(t *testing.T) {
	c, _, nodes := attachedCopier(t)
	in := nodes["vid"].Input("level")

	c.noteChange(in)
	c.noteChange(in)

	if c.pendingLen() != 1 {
		t.Fatalf("queue length = %d, want 1", c.pendingLen())
	}
}

func TestCoalesceAncestorAlreadyQueued(t *testing.T) {
	c, _, nodes := attachedCopier(t)

	// src feeds vid. Queue vid first, then src: src's node feeds the
	// queued input's node, so its change is covered by that entry's
	// apply-time re-copy.
	c.noteChange(nodes["vid"].Input("source"))
	c.noteChange(nodes["src"].Input("level"))

	if c.pendingLen() != 1 {
		t.Fatalf("queue length = %d, want 1", c.pendingLen())
	}
	if c.updates[0] != nodes["vid"].Input("source") {
		t.Fatal("the downstream entry should remain queued")
	}
}

func TestCoalesceSupersedesQueuedDescendant(t *testing.T) {
	c, _, nodes := attachedCopier(t)

	// Queue an edit on src, then one on vid which src feeds: the src
	// entry is now redundant and must be removed.
	c.noteChange(nodes["src"].Input("level"))
	c.noteChange(nodes["vid"].Input("source"))

	if c.pendingLen() != 1 {
		t.Fatalf("queue length = %d, want 1", c.pendingLen())
	}
	if c.updates[0] != nodes["vid"].Input("source") {
		t.Fatal("the superseding entry should replace the descendant's")
	}
}

func TestCoalesceArrayCoversMember(t *testing.T) {
	c, _, nodes := attachedCopier(t)
	vid := nodes["vid"]
	vid.Input("layers").Resize(2)
	c.flush()

	arr := vid.Input("layers")
	member := vid.Input("layers[1]")

	c.noteChange(arr)
	c.noteChange(member)
	if c.pendingLen() != 1 || c.updates[0] != arr {
		t.Fatalf("member change should coalesce into the queued array entry, queue = %v", c.updates)
	}
}

func TestCoalesceArraySupersedesMember(t *testing.T) {
	c, _, nodes := attachedCopier(t)
	vid := nodes["vid"]
	vid.Input("layers").Resize(2)
	c.flush()

	arr := vid.Input("layers")
	member := vid.Input("layers[0]")

	c.noteChange(member)
	c.noteChange(arr)
	if c.pendingLen() != 1 || c.updates[0] != arr {
		t.Fatalf("array change should supersede the queued member entry, queue = %v", c.updates)
	}
}

func TestCoalesceIndependentEdits(t *testing.T) {
	c, _, nodes := attachedCopier(t)

	c.noteChange(nodes["vid"].Input("level"))
	c.noteChange(nodes["aud"].Input("level"))

	if c.pendingLen() != 2 {
		t.Fatalf("independent edits should both queue, length = %d", c.pendingLen())
	}
}

func TestChangeOnDisconnectedNodeIgnored(t *testing.T) {
	c, g, _ := attachedCopier(t)
	stranger := newEffectNode(g, "stranger")

	c.noteChange(stranger.Input("level"))

	if c.pendingLen() != 0 {
		t.Fatalf("queue length = %d, want 0 for a node outside the snapshot", c.pendingLen())
	}
}

func TestNodeConfiguredBeforeConnectReachesSnapshot(t *testing.T) {
	c, g, nodes := attachedCopier(t)
	vid := nodes["vid"]

	// The usual editing order: create a node, set its values, then wire it
	// in. The value change fires before the node is reachable and must be
	// dropped; the connect queues the re-copy that picks it up.
	fresh := newEffectNode(g, "fresh")
	fresh.Input("level").SetValue(cty.NumberIntVal(13))
	c.noteChange(fresh.Input("level"))
	if c.pendingLen() != 0 {
		t.Fatalf("queue length before connect = %d, want 0", c.pendingLen())
	}

	graph.Connect(fresh.Output("out"), vid.Input("source"))
	c.noteChange(vid.Input("source"))
	c.flush()

	freshCopy := c.copyMap[fresh]
	if freshCopy == nil {
		t.Fatal("flushing the connect should copy the new node into the snapshot")
	}
	if got := freshCopy.Input("level").Value(); !got.RawEquals(cty.NumberIntVal(13)) {
		t.Errorf("snapshot value = %v, want 13", got)
	}
}

func TestChangeOnUnknownNodeWithPendingCopyIgnored(t *testing.T) {
	c, g, nodes := attachedCopier(t)
	vid := nodes["vid"]

	// Connect a brand-new node; the connection queues an update on
	// vid.source. A follow-up edit on the new node has no counterpart
	// yet, but the pending copy will capture it.
	fresh := newEffectNode(g, "fresh")
	graph.Connect(fresh.Output("out"), vid.Input("source"))
	c.noteChange(vid.Input("source"))

	c.noteChange(fresh.Input("level"))

	if c.pendingLen() != 1 {
		t.Fatalf("queue length = %d, want 1", c.pendingLen())
	}
}

func TestFlushCopiesValueState(t *testing.T) {
	c, _, nodes := attachedCopier(t)
	src := nodes["src"]

	src.Input("level").SetValue(cty.NumberIntVal(9))
	src.Input("level").SetKeyframe(media.FromInt(1), cty.NumberIntVal(20))
	c.noteChange(src.Input("level"))
	c.flush()

	snap := c.copyMap[src]
	if got := snap.Input("level").Value(); !got.RawEquals(cty.NumberIntVal(9)) {
		t.Errorf("snapshot value = %v, want 9", got)
	}
	if got := len(snap.Input("level").Keyframes()); got != 1 {
		t.Errorf("snapshot keyframes = %d, want 1", got)
	}
}

func TestFlushReadsLiveStateAtApplyTime(t *testing.T) {
	c, _, nodes := attachedCopier(t)
	vid, src := nodes["vid"], nodes["src"]

	// Queue the downstream entry, then keep editing upstream: those later
	// edits coalesce away, relying on the apply pass reading current live
	// state rather than state at enqueue time.
	c.noteChange(vid.Input("source"))
	src.Input("level").SetValue(cty.NumberIntVal(77))
	c.noteChange(src.Input("level"))

	if c.pendingLen() != 1 {
		t.Fatalf("queue length = %d, want 1", c.pendingLen())
	}
	c.flush()

	if got := c.copyMap[src].Input("level").Value(); !got.RawEquals(cty.NumberIntVal(77)) {
		t.Errorf("snapshot src level = %v, want 77 (apply-time state)", got)
	}
}

func TestFlushDisconnectRemovesExclusiveSubtree(t *testing.T) {
	c, _, nodes := attachedCopier(t)
	vid, src := nodes["vid"], nodes["src"]

	graph.Disconnect(vid.Input("source"))
	c.noteChange(vid.Input("source"))
	c.flush()

	if c.copyMap[vid].Input("source").Connected() {
		t.Error("snapshot edge should be gone after flushing a disconnect")
	}
	if _, ok := c.copyMap[src]; ok {
		t.Error("src's counterpart should have been unmapped")
	}
}

func TestFlushReconnectCopiesNewSubtree(t *testing.T) {
	c, g, nodes := attachedCopier(t)
	vid := nodes["vid"]

	repl := newEffectNode(g, "replacement")
	repl.Input("level").SetValue(cty.NumberIntVal(5))
	feeder := newEffectNode(g, "feeder")
	graph.Connect(feeder.Output("out"), repl.Input("source"))

	graph.Connect(repl.Output("out"), vid.Input("source"))
	c.noteChange(vid.Input("source"))
	c.flush()

	replCopy := c.copyMap[repl]
	if replCopy == nil {
		t.Fatal("replacement should have been copied into the snapshot")
	}
	if c.copyMap[vid].Input("source").ConnectedNode() != replCopy {
		t.Error("snapshot vid should now be driven by the replacement's counterpart")
	}
	if got := replCopy.Input("level").Value(); !got.RawEquals(cty.NumberIntVal(5)) {
		t.Errorf("replacement copy level = %v, want 5", got)
	}
	if c.copyMap[feeder] == nil {
		t.Error("the replacement's own dependency should have been copied too")
	}
}

func TestFlushArrayRecursesIntoMembers(t *testing.T) {
	c, g, nodes := attachedCopier(t)
	vid := nodes["vid"]

	vid.Input("layers").Resize(2)
	layer := newEffectNode(g, "layer")
	graph.Connect(layer.Output("out"), vid.Input("layers[0]"))
	vid.Input("layers[1]").SetValue(cty.NumberIntVal(8))

	// The array-level entry covers everything beneath it.
	c.noteChange(vid.Input("layers"))
	c.flush()

	snap := c.copyMap[vid]
	if got := len(snap.Input("layers").Members()); got != 2 {
		t.Fatalf("snapshot array members = %d, want 2", got)
	}
	if snap.Input("layers[0]").ConnectedNode() != c.copyMap[layer] {
		t.Error("member connection should have been mirrored")
	}
	if got := snap.Input("layers[1]").Value(); !got.RawEquals(cty.NumberIntVal(8)) {
		t.Errorf("member value = %v, want 8", got)
	}
}

func TestResetClearsEverything(t *testing.T) {
	c, _, nodes := attachedCopier(t)
	c.noteChange(nodes["vid"].Input("level"))

	c.reset()

	if c.root != nil || c.subject != nil {
		t.Error("reset should drop the snapshot root and subject")
	}
	if len(c.copyMap) != 0 {
		t.Errorf("reset left %d identity-map entries", len(c.copyMap))
	}
	if c.pendingLen() != 0 {
		t.Error("reset left pending updates")
	}
}

// buildSubjectGraph is the standard fixture graph: viewer <- vid <- src on
// the video side, viewer <- aud on the audio side.
func buildSubjectGraph() (*graph.Graph, map[string]*graph.Node) {
	g := graph.New()
	subject := newSubjectNode(g, "viewer")
	vid := newEffectNode(g, "vid")
	src := newEffectNode(g, "src")
	aud := newEffectNode(g, "aud")

	graph.Connect(src.Output("out"), vid.Input("source"))
	graph.Connect(vid.Output("out"), subject.Input("video"))
	graph.Connect(aud.Output("out"), subject.Input("audio"))

	return g, map[string]*graph.Node{
		"viewer": subject,
		"vid":    vid,
		"src":    src,
		"aud":    aud,
	}
}

func attachedCopier(t *testing.T) (*copier, *graph.Graph, map[string]*graph.Node) {
	t.Helper()

	g, nodes := buildSubjectGraph()
	c := newCopier()
	if err := c.attach(nodes["viewer"]); err != nil {
		t.Fatalf("attach: %v", err)
	}
	return c, g, nodes
}
