package render

import (
	"context"
	"encoding/binary"
	"hash"

	"github.com/twmb/murmur3"

	"github.com/mfay/montage/graph"
	"github.com/mfay/montage/media"
)

// hashAt fingerprints everything that determines the frame at t: the output
// parameters, the upstream topology and every parameter value evaluated at
// t. Two times with equal hashes produce identical frames, so callers can
// share cached output between them.
func (r *Renderer) hashAt(ctx context.Context, root *graph.Node, t media.Rational) (media.FrameHash, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	h := murmur3.New64()
	hashInt64(h, int64(r.cfg.Video.Width))
	hashInt64(h, int64(r.cfg.Video.Height))
	hashInt64(h, int64(r.cfg.Video.Divider))
	hashNode(h, root, t)
	return media.FrameHash(h.Sum64()), nil
}

func hashNode(h hash.Hash64, n *graph.Node, t media.Rational) {
	if n == nil {
		h.Write([]byte{0})
		return
	}

	h.Write([]byte(n.Kind()))
	for _, in := range n.InputsIncludingArrays() {
		h.Write([]byte(in.ID()))
		if in.Connected() {
			h.Write([]byte{1})
			h.Write([]byte(in.ConnectedOutput().ID()))
			hashNode(h, in.ConnectedNode(), t)
			continue
		}
		v := in.ValueAt(t)
		if !v.IsNull() && v.IsKnown() {
			h.Write([]byte(v.GoString()))
		} else {
			h.Write([]byte{0})
		}
	}
}

func hashInt64(h hash.Hash64, v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	h.Write(buf[:])
}
