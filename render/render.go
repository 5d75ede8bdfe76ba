package render

import (
	"context"
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"

	montage "github.com/mfay/montage"
	"github.com/mfay/montage/graph"
	"github.com/mfay/montage/media"
)

// audioChunkSeconds bounds how much audio is produced between cancellation
// checks.
const audioChunkSeconds = 1

// Renderer is the stock software worker: it walks the snapshot graph and
// evaluates the node kinds from Builders on the CPU.
type Renderer struct {
	cfg montage.WorkerConfig
}

func New() *Renderer { return &Renderer{} }

// Factory adapts New for backend construction.
func Factory() montage.WorkerFactory {
	return func() montage.Worker { return New() }
}

func (r *Renderer) Configure(cfg montage.WorkerConfig) { r.cfg = cfg }

// RenderFrame evaluates the video side of the graph at t, applies the
// configured color transform and feeds the preview sink when present.
func (r *Renderer) RenderFrame(ctx context.Context, root *graph.Node, t media.Rational) (*media.Frame, error) {
	f, err := r.renderVideo(ctx, root, t)
	if err != nil {
		return nil, err
	}
	if r.cfg.Transform != nil {
		r.cfg.Transform.Apply(f)
	}
	if r.cfg.Preview != nil {
		hash, err := r.hashAt(ctx, root, t)
		if err != nil {
			return nil, err
		}
		r.cfg.Preview.WriteFramePreview(hash, f)
	}
	return f, nil
}

// RenderAudio evaluates the audio side of the graph over rng, one aligned
// chunk at a time with a cancellation check between chunks.
func (r *Renderer) RenderAudio(ctx context.Context, root *graph.Node, rng media.TimeRange) (*media.AudioBuffer, error) {
	var out *media.AudioBuffer
	for _, chunk := range media.SplitRangeIntoChunks(rng, audioChunkSeconds) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf := r.renderAudio(root, chunk)
		if out == nil {
			out = buf
		} else {
			out.Append(buf)
		}
	}
	if out == nil {
		out = media.NewAudioBuffer(r.cfg.Audio, rng)
	}
	if r.cfg.Preview != nil {
		r.cfg.Preview.WriteAudioPreview(out)
	}
	return out, nil
}

// Hash fingerprints the graph state at each requested time.
func (r *Renderer) Hash(ctx context.Context, root *graph.Node, times []media.Rational) ([]media.FrameHash, error) {
	hashes := make([]media.FrameHash, len(times))
	for i, t := range times {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h, err := r.hashAt(ctx, root, t)
		if err != nil {
			return nil, err
		}
		hashes[i] = h
	}
	return hashes, nil
}

func (r *Renderer) renderVideo(ctx context.Context, n *graph.Node, t media.Rational) (*media.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n == nil {
		return media.NewFrame(r.cfg.Video), nil
	}

	switch n.Kind() {
	case "output":
		return r.renderVideo(ctx, n.Input("video").ConnectedNode(), t)

	case "solid":
		f := media.NewFrame(r.cfg.Video)
		a := float32(numberAt(n.Input("alpha"), t))
		// Stored associated: color channels carry alpha.
		f.Fill(
			float32(numberAt(n.Input("red"), t))*a,
			float32(numberAt(n.Input("green"), t))*a,
			float32(numberAt(n.Input("blue"), t))*a,
			a,
		)
		return f, nil

	case "blend":
		base, err := r.renderVideo(ctx, n.Input("base").ConnectedNode(), t)
		if err != nil {
			return nil, err
		}
		over, err := r.renderVideo(ctx, n.Input("over").ConnectedNode(), t)
		if err != nil {
			return nil, err
		}
		mix := numberAt(n.Input("mix"), t)
		compositeOver(base, over, float32(mix))
		return base, nil

	case "stack":
		f := media.NewFrame(r.cfg.Video)
		for _, layer := range n.Input("layers").Members() {
			over, err := r.renderVideo(ctx, layer.ConnectedNode(), t)
			if err != nil {
				return nil, err
			}
			compositeOver(f, over, 1)
		}
		return f, nil

	default:
		return nil, fmt.Errorf("render: node %s has no video output", n)
	}
}

// compositeOver alpha-composites over onto base in place, both associated,
// scaling over's contribution by mix.
func compositeOver(base, over *media.Frame, mix float32) {
	for i := 0; i < len(base.Pix) && i < len(over.Pix); i += 4 {
		oa := over.Pix[i+3] * mix
		inv := 1 - oa
		base.Pix[i] = over.Pix[i]*mix + base.Pix[i]*inv
		base.Pix[i+1] = over.Pix[i+1]*mix + base.Pix[i+1]*inv
		base.Pix[i+2] = over.Pix[i+2]*mix + base.Pix[i+2]*inv
		base.Pix[i+3] = oa + base.Pix[i+3]*inv
	}
}

func (r *Renderer) renderAudio(n *graph.Node, rng media.TimeRange) *media.AudioBuffer {
	buf := media.NewAudioBuffer(r.cfg.Audio, rng)
	if n == nil {
		return buf
	}

	switch n.Kind() {
	case "output":
		return r.renderAudio(n.Input("audio").ConnectedNode(), rng)

	case "tone":
		freq := numberAt(n.Input("frequency"), rng.In)
		amp := numberAt(n.Input("amplitude"), rng.In)
		rate := float64(buf.Params.SampleRate)
		start := rng.In.Float64()
		ch := buf.Params.Channels
		for s := 0; s < buf.SampleCount(); s++ {
			v := amp * math.Sin(2*math.Pi*freq*(start+float64(s)/rate))
			for c := 0; c < ch; c++ {
				buf.Data[s*ch+c] = v
			}
		}
		return buf

	case "gain":
		src := r.renderAudio(n.Input("source").ConnectedNode(), rng)
		g := numberAt(n.Input("gain"), rng.In)
		for i := range src.Data {
			src.Data[i] *= g
		}
		return src

	case "mix":
		for _, in := range n.Input("sources").Members() {
			src := r.renderAudio(in.ConnectedNode(), rng)
			for i := range buf.Data {
				if i < len(src.Data) {
					buf.Data[i] += src.Data[i]
				}
			}
		}
		return buf

	default:
		// Video-only nodes are silent.
		return buf
	}
}

// numberAt evaluates a numeric input at t; non-numeric values read as 0.
func numberAt(in *graph.Input, t media.Rational) float64 {
	v := in.ValueAt(t)
	if v.IsNull() || v.Type() != cty.Number {
		return 0
	}
	f, _ := v.AsBigFloat().Float64()
	return f
}
