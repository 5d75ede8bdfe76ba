package cache

import (
	"image"
	"math"
	"sync"

	"github.com/muesli/gamut"
	"golang.org/x/image/draw"

	"github.com/mfay/montage/media"
)

const waveformHeight = 64

// Preview keeps downscaled render products for UI surfaces: the most recent
// frame thumbnail per content hash plus the latest audio waveform strip.
// Workers write concurrently.
type Preview struct {
	width int

	mu       sync.Mutex
	thumbs   map[media.FrameHash]*image.NRGBA
	latest   *image.NRGBA
	waveform *image.NRGBA
	levels   []image.Uniform
}

// NewPreview returns a sink producing previews of the given pixel width;
// zero or negative defaults to 320.
func NewPreview(width int) *Preview {
	if width <= 0 {
		width = 320
	}

	p := &Preview{
		width:  width,
		thumbs: map[media.FrameHash]*image.NRGBA{},
	}
	for _, c := range gamut.Blends(gamut.Hex("#1d3557"), gamut.Hex("#e63946"), waveformHeight) {
		p.levels = append(p.levels, image.Uniform{C: c})
	}
	return p
}

// WriteFramePreview downscales f and stores it under its hash.
func (p *Preview) WriteFramePreview(hash media.FrameHash, f *media.Frame) {
	src := f.ToImage()
	h := f.Height() * p.width / max(f.Width(), 1)
	if h < 1 {
		h = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, p.width, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.thumbs[hash] = dst
	p.latest = dst
}

// WriteAudioPreview renders buf as a waveform strip: one column per bucket
// of samples, colored by peak level.
func (p *Preview) WriteAudioPreview(buf *media.AudioBuffer) {
	img := image.NewNRGBA(image.Rect(0, 0, p.width, waveformHeight))
	count := buf.SampleCount()
	if count == 0 {
		p.mu.Lock()
		p.waveform = img
		p.mu.Unlock()
		return
	}

	ch := buf.Params.Channels
	perColumn := (count + p.width - 1) / p.width
	mid := waveformHeight / 2

	for col := 0; col < p.width; col++ {
		peak := 0.0
		for s := col * perColumn; s < (col+1)*perColumn && s < count; s++ {
			for c := 0; c < ch; c++ {
				peak = math.Max(peak, math.Abs(buf.Data[s*ch+c]))
			}
		}
		if peak > 1 {
			peak = 1
		}

		half := int(peak * float64(mid))
		level := &p.levels[min(half*2, len(p.levels)-1)]
		for y := mid - half; y <= mid+half && y < waveformHeight; y++ {
			if y < 0 {
				continue
			}
			img.Set(col, y, level.C)
		}
	}

	p.mu.Lock()
	p.waveform = img
	p.mu.Unlock()
}

// Thumbnail returns the stored thumbnail for a hash, or nil.
func (p *Preview) Thumbnail(hash media.FrameHash) image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.thumbs[hash]; ok {
		return t
	}
	return nil
}

// Latest returns the most recently written thumbnail, or nil.
func (p *Preview) Latest() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		return nil
	}
	return p.latest
}

// Waveform returns the most recent audio strip, or nil.
func (p *Preview) Waveform() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.waveform == nil {
		return nil
	}
	return p.waveform
}
