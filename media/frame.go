package media

import (
	"image"
	"image/color"
)

// Frame is a float RGBA raster. Channel values are linear-light unless a
// color transform says otherwise; alpha handling follows the associated /
// disassociated convention of the color package.
type Frame struct {
	Params VideoParams
	// Pix holds RGBA quadruplets, row-major.
	Pix []float32
}

func NewFrame(p VideoParams) *Frame {
	return &Frame{
		Params: p,
		Pix:    make([]float32, p.EffectiveWidth()*p.EffectiveHeight()*4),
	}
}

func (f *Frame) Width() int  { return f.Params.EffectiveWidth() }
func (f *Frame) Height() int { return f.Params.EffectiveHeight() }

// At returns the RGBA quadruplet at (x, y).
func (f *Frame) At(x, y int) (r, g, b, a float32) {
	i := (y*f.Width() + x) * 4
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]
}

// Set writes the RGBA quadruplet at (x, y).
func (f *Frame) Set(x, y int, r, g, b, a float32) {
	i := (y*f.Width() + x) * 4
	f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = r, g, b, a
}

// Fill sets every pixel to the given RGBA value.
func (f *Frame) Fill(r, g, b, a float32) {
	for i := 0; i < len(f.Pix); i += 4 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = r, g, b, a
	}
}

// ToImage converts the frame to an 8-bit NRGBA image for encoding.
func (f *Frame) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width(), f.Height()))
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			r, g, b, a := f.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{
				R: quantize(r),
				G: quantize(g),
				B: quantize(b),
				A: quantize(a),
			})
		}
	}
	return img
}

func quantize(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// AudioBuffer is a block of interleaved float64 samples.
type AudioBuffer struct {
	Params AudioParams
	Range  TimeRange
	// Data holds Channels-interleaved samples.
	Data []float64
}

func NewAudioBuffer(p AudioParams, r TimeRange) *AudioBuffer {
	n := p.SamplesForDuration(r.Duration()) * p.Channels
	return &AudioBuffer{Params: p, Range: r, Data: make([]float64, n)}
}

// SampleCount returns the per-channel sample count.
func (b *AudioBuffer) SampleCount() int {
	if b.Params.Channels == 0 {
		return 0
	}
	return len(b.Data) / b.Params.Channels
}

// Append concatenates o's samples; o must share params and be contiguous
// with b's range.
func (b *AudioBuffer) Append(o *AudioBuffer) {
	b.Data = append(b.Data, o.Data...)
	b.Range.Out = o.Range.Out
}
