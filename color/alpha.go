package color

import "github.com/mfay/montage/media"

// AssociateAlpha multiplies the color channels by alpha, producing
// premultiplied pixels.
func AssociateAlpha(f *media.Frame) {
	for i := 0; i < len(f.Pix); i += 4 {
		a := f.Pix[i+3]
		f.Pix[i] *= a
		f.Pix[i+1] *= a
		f.Pix[i+2] *= a
	}
}

// DisassociateAlpha divides the color channels by alpha, producing straight
// pixels. Fully transparent pixels are left untouched.
func DisassociateAlpha(f *media.Frame) {
	for i := 0; i < len(f.Pix); i += 4 {
		a := f.Pix[i+3]
		if a == 0 {
			continue
		}
		f.Pix[i] /= a
		f.Pix[i+1] /= a
		f.Pix[i+2] /= a
	}
}

// ReassociateAlpha restores association after external processing that
// expects straight pixels: a no-op for transparent pixels, otherwise the
// same multiply as AssociateAlpha.
func ReassociateAlpha(f *media.Frame) {
	AssociateAlpha(f)
}
