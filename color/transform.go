package color

import "github.com/mfay/montage/media"

// Transform converts frames from one color space to another through the
// scene-linear reference. It satisfies the engine's ColorTransform
// interface.
type Transform struct {
	from Space
	to   Space
}

// NewTransform builds a transform between two named spaces of m.
func NewTransform(m *Manager, from, to string) (*Transform, error) {
	f, err := m.Space(from)
	if err != nil {
		return nil, err
	}
	t, err := m.Space(to)
	if err != nil {
		return nil, err
	}
	return &Transform{from: f, to: t}, nil
}

// Apply converts every pixel of f in place. Color math runs on straight
// (disassociated) channel values; frames with associated alpha are divided
// out first and re-multiplied after.
func (t *Transform) Apply(f *media.Frame) {
	DisassociateAlpha(f)
	for i := 0; i < len(f.Pix); i += 4 {
		f.Pix[i] = t.to.FromLinear(t.from.ToLinear(f.Pix[i]))
		f.Pix[i+1] = t.to.FromLinear(t.from.ToLinear(f.Pix[i+1]))
		f.Pix[i+2] = t.to.FromLinear(t.from.ToLinear(f.Pix[i+2]))
	}
	AssociateAlpha(f)
}
