// Package color provides the engine's color pipeline: a manager of named
// color spaces around a scene-linear reference, transforms between spaces,
// and alpha association helpers for float frames.
package color

import (
	"fmt"
	"math"
)

// Space is a named color space defined by its transfer characteristic
// relative to the scene-linear reference.
type Space struct {
	Name string

	toLinear   func(float32) float32
	fromLinear func(float32) float32
}

// ToLinear decodes an encoded channel value to scene-linear.
func (s Space) ToLinear(v float32) float32 { return s.toLinear(v) }

// FromLinear encodes a scene-linear channel value.
func (s Space) FromLinear(v float32) float32 { return s.fromLinear(v) }

func identity(v float32) float32 { return v }

func srgbToLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow((float64(v)+0.055)/1.055, 2.4))
}

func srgbFromLinear(v float32) float32 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return float32(1.055*math.Pow(float64(v), 1/2.4) - 0.055)
}

func rec709ToLinear(v float32) float32 {
	if v < 0.081 {
		return v / 4.5
	}
	return float32(math.Pow((float64(v)+0.099)/1.099, 1/0.45))
}

func rec709FromLinear(v float32) float32 {
	if v < 0.018 {
		return v * 4.5
	}
	return float32(1.099*math.Pow(float64(v), 0.45) - 0.099)
}

// Manager holds the set of available color spaces. The reference space is
// always scene-linear; the default input space, used for media that carries
// no color metadata, is the first space listed unless overridden.
type Manager struct {
	spaces       []Space
	byName       map[string]Space
	defaultInput string
}

// NewManager returns a manager with the builtin spaces: srgb, linear and
// rec709, in that order.
func NewManager() *Manager {
	m := &Manager{byName: map[string]Space{}}
	m.Register(Space{Name: "srgb", toLinear: srgbToLinear, fromLinear: srgbFromLinear})
	m.Register(Space{Name: "linear", toLinear: identity, fromLinear: identity})
	m.Register(Space{Name: "rec709", toLinear: rec709ToLinear, fromLinear: rec709FromLinear})
	return m
}

// Register adds a space. The first registered space becomes the default
// input space.
func (m *Manager) Register(s Space) {
	if _, ok := m.byName[s.Name]; !ok {
		m.spaces = append(m.spaces, s)
	}
	m.byName[s.Name] = s
	if m.defaultInput == "" {
		m.defaultInput = s.Name
	}
}

// ListAvailableSpaces returns the space names in registration order.
func (m *Manager) ListAvailableSpaces() []string {
	names := make([]string, len(m.spaces))
	for i, s := range m.spaces {
		names[i] = s.Name
	}
	return names
}

// Space resolves a space by name.
func (m *Manager) Space(name string) (Space, error) {
	s, ok := m.byName[name]
	if !ok {
		return Space{}, fmt.Errorf("color: unknown color space %q", name)
	}
	return s, nil
}

// DefaultInputSpace returns the space assumed for untagged media.
func (m *Manager) DefaultInputSpace() string { return m.defaultInput }

// SetDefaultInputSpace overrides the default input space.
func (m *Manager) SetDefaultInputSpace(name string) error {
	if _, ok := m.byName[name]; !ok {
		return fmt.Errorf("color: unknown color space %q", name)
	}
	m.defaultInput = name
	return nil
}

// ReferenceSpace returns the name of the internal working reference, which
// is always scene-linear.
func (m *Manager) ReferenceSpace() string { return "linear" }
