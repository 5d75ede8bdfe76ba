package media

// RenderMode selects quality/speed tradeoffs for workers that care.
type RenderMode int

const (
	RenderModeOnline RenderMode = iota
	RenderModeOffline
)

func (m RenderMode) String() string {
	if m == RenderModeOffline {
		return "offline"
	}
	return "online"
}

// FrameHash is a 64-bit content hash of the graph state that produces a
// frame. Equal hashes mean identical output, so cached frames can be shared
// between times.
type FrameHash uint64

// VideoParams describes the raster the engine renders into.
type VideoParams struct {
	Width    int
	Height   int
	Timebase Rational
	// Divider scales the output down for previews; 1 is full size.
	Divider int
}

func (p VideoParams) IsValid() bool {
	return p.Width > 0 && p.Height > 0 && !p.Timebase.IsZero()
}

// EffectiveWidth returns the divider-adjusted width.
func (p VideoParams) EffectiveWidth() int {
	if p.Divider > 1 {
		return p.Width / p.Divider
	}
	return p.Width
}

// EffectiveHeight returns the divider-adjusted height.
func (p VideoParams) EffectiveHeight() int {
	if p.Divider > 1 {
		return p.Height / p.Divider
	}
	return p.Height
}

// AudioParams describes the sample stream the engine renders into.
type AudioParams struct {
	SampleRate int
	Channels   int
}

func (p AudioParams) IsValid() bool {
	return p.SampleRate > 0 && p.Channels > 0
}

// SamplesForDuration returns the per-channel sample count covering d.
func (p AudioParams) SamplesForDuration(d Rational) int {
	return int(d.MulInt(int64(p.SampleRate)).Float64())
}
