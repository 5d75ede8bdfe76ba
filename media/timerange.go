package media

import (
	"fmt"
	"math"
)

// TimeRange is a half-open interval [In, Out).
type TimeRange struct {
	In  Rational
	Out Rational
}

func NewTimeRange(in, out Rational) TimeRange {
	return TimeRange{In: in, Out: out}
}

func (r TimeRange) Duration() Rational {
	return r.Out.Sub(r.In)
}

func (r TimeRange) Contains(t Rational) bool {
	return r.In.Cmp(t) <= 0 && t.Cmp(r.Out) < 0
}

func (r TimeRange) Intersects(o TimeRange) bool {
	return r.In.Less(o.Out) && o.In.Less(r.Out)
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.In, r.Out)
}

// SplitRangeIntoChunks splits r into chunk-aligned subranges of at most
// chunkSize seconds. Chunk boundaries sit on multiples of chunkSize; the
// first and last chunk are clamped to r. A chunkSize below 1 is treated
// as 1.
func SplitRangeIntoChunks(r TimeRange, chunkSize int64) []TimeRange {
	if chunkSize < 1 {
		chunkSize = 1
	}

	size := float64(chunkSize)
	start := int64(math.Floor(r.In.Float64()/size)) * chunkSize
	end := int64(math.Ceil(r.Out.Float64()/size)) * chunkSize

	var chunks []TimeRange
	for i := start; i < end; i += chunkSize {
		chunks = append(chunks, TimeRange{
			In:  MaxRational(r.In, FromInt(i)),
			Out: MinRational(r.Out, FromInt(i+chunkSize)),
		})
	}

	return chunks
}

// SnapToTimebase returns the frame time at or immediately before t on the
// given timebase grid.
func SnapToTimebase(t, timebase Rational) Rational {
	if timebase.IsZero() {
		return t
	}
	frame := int64(math.Floor(t.Float64() / timebase.Float64()))
	snapped := timebase.MulInt(frame)
	// Float rounding can land one frame high near a boundary.
	if t.Less(snapped) {
		snapped = snapped.Sub(timebase)
	} else if !t.Less(snapped.Add(timebase)) {
		snapped = snapped.Add(timebase)
	}
	return snapped
}

// FrameTimesInRange lists the timebase-snapped frame times whose frame
// interval overlaps r.
func FrameTimesInRange(r TimeRange, timebase Rational) []Rational {
	if timebase.IsZero() || !r.In.Less(r.Out) {
		return nil
	}

	var times []Rational
	t := SnapToTimebase(r.In, timebase)
	for t.Less(r.Out) {
		times = append(times, t)
		t = t.Add(timebase)
	}
	return times
}
