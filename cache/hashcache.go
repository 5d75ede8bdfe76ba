// Package cache holds the render products: the frame hash cache mapping
// times to content hashes, stores holding frames by hash, and the preview
// sink.
package cache

import (
	"sync"

	"github.com/mfay/montage/media"
)

// FrameHashCache maps frame times to the content hash of the frame rendered
// there. Because equal hashes mean identical output, one stored frame can
// satisfy every time sharing its hash. Safe for concurrent use.
type FrameHashCache struct {
	mu       sync.Mutex
	timebase media.Rational
	hashes   map[media.Rational]media.FrameHash

	// OnValidated, when set, is called (outside the lock) with the frame
	// interval covered by each successful Set.
	OnValidated func(media.TimeRange)
}

func NewFrameHashCache(timebase media.Rational) *FrameHashCache {
	return &FrameHashCache{
		timebase: timebase,
		hashes:   map[media.Rational]media.FrameHash{},
	}
}

func (c *FrameHashCache) Timebase() media.Rational { return c.timebase }

// Get returns the hash recorded at t.
func (c *FrameHashCache) Get(t media.Rational) (media.FrameHash, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.hashes[t]
	return h, ok
}

// Set records the hash at t and reports the validated frame interval.
func (c *FrameHashCache) Set(t media.Rational, h media.FrameHash) {
	c.mu.Lock()
	c.hashes[t] = h
	cb := c.OnValidated
	c.mu.Unlock()

	if cb != nil {
		cb(media.NewTimeRange(t, t.Add(c.timebase)))
	}
}

// Len returns the number of recorded frame times.
func (c *FrameHashCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.hashes)
}

// FramesWithHash lists every time whose frame carries the given hash.
func (c *FrameHashCache) FramesWithHash(h media.FrameHash) []media.Rational {
	c.mu.Lock()
	defer c.mu.Unlock()

	var times []media.Rational
	for t, got := range c.hashes {
		if got == h {
			times = append(times, t)
		}
	}
	return times
}

// TakeFramesWithHash removes and returns every time carrying the given
// hash. Used when the stored frame for that hash is deleted.
func (c *FrameHashCache) TakeFramesWithHash(h media.FrameHash) []media.Rational {
	c.mu.Lock()
	defer c.mu.Unlock()

	var times []media.Rational
	for t, got := range c.hashes {
		if got == h {
			times = append(times, t)
			delete(c.hashes, t)
		}
	}
	return times
}

// InvalidateRange drops every recorded time whose frame interval overlaps r.
func (c *FrameHashCache) InvalidateRange(r media.TimeRange) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for t := range c.hashes {
		frame := media.NewTimeRange(t, t.Add(c.timebase))
		if frame.Intersects(r) {
			delete(c.hashes, t)
		}
	}
}

// Shift ripples every entry at or after `at` by `by`. With a negative shift,
// entries that would land before `at` are dropped along with anything they
// would overwrite.
func (c *FrameHashCache) Shift(at, by media.Rational) {
	c.mu.Lock()
	defer c.mu.Unlock()

	moved := map[media.Rational]media.FrameHash{}
	for t, h := range c.hashes {
		if t.Cmp(at) < 0 {
			continue
		}
		delete(c.hashes, t)
		dst := t.Add(by)
		if dst.Cmp(at) >= 0 {
			moved[dst] = h
		}
	}
	for t, h := range moved {
		c.hashes[t] = h
	}
}

// Truncate drops every entry at or beyond the new length.
func (c *FrameHashCache) Truncate(length media.Rational) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for t := range c.hashes {
		if t.Cmp(length) >= 0 {
			delete(c.hashes, t)
		}
	}
}

// FrameListFromRange lists the timebase-snapped frame times covering r.
func (c *FrameHashCache) FrameListFromRange(r media.TimeRange) []media.Rational {
	return media.FrameTimesInRange(r, c.timebase)
}
