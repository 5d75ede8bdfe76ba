package cache

import (
	"sort"
	"testing"

	"github.com/mfay/montage/media"
)

func tb() media.Rational { return media.NewRational(1, 4) }

func frameAt(i int64) media.Rational { return tb().MulInt(i) }

func TestGetSet(t *testing.T) {
	c := NewFrameHashCache(tb())

	if _, ok := c.Get(frameAt(0)); ok {
		t.Fatal("empty cache should miss")
	}

	c.Set(frameAt(0), 100)
	c.Set(frameAt(1), 100)
	c.Set(frameAt(2), 200)

	if h, ok := c.Get(frameAt(1)); !ok || h != 100 {
		t.Errorf("Get = %v %v", h, ok)
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}

func TestValidatedCallback(t *testing.T) {
	c := NewFrameHashCache(tb())

	var got []media.TimeRange
	c.OnValidated = func(r media.TimeRange) { got = append(got, r) }

	c.Set(frameAt(2), 7)
	want := media.NewTimeRange(frameAt(2), frameAt(3))
	if len(got) != 1 || got[0] != want {
		t.Errorf("validated ranges = %v, want [%v]", got, want)
	}
}

func TestFramesWithHash(t *testing.T) {
	c := NewFrameHashCache(tb())
	c.Set(frameAt(0), 100)
	c.Set(frameAt(3), 100)
	c.Set(frameAt(5), 200)

	times := c.FramesWithHash(100)
	sortTimes(times)
	if len(times) != 2 || times[0] != frameAt(0) || times[1] != frameAt(3) {
		t.Errorf("FramesWithHash = %v", times)
	}

	taken := c.TakeFramesWithHash(100)
	if len(taken) != 2 {
		t.Errorf("TakeFramesWithHash = %v", taken)
	}
	if c.Len() != 1 {
		t.Errorf("Len after take = %d, want 1", c.Len())
	}
	if c.FramesWithHash(100) != nil {
		t.Error("taken hash should be gone")
	}
}

func TestInvalidateRange(t *testing.T) {
	c := NewFrameHashCache(tb())
	for i := int64(0); i < 8; i++ {
		c.Set(frameAt(i), media.FrameHash(i))
	}

	// [1/2, 1) overlaps frames 2 and 3; frame 1's interval [1/4, 1/2)
	// only touches the boundary and must survive.
	c.InvalidateRange(media.NewTimeRange(frameAt(2), frameAt(4)))

	if _, ok := c.Get(frameAt(1)); !ok {
		t.Error("frame before the range was dropped")
	}
	for i := int64(2); i < 4; i++ {
		if _, ok := c.Get(frameAt(i)); ok {
			t.Errorf("frame %d should have been invalidated", i)
		}
	}
	if _, ok := c.Get(frameAt(4)); !ok {
		t.Error("frame at the range end should survive")
	}
}

func TestShiftForward(t *testing.T) {
	c := NewFrameHashCache(tb())
	c.Set(frameAt(0), 1)
	c.Set(frameAt(2), 2)
	c.Set(frameAt(4), 3)

	c.Shift(frameAt(2), frameAt(2))

	if h, ok := c.Get(frameAt(0)); !ok || h != 1 {
		t.Error("entry before the shift point moved")
	}
	if _, ok := c.Get(frameAt(2)); ok {
		t.Error("shifted entry still at its old time")
	}
	if h, ok := c.Get(frameAt(4)); !ok || h != 2 {
		t.Errorf("entry not rippled to its new time: %v %v", h, ok)
	}
	if h, ok := c.Get(frameAt(6)); !ok || h != 3 {
		t.Errorf("entry not rippled to its new time: %v %v", h, ok)
	}
}

func TestShiftBackwardDropsOverlapped(t *testing.T) {
	c := NewFrameHashCache(tb())
	c.Set(frameAt(2), 1)
	c.Set(frameAt(4), 2)

	c.Shift(frameAt(2), frameAt(2).Neg())

	// frameAt(2) would land before the shift point and is dropped;
	// frameAt(4) moves to frameAt(2).
	if h, ok := c.Get(frameAt(2)); !ok || h != 2 {
		t.Errorf("entry at shift point = %v %v, want 2", h, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestTruncate(t *testing.T) {
	c := NewFrameHashCache(tb())
	for i := int64(0); i < 6; i++ {
		c.Set(frameAt(i), media.FrameHash(i))
	}

	c.Truncate(frameAt(3))

	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Get(frameAt(3)); ok {
		t.Error("entry at the new length should be dropped")
	}
}

func TestFrameListFromRange(t *testing.T) {
	c := NewFrameHashCache(tb())

	times := c.FrameListFromRange(media.NewTimeRange(media.FromInt(0), media.FromInt(1)))
	if len(times) != 4 {
		t.Fatalf("frame list = %v, want 4 entries", times)
	}
	for i, tm := range times {
		if tm != frameAt(int64(i)) {
			t.Errorf("times[%d] = %v, want %v", i, tm, frameAt(int64(i)))
		}
	}
}

func sortTimes(ts []media.Rational) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Less(ts[j]) })
}
