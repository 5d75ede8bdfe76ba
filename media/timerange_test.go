package media

import "testing"

func TestTimeRangeContains(t *testing.T) {
	r := NewTimeRange(FromInt(1), FromInt(3))

	if !r.Contains(FromInt(1)) {
		t.Error("range should contain its in point")
	}
	if r.Contains(FromInt(3)) {
		t.Error("range should not contain its out point")
	}
	if !r.Contains(NewRational(5, 2)) {
		t.Error("range should contain 5/2")
	}
}

func TestSplitRangeIntoChunks(t *testing.T) {
	cases := []struct {
		name      string
		r         TimeRange
		chunkSize int64
		want      []TimeRange
	}{
		{
			name:      "exact boundary split",
			r:         NewTimeRange(FromInt(0), FromInt(4)),
			chunkSize: 2,
			want: []TimeRange{
				NewTimeRange(FromInt(0), FromInt(2)),
				NewTimeRange(FromInt(2), FromInt(4)),
			},
		},
		{
			name:      "trailing partial chunk",
			r:         NewTimeRange(FromInt(0), FromInt(5)),
			chunkSize: 2,
			want: []TimeRange{
				NewTimeRange(FromInt(0), FromInt(2)),
				NewTimeRange(FromInt(2), FromInt(4)),
				NewTimeRange(FromInt(4), FromInt(5)),
			},
		},
		{
			name:      "unaligned start clamps to range",
			r:         NewTimeRange(FromInt(1), FromInt(5)),
			chunkSize: 2,
			want: []TimeRange{
				NewTimeRange(FromInt(1), FromInt(2)),
				NewTimeRange(FromInt(2), FromInt(4)),
				NewTimeRange(FromInt(4), FromInt(5)),
			},
		},
		{
			name:      "fractional bounds",
			r:         NewTimeRange(NewRational(1, 2), NewRational(5, 2)),
			chunkSize: 2,
			want: []TimeRange{
				NewTimeRange(NewRational(1, 2), FromInt(2)),
				NewTimeRange(FromInt(2), NewRational(5, 2)),
			},
		},
		{
			name:      "chunk size one",
			r:         NewTimeRange(FromInt(0), FromInt(3)),
			chunkSize: 1,
			want: []TimeRange{
				NewTimeRange(FromInt(0), FromInt(1)),
				NewTimeRange(FromInt(1), FromInt(2)),
				NewTimeRange(FromInt(2), FromInt(3)),
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := SplitRangeIntoChunks(c.r, c.chunkSize)
			if len(got) != len(c.want) {
				t.Fatalf("got %d chunks %v, want %d chunks %v", len(got), got, len(c.want), c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Errorf("chunk %d = %v, want %v", i, got[i], c.want[i])
				}
			}
		})
	}
}

func TestSplitRangeChunksCoverRange(t *testing.T) {
	r := NewTimeRange(NewRational(3, 4), NewRational(27, 4))
	for size := int64(1); size <= 4; size++ {
		chunks := SplitRangeIntoChunks(r, size)
		if len(chunks) == 0 {
			t.Fatalf("size %d: no chunks", size)
		}
		if chunks[0].In != r.In {
			t.Errorf("size %d: first chunk starts at %v, want %v", size, chunks[0].In, r.In)
		}
		if chunks[len(chunks)-1].Out != r.Out {
			t.Errorf("size %d: last chunk ends at %v, want %v", size, chunks[len(chunks)-1].Out, r.Out)
		}
		for i := 1; i < len(chunks); i++ {
			if chunks[i].In != chunks[i-1].Out {
				t.Errorf("size %d: gap between chunk %d and %d", size, i-1, i)
			}
		}
	}
}

func TestFrameTimesInRange(t *testing.T) {
	tb := NewRational(1, 2)
	times := FrameTimesInRange(NewTimeRange(NewRational(1, 4), NewRational(3, 2)), tb)

	want := []Rational{FromInt(0), NewRational(1, 2), FromInt(1)}
	if len(times) != len(want) {
		t.Fatalf("got %v, want %v", times, want)
	}
	for i := range want {
		if times[i] != want[i] {
			t.Errorf("times[%d] = %v, want %v", i, times[i], want[i])
		}
	}
}

func TestSnapToTimebase(t *testing.T) {
	tb := NewRational(1, 30)

	if got := SnapToTimebase(NewRational(1, 30), tb); got != NewRational(1, 30) {
		t.Errorf("exact frame time snapped to %v", got)
	}
	if got := SnapToTimebase(NewRational(3, 60), tb); got != NewRational(1, 30) {
		t.Errorf("mid-frame time snapped to %v, want 1/30", got)
	}
	if got := SnapToTimebase(FromInt(0), tb); got != FromInt(0) {
		t.Errorf("zero snapped to %v", got)
	}
}
