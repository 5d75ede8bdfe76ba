package montage

import (
	"context"
	"runtime"

	"github.com/mfay/montage/graph"
	"github.com/mfay/montage/media"
)

// WorkerConfig is the render configuration pushed to a worker before each
// job.
type WorkerConfig struct {
	Video     media.VideoParams
	Audio     media.AudioParams
	Transform ColorTransform
	Mode      media.RenderMode
	Preview   PreviewSink
}

// ColorTransform converts a rendered frame into the output color space.
// The color package provides implementations; nil means no transform.
type ColorTransform interface {
	Apply(f *media.Frame)
}

// PreviewSink receives downscaled render products for UI preview purposes.
// Implementations must be safe for concurrent use; multiple workers may
// write at once.
type PreviewSink interface {
	WriteFramePreview(hash media.FrameHash, f *media.Frame)
	WriteAudioPreview(buf *media.AudioBuffer)
}

// Worker renders against a read-only snapshot graph. A worker runs at most
// one job at a time; the backend owns the busy/idle bookkeeping. The root
// node passed to each job is the snapshot's output node, and the worker
// must not retain it past the call.
type Worker interface {
	// Configure replaces the worker's render configuration. Called by the
	// backend on the coordination path, never concurrently with a job.
	Configure(cfg WorkerConfig)

	// Hash fingerprints the graph state at each time.
	Hash(ctx context.Context, root *graph.Node, times []media.Rational) ([]media.FrameHash, error)

	// RenderFrame produces the frame at t.
	RenderFrame(ctx context.Context, root *graph.Node, t media.Rational) (*media.Frame, error)

	// RenderAudio produces the samples covering r.
	RenderAudio(ctx context.Context, root *graph.Node, r media.TimeRange) (*media.AudioBuffer, error)
}

// WorkerFactory creates the workers that populate the pool.
type WorkerFactory func() Worker

// Pool fixes the concurrency of a backend: one worker slot per unit of
// capacity. It replaces an ambient global thread pool with an explicit,
// injectable object.
type Pool struct {
	capacity int
}

// NewPool returns a pool of the given capacity; zero or negative means
// GOMAXPROCS.
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = runtime.GOMAXPROCS(0)
	}
	return &Pool{capacity: capacity}
}

func (p *Pool) Capacity() int { return p.capacity }

// workerSlot pairs a worker with its busy flag. Slots are created lazily on
// first dispatch and torn down on Close.
type workerSlot struct {
	worker Worker
	busy   bool
	ticket *Ticket
}
