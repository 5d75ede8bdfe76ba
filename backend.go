package montage

import (
	"context"
	"errors"
	"sync"

	"github.com/mfay/montage/graph"
	"github.com/mfay/montage/media"
)

// BackendOpts configures a Backend.
type BackendOpts struct {
	// TrackLiveChanges subscribes the backend to the subject graph's change
	// feed so edits propagate into the snapshot between jobs. Without it
	// the snapshot is taken once at attach time.
	TrackLiveChanges bool
}

// Backend coordinates render requests against a snapshot of a live node
// graph. Submissions become FIFO-queued tickets; idle workers take them
// against the current snapshot; pending graph updates are flushed into the
// snapshot only while every worker is idle, so a job never observes a
// half-updated graph.
//
// All coordinator state is serialized on one mutex; worker goroutines call
// back into it on completion. Backend methods are safe for concurrent use,
// but the live graph itself must not be mutated concurrently with backend
// calls; in practice edits and backend calls both come from the
// application's coordination goroutine, as the change-notification contract
// requires.
type Backend struct {
	mu   sync.Mutex
	cond *sync.Cond

	pool      *Pool
	newWorker WorkerFactory
	trackLive bool

	subject     *graph.Node
	unsubscribe func()
	copier      *copier
	queue       []*Ticket
	slots       []workerSlot

	videoParams media.VideoParams
	audioParams media.AudioParams
	transform   ColorTransform
	mode        media.RenderMode
	preview     PreviewSink
}

func NewBackend(pool *Pool, factory WorkerFactory, opts BackendOpts) *Backend {
	b := &Backend{
		pool:      pool,
		newWorker: factory,
		trackLive: opts.TrackLiveChanges,
		copier:    newCopier(),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// SetVideoParams sets the output video parameters. Jobs are not dispatched
// until both video and audio parameters are valid.
func (b *Backend) SetVideoParams(p media.VideoParams) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.videoParams = p
	b.tryDispatchLocked()
}

// SetAudioParams sets the output audio parameters.
func (b *Backend) SetAudioParams(p media.AudioParams) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audioParams = p
	b.tryDispatchLocked()
}

// SetColorTransform sets the output color transform handed to workers.
func (b *Backend) SetColorTransform(t ColorTransform) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transform = t
}

// SetRenderMode selects online or offline rendering.
func (b *Backend) SetRenderMode(m media.RenderMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = m
}

// SetPreviewSink enables preview generation on future jobs; nil disables.
func (b *Backend) SetPreviewSink(s PreviewSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.preview = s
}

// Hash requests content hashes for the given frame times. Returns nil when
// no subject graph is attached or output parameters are not configured.
func (b *Backend) Hash(times []media.Rational) *Ticket {
	t := newTicket(TicketHash)
	t.hashTimes = times
	return b.submit(t)
}

// RenderFrame requests the frame at time tm. Returns nil when no subject
// graph is attached or output parameters are not configured.
func (b *Backend) RenderFrame(tm media.Rational) *Ticket {
	t := newTicket(TicketFrame)
	t.frameTime = tm
	return b.submit(t)
}

// RenderAudio requests samples covering r. Returns nil when no subject
// graph is attached or output parameters are not configured.
func (b *Backend) RenderAudio(r media.TimeRange) *Ticket {
	t := newTicket(TicketAudio)
	t.audioSpan = r
	return b.submit(t)
}

func (b *Backend) submit(t *Ticket) *Ticket {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subject == nil || !b.videoParams.IsValid() || !b.audioParams.IsValid() {
		return nil
	}

	b.queue = append(b.queue, t)
	b.tryDispatchLocked()
	return t
}

// ClearQueue cancels every still-queued ticket and empties the queue. Jobs
// already handed to workers are unaffected.
func (b *Backend) ClearQueue() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearQueueLocked()
}

func (b *Backend) clearQueueLocked() {
	for _, t := range b.queue {
		t.resolveCanceled()
	}
	b.queue = nil
}

// SetSubject attaches the graph to render, or detaches with nil. Detaching
// cancels the queue, cancels in-flight jobs, waits for every worker to go
// idle, and releases the snapshot; no worker references old snapshot nodes
// afterwards.
func (b *Backend) SetSubject(subject *graph.Node) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subject == subject {
		return nil
	}

	if b.subject != nil {
		b.detachLocked()
	}

	if subject != nil {
		if err := b.copier.attach(subject); err != nil {
			return err
		}
		b.subject = subject
		if b.trackLive {
			b.unsubscribe = subject.Graph().Subscribe(b.onGraphChange)
		}
		Logger().Debug("subject attached", "component", "backend", "subject", subject.Name())
	}

	return nil
}

func (b *Backend) detachLocked() {
	b.subject = nil
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}

	b.clearQueueLocked()

	// Cut running jobs short and wait for every slot to go idle before the
	// snapshot is released; a worker must never outlive the nodes it reads.
	for i := range b.slots {
		if b.slots[i].busy && b.slots[i].ticket != nil {
			b.slots[i].ticket.Cancel()
		}
	}
	for b.anyBusyLocked() {
		b.cond.Wait()
	}

	b.copier.reset()
	Logger().Debug("subject detached", "component", "backend")
}

// Close detaches the subject and discards the worker slots.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subject != nil {
		b.detachLocked()
	}
	b.slots = nil
}

// onGraphChange is the live graph's change-notification callback.
func (b *Backend) onGraphChange(in *graph.Input) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subject == nil {
		return
	}
	b.copier.noteChange(in)
}

func (b *Backend) anyBusyLocked() bool {
	for i := range b.slots {
		if b.slots[i].busy {
			return true
		}
	}
	return false
}

// tryDispatchLocked hands queued tickets to idle workers. Pending snapshot
// updates take priority over new jobs: they are flushed when every worker
// is idle and otherwise defer dispatch entirely, bounding snapshot
// staleness.
func (b *Backend) tryDispatchLocked() {
	if len(b.queue) == 0 {
		return
	}

	// Submission already requires valid parameters; this guards against
	// them being reconfigured to something invalid while tickets sit queued.
	if !b.videoParams.IsValid() || !b.audioParams.IsValid() {
		Logger().Debug("deferring dispatch, output parameters not valid", "component", "backend")
		return
	}

	if b.trackLive && b.copier.pendingLen() > 0 {
		if b.anyBusyLocked() {
			return
		}
		b.copier.flush()
	}

	if b.slots == nil {
		b.slots = make([]workerSlot, b.pool.Capacity())
		for i := range b.slots {
			b.slots[i].worker = b.newWorker()
		}
	}

	cfg := WorkerConfig{
		Video:     b.videoParams,
		Audio:     b.audioParams,
		Transform: b.transform,
		Mode:      b.mode,
		Preview:   b.preview,
	}

	for i := range b.slots {
		if b.slots[i].busy {
			continue
		}

		var next *Ticket
		for len(b.queue) > 0 {
			cand := b.queue[0]
			b.queue = b.queue[1:]
			if cand.Canceled() {
				cand.resolveCanceled()
				continue
			}
			next = cand
			break
		}
		if next == nil {
			return
		}

		b.slots[i].busy = true
		b.slots[i].ticket = next
		worker := b.slots[i].worker
		worker.Configure(cfg)

		go b.runJob(i, worker, next, b.copier.root)
	}
}

// runJob executes one ticket on its own goroutine and reports back to the
// coordinator. Completions arrive in any order; each one frees its slot and
// re-enters the dispatch loop.
func (b *Backend) runJob(slot int, w Worker, t *Ticket, root *graph.Node) {
	var res Result
	var err error

	switch t.kind {
	case TicketHash:
		res.Hashes, err = w.Hash(t.ctx, root, t.hashTimes)
	case TicketFrame:
		res.Frame, err = w.RenderFrame(t.ctx, root, t.frameTime)
	case TicketAudio:
		res.Audio, err = w.RenderAudio(t.ctx, root, t.audioSpan)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.slots[slot].busy = false
	b.slots[slot].ticket = nil
	b.cond.Broadcast()

	switch {
	case t.Canceled():
		// A full result may still have arrived; it is discarded.
		t.resolveCanceled()
	case err != nil:
		if errors.Is(err, context.Canceled) {
			t.resolveCanceled()
		} else {
			Logger().Warn("render job failed", "component", "backend", "ticket", t.id, "kind", t.kind.String(), "error", err)
			t.fail(err)
		}
	default:
		t.resolve(res)
	}

	if b.subject != nil {
		b.tryDispatchLocked()
	}
}

// BackendStatus is a point-in-time view of the coordinator, for status
// surfaces.
type BackendStatus struct {
	Attached       bool
	QueueLen       int
	PendingUpdates int
	Workers        []bool
}

func (b *Backend) Status() BackendStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	busy := make([]bool, len(b.slots))
	for i := range b.slots {
		busy[i] = b.slots[i].busy
	}
	return BackendStatus{
		Attached:       b.subject != nil,
		QueueLen:       len(b.queue),
		PendingUpdates: b.copier.pendingLen(),
		Workers:        busy,
	}
}
