package montage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/mfay/montage/media"
)

// ErrCanceled resolves tickets whose request was canceled before or during
// rendering.
var ErrCanceled = errors.New("montage: render canceled")

// TicketKind identifies the request a ticket carries.
type TicketKind int

const (
	TicketHash TicketKind = iota
	TicketFrame
	TicketAudio
)

func (k TicketKind) String() string {
	switch k {
	case TicketHash:
		return "hash"
	case TicketFrame:
		return "frame"
	case TicketAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Result is the payload of a resolved ticket. Exactly one field is set,
// matching the ticket's kind.
type Result struct {
	Hashes []media.FrameHash
	Frame  *media.Frame
	Audio  *media.AudioBuffer
}

var ticketSeq atomic.Uint64

// Ticket represents one pending or resolved render request. The submitter
// holds it to await or cancel the result; the backend holds it until
// dispatch. A ticket resolves exactly once: with a result, with an error,
// or as canceled.
type Ticket struct {
	id   uint64
	kind TicketKind

	// Payload; the field matching kind is meaningful.
	hashTimes []media.Rational
	frameTime media.Rational
	audioSpan media.TimeRange

	ctx    context.Context
	cancel context.CancelFunc

	once   sync.Once
	done   chan struct{}
	result Result
	err    error
}

func newTicket(kind TicketKind) *Ticket {
	ctx, cancel := context.WithCancel(context.Background())
	return &Ticket{
		id:     ticketSeq.Add(1),
		kind:   kind,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (t *Ticket) ID() uint64       { return t.id }
func (t *Ticket) Kind() TicketKind { return t.kind }

// Context is canceled when the ticket is. Workers pass it to their blocking
// operations so cancellation can cut a running job short.
func (t *Ticket) Context() context.Context { return t.ctx }

// Cancel requests cancellation. Idempotent. A queued ticket is guaranteed
// never to reach a worker afterwards; a running one is stopped cooperatively
// and any late result is discarded.
func (t *Ticket) Cancel() { t.cancel() }

// Canceled reports whether Cancel has been called.
func (t *Ticket) Canceled() bool { return t.ctx.Err() != nil }

// Done is closed once the ticket has resolved.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Wait blocks until the ticket resolves or ctx expires. On resolution it
// returns the result, ErrCanceled, or the job's failure.
func (t *Ticket) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// resolve delivers a successful result. Only the first of resolve / fail /
// resolveCanceled takes effect.
func (t *Ticket) resolve(r Result) {
	t.once.Do(func() {
		t.result = r
		close(t.done)
	})
}

func (t *Ticket) fail(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

func (t *Ticket) resolveCanceled() {
	t.cancel()
	t.once.Do(func() {
		t.err = ErrCanceled
		close(t.done)
	})
}
