// Package framebuffer implements the Message Buffer: a bounded,
// back-pressured, single-producer/multi-consumer queue of
// dpdata.Frame values with an activate/drain/shutdown lifecycle.
//
// It is grounded on friggdb/pool/pool.go's combination of a
// channel-backed work queue, an atomic depth counter, and an
// atomic "stopped" flag for the hard-shutdown path, generalized from
// "pool of jobs with one result" to "bounded FIFO of frames with full
// drain semantics" — and on pkg/boundedwaitgroup's channel-as-semaphore
// trick for the high-watermark block, here reworked into a
// broadcast-channel wait so that suspension can be interrupted by
// ctx.Done() the way a cond.Wait cannot.
package framebuffer

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpdata"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
)

// State is one of the buffer's four lifecycle states.
type State int32

const (
	StateNew State = iota
	Accepting
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "New"
	case Accepting:
		return "Accepting"
	case Draining:
		return "Draining"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Config holds the buffer's lifecycle and back-pressure knobs.
// CapacityBytes == 0 means unbounded.
type Config struct {
	CapacityBytes        uint64
	AllowOfferBlock       bool
	ShutdownPollInterval  time.Duration
}

// DefaultConfig returns sane defaults via a function, the same shape
// as friggdb/pool's defaultConfig, rather than a package constant
// struct literal, since callers typically override one field.
func DefaultConfig() Config {
	return Config{
		CapacityBytes:        64 << 20,
		AllowOfferBlock:      true,
		ShutdownPollInterval: 50 * time.Millisecond,
	}
}

// Buffer is the Message Buffer. The zero value is not usable; use New.
type Buffer struct {
	cfg    Config
	logger log.Logger

	mu        sync.Mutex
	state     State
	queue     []dpdata.Frame
	bytesUsed int64
	changed   chan struct{}

	bytesUsedGauge atomic.Int64
	lenGauge       atomic.Int64
}

// New constructs a Buffer in state New. A nil logger defaults to a
// no-op logger, so callers are never required to thread a logger
// through leaf constructors.
func New(cfg Config, logger log.Logger) *Buffer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Buffer{
		cfg:     cfg,
		logger:  logger,
		changed: make(chan struct{}),
	}
}

// Activate transitions New -> Accepting.
func (b *Buffer) Activate() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateNew {
		return dperr.Wrapf(dperr.ErrInvalidState, "activate: buffer is %s", b.state)
	}
	b.state = Accepting
	b.broadcastLocked()
	return nil
}

// State returns the buffer's current lifecycle state.
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsSupplying reports true iff the buffer can still yield a frame to
// a consumer loop: state is Accepting or Draining, or the queue is
// non-empty. Reliable as a consumer loop condition.
func (b *Buffer) IsSupplying() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == Accepting || b.state == Draining || len(b.queue) > 0
}

// BytesUsed returns the current byte accounting, readable without
// taking the main lock.
func (b *Buffer) BytesUsed() uint64 {
	return uint64(b.bytesUsedGauge.Load())
}

// Len returns the current queue depth.
func (b *Buffer) Len() int {
	return int(b.lenGauge.Load())
}

// Offer enqueues frame, suspending while bytesUsed >= CapacityBytes.
// In both settings of Config.AllowOfferBlock the wait parks until the
// buffer changes; when it is false, Offer also yields the processor
// once before each wait. The wait honors ctx cancellation.
func (b *Buffer) Offer(ctx context.Context, frame dpdata.Frame) error {
	for {
		b.mu.Lock()
		switch b.state {
		case StateNew:
			b.mu.Unlock()
			return dperr.Wrapf(dperr.ErrInvalidState, "offer: buffer is %s", b.state)
		case Draining, Closed:
			b.mu.Unlock()
			return dperr.ErrShuttingDown
		}

		if b.cfg.CapacityBytes == 0 || uint64(b.bytesUsed) < b.cfg.CapacityBytes {
			b.queue = append(b.queue, frame)
			b.bytesUsed += frame.ByteSize
			b.bytesUsedGauge.Store(b.bytesUsed)
			b.lenGauge.Store(int64(len(b.queue)))
			b.broadcastLocked()
			b.mu.Unlock()
			return nil
		}

		ch := b.changed
		b.mu.Unlock()

		if !b.cfg.AllowOfferBlock {
			runtime.Gosched()
		}
		select {
		case <-ctx.Done():
			return dperr.FromGRPC(ctx.Err())
		case <-ch:
		}
	}
}

// Take removes and returns the oldest frame, suspending while the
// queue is empty and the buffer is not Closed. It returns
// dperr.ErrEndOfStream once Closed and empty.
func (b *Buffer) Take(ctx context.Context) (dpdata.Frame, error) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			f := b.queue[0]
			b.queue = b.queue[1:]
			b.bytesUsed -= f.ByteSize
			b.bytesUsedGauge.Store(b.bytesUsed)
			b.lenGauge.Store(int64(len(b.queue)))

			if b.state == Draining && len(b.queue) == 0 {
				b.state = Closed
				level.Debug(b.logger).Log("msg", "message buffer drained to empty, closing")
			}
			b.broadcastLocked()
			b.mu.Unlock()
			return f, nil
		}

		switch b.state {
		case Closed:
			b.mu.Unlock()
			return dpdata.Frame{}, dperr.ErrEndOfStream
		case Draining:
			b.state = Closed
			b.broadcastLocked()
			b.mu.Unlock()
			return dpdata.Frame{}, dperr.ErrEndOfStream
		case StateNew:
			b.mu.Unlock()
			return dpdata.Frame{}, dperr.Wrapf(dperr.ErrInvalidState, "take: buffer is %s", b.state)
		}

		ch := b.changed
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return dpdata.Frame{}, dperr.FromGRPC(ctx.Err())
		case <-ch:
		}
	}
}

// Shutdown transitions Accepting -> Draining: no further Offer will
// succeed, but queued frames still drain via Take until empty, at
// which point the buffer becomes Closed on its own.
func (b *Buffer) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Accepting {
		return dperr.Wrapf(dperr.ErrInvalidState, "shutdown: buffer is %s", b.state)
	}
	b.state = Draining
	if len(b.queue) == 0 {
		b.state = Closed
	}
	b.broadcastLocked()
	return nil
}

// ShutdownNow transitions directly to Closed, discarding any queued
// frames, and returns the count discarded.
func (b *Buffer) ShutdownNow() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Closed {
		return 0, dperr.Wrapf(dperr.ErrInvalidState, "shutdown_now: buffer is already %s", b.state)
	}
	discarded := len(b.queue)
	b.queue = nil
	b.bytesUsed = 0
	b.bytesUsedGauge.Store(0)
	b.lenGauge.Store(0)
	b.state = Closed
	b.broadcastLocked()
	return discarded, nil
}

// broadcastLocked wakes every goroutine parked in Offer/Take. Callers
// must hold mu.
func (b *Buffer) broadcastLocked() {
	close(b.changed)
	b.changed = make(chan struct{})
}
