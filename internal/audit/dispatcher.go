package audit

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events that find the queue full instead of waiting.
	DropIfFull bool
}

// Stats is a point-in-time view of a Dispatcher.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	Queued    int
}

// Dispatcher hands audit events to a sink from a single goroutine, so sinks
// never see concurrent calls. A nil Dispatcher discards events.
type Dispatcher struct {
	cfg  Config
	sink Sink
	now  func() time.Time
	log  *slog.Logger

	// mu guards queue against being closed while Emit sends on it.
	mu     sync.RWMutex
	queue  chan Event
	closed bool
	idle   chan struct{}

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	cfg.BufferSize = max(cfg.BufferSize, 1)
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:   cfg,
		sink:  sink,
		now:   time.Now,
		log:   slog.Default(),
		queue: make(chan Event, cfg.BufferSize),
		idle:  make(chan struct{}),
	}
	go d.drain()
	return d
}

func (d *Dispatcher) drain() {
	defer close(d.idle)
	for ev := range d.queue {
		d.sink.Emit(context.Background(), ev)
		d.delivered.Add(1)
	}
}

// Emit queues event and stamps its Timestamp when unset. Events that cannot
// be queued are counted as dropped: a full queue with DropIfFull, a ctx that
// ends while waiting for room, or a closed dispatcher.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops intake, waits until every queued event reached the sink and
// then closes the sink when it implements io.Closer. Close is idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.idle
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.idle
	if c, ok := d.sink.(io.Closer); ok {
		if err := c.Close(); err != nil {
			d.log.Warn("closing audit sink", "error", err)
		}
	}
}

// Stats reports delivery counters and the current queue depth.
func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Queued:    len(d.queue),
	}
}
