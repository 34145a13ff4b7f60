package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"pcbooking/internal/domain"

	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("notification queue full")

// Sink delivers one event to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}

// Dispatcher fans confirmed bookings out to its sinks on a background worker.
// Notify never blocks and never reports delivery failures to the caller;
// each sink gets at most 1+retries attempts per event.
type Dispatcher struct {
	sinks   []Sink
	queue   chan Event
	retries int
	backoff time.Duration
	timeout time.Duration
	now     func() time.Time
	log     *zap.Logger

	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	done      chan struct{}
}

type Options struct {
	QueueSize int
	Retries   int
	Backoff   time.Duration
	Timeout   time.Duration
}

func NewDispatcher(opts Options, sinks ...Sink) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Retries > 2 {
		opts.Retries = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Dispatcher{
		sinks:   sinks,
		queue:   make(chan Event, opts.QueueSize),
		retries: opts.Retries,
		backoff: opts.Backoff,
		timeout: opts.Timeout,
		now:     time.Now,
		log:     zap.L().Named("notify"),
		done:    make(chan struct{}),
	}
}

// Start launches the worker. It drains the queue and returns after Close.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		go d.run()
	})
}

// Notify enqueues a booking for delivery. With no sinks it is a no-op.
func (d *Dispatcher) Notify(b domain.Booking) {
	if len(d.sinks) == 0 {
		return
	}
	ev := NewEvent(b, d.now())

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.log.Warn("notification dropped", zap.String("booking_id", b.ID), zap.Error(ErrQueueFull))
	}
}

// Close stops accepting work and waits for queued events to be delivered
// or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.Start()
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev Event) {
	for _, s := range d.sinks {
		var err error
		for attempt := 0; attempt <= d.retries; attempt++ {
			if attempt > 0 && d.backoff > 0 {
				time.Sleep(d.backoff * time.Duration(attempt))
			}
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			err = s.Send(ctx, ev)
			cancel()
			if err == nil {
				break
			}
		}
		if err != nil {
			d.log.Error("notification failed",
				zap.String("sink", s.Name()),
				zap.String("booking_id", ev.BookingID),
				zap.Int("attempts", d.retries+1),
				zap.Error(err),
			)
		}
	}
}
