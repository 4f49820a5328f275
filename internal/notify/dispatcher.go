package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/metrics"
)

var ErrQueueFull = errors.New("notify: queue full")

// Dispatcher buffers events and delivers them to every sink from a single
// goroutine started with Run.
type Dispatcher struct {
	sinks   []Sink
	queue   chan GradedEvent
	timeout time.Duration
	log     *slog.Logger
}

func NewDispatcher(logger *slog.Logger, queueSize int, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{sinks: sinks, queue: make(chan GradedEvent, queueSize), timeout: timeout, log: logger}
}

// NotifyGraded enqueues without blocking. A full queue drops the event.
func (d *Dispatcher) NotifyGraded(_ context.Context, ev GradedEvent) error {
	select {
	case d.queue <- ev:
		metrics.NotifyQueueDepth.Set(float64(len(d.queue)))
		return nil
	default:
		metrics.NotifyDropped.Inc()
		return ErrQueueFull
	}
}

// Run delivers until ctx is cancelled, then flushes what is already queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		case <-ctx.Done():
			d.drain()
			return nil
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(context.Background(), ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(parent context.Context, ev GradedEvent) {
	metrics.NotifyQueueDepth.Set(float64(len(d.queue)))
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.timeout)
		err := s.Deliver(ctx, ev)
		cancel()
		if err != nil {
			metrics.NotifyDeliveries.WithLabelValues(s.Name(), "error").Inc()
			d.log.Warn("notify: delivery failed", "sink", s.Name(), "attempt_id", ev.AttemptID, "err", err)
			continue
		}
		metrics.NotifyDeliveries.WithLabelValues(s.Name(), "ok").Inc()
	}
}
