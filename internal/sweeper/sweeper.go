// Package sweeper closes attempts whose deadline passed without a submit.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/attempt"
	"github.com/mind-engage/mindengage-assess/internal/clock"
	"github.com/mind-engage/mindengage-assess/internal/metrics"
)

type DueLister interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]attempt.Attempt, error)
}

// Closer grades and closes one attempt. It must be idempotent.
type Closer interface {
	Expire(ctx context.Context, attemptID string) error
}

type Sweeper struct {
	due      DueLister
	closer   Closer
	now      clock.Clock
	interval time.Duration
	batch    int
	log      *slog.Logger
}

func New(due DueLister, closer Closer, now clock.Clock, interval time.Duration, batch int, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	if now == nil {
		now = clock.Real
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{due: due, closer: closer, now: now, interval: interval, batch: batch, log: log}
}

// Sweep closes every attempt due at the current time, one batch at a time.
// A failing attempt is logged and left for the next tick.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	now := s.now()
	closed := 0
	skip := map[string]bool{}
	for {
		// failed rows stay due, so widen the page past them
		limit := s.batch + len(skip)
		due, err := s.due.ListDue(ctx, now, limit)
		if err != nil {
			return closed, err
		}
		for _, a := range due {
			if skip[a.ID] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return closed, err
			}
			if err := s.closer.Expire(ctx, a.ID); err != nil {
				skip[a.ID] = true
				metrics.SweepFailures.Inc()
				s.log.Error("sweep attempt", "attempt_id", a.ID, "quiz_id", a.QuizID, "err", err)
				continue
			}
			closed++
			metrics.SweepClosed.Inc()
		}
		if len(due) < limit {
			break
		}
	}
	if closed > 0 || len(skip) > 0 {
		s.log.Info("sweep finished", "closed", closed, "failed", len(skip))
	}
	return closed, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("sweeper started", "interval", s.interval.String(), "batch", s.batch)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("sweep", "err", err)
		}
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return nil
		case <-t.C:
		}
	}
}
