package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/attempt"
	"github.com/mind-engage/mindengage-assess/internal/clock"
)

var t0 = time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)

// memLedger keeps in-progress attempts and closes them on Expire.
type memLedger struct {
	mu      sync.Mutex
	open    map[string]time.Time
	failing map[string]bool
	closed  []string
}

func newMem() *memLedger {
	return &memLedger{open: map[string]time.Time{}, failing: map[string]bool{}}
}

func (m *memLedger) ListDue(_ context.Context, now time.Time, limit int) ([]attempt.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []attempt.Attempt
	for id, dl := range m.open {
		if dl.Before(now) {
			dl := dl
			out = append(out, attempt.Attempt{ID: id, Deadline: &dl})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(*out[j].Deadline) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memLedger) Expire(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[id] {
		return errors.New("boom")
	}
	if _, ok := m.open[id]; ok {
		delete(m.open, id)
		m.closed = append(m.closed, id)
	}
	return nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSweepClosesOnlyDueAttempts(t *testing.T) {
	m := newMem()
	m.open["late"] = t0.Add(-time.Minute)
	m.open["edge"] = t0
	m.open["running"] = t0.Add(time.Minute)
	s := New(m, m, clock.NewFake(t0).Clock(), time.Minute, 10, quiet())

	n, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// the deadline instant still belongs to the attempt
	if n != 1 || len(m.closed) != 1 || m.closed[0] != "late" {
		t.Fatalf("closed=%v", m.closed)
	}
	if _, ok := m.open["edge"]; !ok || len(m.open) != 2 {
		t.Fatalf("open=%v", m.open)
	}
}

func TestSweepPagesAndSkipsFailures(t *testing.T) {
	m := newMem()
	for i := 0; i < 7; i++ {
		m.open[string(rune('a'+i))] = t0.Add(-time.Duration(i+1) * time.Minute)
	}
	m.failing["g"] = true // oldest deadline, listed first every page
	s := New(m, m, clock.NewFake(t0).Clock(), time.Minute, 2, quiet())

	n, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Fatalf("closed=%d want 6", n)
	}
	if len(m.open) != 1 {
		t.Fatalf("open=%v", m.open)
	}

	// retried next time
	delete(m.failing, "g")
	if n, _ := s.Sweep(context.Background()); n != 1 {
		t.Fatalf("second sweep closed=%d", n)
	}
}

func TestSweepIsSafeToRepeat(t *testing.T) {
	m := newMem()
	m.open["a"] = t0.Add(-time.Second)
	s := New(m, m, clock.NewFake(t0).Clock(), time.Minute, 10, quiet())
	for i := 0; i < 3; i++ {
		if _, err := s.Sweep(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if len(m.closed) != 1 {
		t.Fatalf("closed=%v", m.closed)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	m := newMem()
	m.open["a"] = t0.Add(-time.Second)
	s := New(m, m, clock.NewFake(t0).Clock(), 10*time.Millisecond, 10, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		m.mu.Lock()
		n := len(m.closed)
		m.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first sweep did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}
