// Package notify fans graded-attempt events out to downstream systems without
// blocking the submit path.
package notify

import (
	"context"
	"time"
)

// GradedEvent is emitted once per terminal submit and again after a manual
// review changes the result.
type GradedEvent struct {
	AttemptID  string    `json:"attempt_id"`
	QuizID     string    `json:"quiz_id"`
	UserID     string    `json:"user_id"`
	Percentage float64   `json:"percentage"`
	Passed     bool      `json:"passed"`
	Trigger    string    `json:"trigger"` // user, sweeper or review
	GradedAt   time.Time `json:"graded_at"`
}

// Notifier accepts events fire-and-forget.
type Notifier interface {
	NotifyGraded(ctx context.Context, ev GradedEvent) error
}

// Sink delivers one event to one downstream system.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev GradedEvent) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) NotifyGraded(context.Context, GradedEvent) error { return nil }
