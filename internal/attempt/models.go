package attempt

import (
	"time"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
)

// Trigger records who closed an attempt.
type Trigger string

const (
	TriggerUser    Trigger = "user"
	TriggerSweeper Trigger = "sweeper"
)

type Attempt struct {
	ID               string     `json:"id"`
	QuizID           string     `json:"quiz_id"`
	UserID           string     `json:"user_id"`
	Status           Status     `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	Deadline         *time.Time `json:"deadline"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	SubmittedBy      Trigger    `json:"submitted_by,omitempty"`
	Score            float64    `json:"score"`
	MaxScore         float64    `json:"max_score"`
	Percentage       float64    `json:"percentage"`
	Passed           bool       `json:"passed"`
	TimeTakenSeconds int        `json:"time_taken_seconds"`
	Answers          []Answer   `json:"answers,omitempty"`
}

type Answer struct {
	AttemptID     string     `json:"attempt_id"`
	QuestionID    string     `json:"question_id"`
	AnswerText    string     `json:"answer_text"`
	AnsweredAt    time.Time  `json:"answered_at"`
	IsCorrect     *bool      `json:"is_correct"`
	PointsAwarded *float64   `json:"points_awarded"` // nil while pending review
	ReviewedBy    string     `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}

// Open reports whether answers may still be recorded at now. The deadline
// instant itself is still open.
func (a Attempt) Open(now time.Time) bool {
	if a.Status != StatusInProgress {
		return false
	}
	return a.Deadline == nil || !now.After(*a.Deadline)
}

// Due reports whether an in-progress attempt is past its deadline. It is the
// exact complement of Open for in-progress attempts.
func (a Attempt) Due(now time.Time) bool {
	return a.Status == StatusInProgress && a.Deadline != nil && now.After(*a.Deadline)
}

// Remaining is the whole seconds left before the deadline, never negative.
// Nil for open-ended attempts.
func (a Attempt) Remaining(now time.Time) *int64 {
	if a.Deadline == nil {
		return nil
	}
	secs := int64(a.Deadline.Sub(now) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &secs
}

// Counted reports whether an answer falls inside the strict cutoff.
func (a Attempt) Counted(ans Answer) bool {
	return a.Deadline == nil || !ans.AnsweredAt.After(*a.Deadline)
}

// Mark is the grading outcome written to one answer row.
type Mark struct {
	IsCorrect     *bool
	PointsAwarded *float64
}

// Outcome is what a grading pass writes back to the attempt.
type Outcome struct {
	Marks      map[string]Mark // by question id
	Score      float64
	MaxScore   float64
	Percentage float64
	Passed     bool
}

// GradeFunc computes an Outcome from the attempt and its current answers.
// It runs inside the ledger's transaction and must not touch the ledger.
type GradeFunc func(a Attempt, answers []Answer) (Outcome, error)

type ListFilter struct {
	QuizID string
	UserID string
	Status Status
	Limit  int
	Offset int
}
