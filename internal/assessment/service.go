// Package assessment runs timed quiz attempts: start, answer, submit, grade.
// The server clock is the only deadline authority.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/attempt"
	"github.com/mind-engage/mindengage-assess/internal/clock"
	"github.com/mind-engage/mindengage-assess/internal/enrollment"
	"github.com/mind-engage/mindengage-assess/internal/grading"
	"github.com/mind-engage/mindengage-assess/internal/metrics"
	"github.com/mind-engage/mindengage-assess/internal/notify"
	"github.com/mind-engage/mindengage-assess/internal/quiz"
	"github.com/mind-engage/mindengage-assess/internal/rubric"
)

type Service struct {
	quizzes  quiz.Store
	ledger   attempt.Ledger
	rubrics  rubric.Store
	enroll   enrollment.Checker
	grader   grading.Grader
	notifier notify.Notifier
	now      clock.Clock
	log      *slog.Logger
}

type Option func(*Service)

func WithClock(c clock.Clock) Option             { return func(s *Service) { s.now = c } }
func WithLogger(l *slog.Logger) Option           { return func(s *Service) { s.log = l } }
func WithNotifier(n notify.Notifier) Option      { return func(s *Service) { s.notifier = n } }
func WithGrader(g grading.Grader) Option         { return func(s *Service) { s.grader = g } }
func WithEnrollment(c enrollment.Checker) Option { return func(s *Service) { s.enroll = c } }

func New(quizzes quiz.Store, ledger attempt.Ledger, rubrics rubric.Store, opts ...Option) *Service {
	s := &Service{
		quizzes:  quizzes,
		ledger:   ledger,
		rubrics:  rubrics,
		grader:   grading.NewDefaultGrader(),
		notifier: notify.Discard{},
		now:      clock.Real,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.enroll == nil {
		panic("assessment: enrollment checker is required")
	}
	return s
}

// AttemptView is an attempt as seen by clients, with the server's time and
// the seconds left before the deadline.
type AttemptView struct {
	attempt.Attempt
	RemainingSeconds *int64    `json:"remaining_seconds"`
	ServerTime       time.Time `json:"server_time"`
	PendingReview    int       `json:"pending_review"`

	// Created is set by StartAttempt when a new attempt row was written.
	Created bool `json:"-"`
}

func (s *Service) view(a attempt.Attempt, now time.Time) AttemptView {
	v := AttemptView{Attempt: a, ServerTime: now}
	if a.Status == attempt.StatusInProgress {
		v.RemainingSeconds = a.Remaining(now)
		return v
	}
	for _, ans := range a.Answers {
		if ans.PointsAwarded == nil && ans.AnswerText != "" && a.Counted(ans) {
			v.PendingReview++
		}
	}
	return v
}

// StartAttempt resumes the caller's open attempt or begins a new one.
func (s *Service) StartAttempt(ctx context.Context, quizID, userID string) (AttemptView, error) {
	qz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return AttemptView{}, err
	}

	ok, err := s.enroll.IsEnrolled(ctx, qz.CourseID, userID)
	if err != nil {
		metrics.AttemptsStarted.WithLabelValues("enrollment_unavailable").Inc()
		s.log.Warn("enrollment check failed", "quiz_id", quizID, "user_id", userID, "err", err)
		return AttemptView{}, fmt.Errorf("%w: %v", ErrEnrollmentUnavailable, err)
	}
	if !ok {
		metrics.AttemptsStarted.WithLabelValues("not_enrolled").Inc()
		return AttemptView{}, ErrNotEnrolled
	}

	now := s.now()
	active, err := s.ledger.Active(ctx, quizID, userID)
	switch {
	case err == nil && !active.Due(now):
		metrics.AttemptsStarted.WithLabelValues("resumed").Inc()
		return s.view(active, now), nil
	case err == nil:
		// abandoned past its deadline and not yet swept
		if _, err := s.Submit(ctx, active.ID, attempt.TriggerSweeper); err != nil {
			return AttemptView{}, fmt.Errorf("close expired attempt %s: %w", active.ID, err)
		}
	case !errors.Is(err, attempt.ErrNotFound):
		return AttemptView{}, err
	}

	if !qz.OpenAt(now) {
		metrics.AttemptsStarted.WithLabelValues("window_closed").Inc()
		return AttemptView{}, ErrWindowClosed
	}

	a, created, err := s.ledger.Begin(ctx, attempt.Start{
		QuizID:      quizID,
		UserID:      userID,
		Now:         now,
		Deadline:    qz.DeadlineFrom(now),
		MaxAttempts: qz.MaxAttempts,
	})
	if errors.Is(err, attempt.ErrLimitReached) {
		metrics.AttemptsStarted.WithLabelValues("limit_exceeded").Inc()
		return AttemptView{}, ErrAttemptLimitExceeded
	}
	if err != nil {
		return AttemptView{}, err
	}
	if !created {
		metrics.AttemptsStarted.WithLabelValues("resumed").Inc()
		return s.view(a, now), nil
	}
	metrics.AttemptsStarted.WithLabelValues("created").Inc()
	s.log.Info("attempt started", "attempt_id", a.ID, "quiz_id", quizID, "user_id", userID, "deadline", a.Deadline)
	v := s.view(a, now)
	v.Created = true
	return v, nil
}

// RecordAnswer upserts the owner's answer while the attempt is open.
func (s *Service) RecordAnswer(ctx context.Context, attemptID, userID, questionID, text string) (attempt.Answer, error) {
	a, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return attempt.Answer{}, err
	}
	if a.UserID != userID {
		return attempt.Answer{}, ErrForbidden
	}
	now := s.now()
	if !a.Open(now) {
		return attempt.Answer{}, ErrAttemptNotActive
	}
	qz, err := s.loadQuiz(ctx, a.QuizID)
	if err != nil {
		return attempt.Answer{}, err
	}
	if _, ok := qz.Question(questionID); !ok {
		return attempt.Answer{}, ErrQuestionNotFound
	}

	ans, err := s.ledger.SaveAnswer(ctx, attemptID, questionID, text, now)
	if errors.Is(err, attempt.ErrNotActive) {
		return attempt.Answer{}, ErrAttemptNotActive
	}
	return ans, err
}

// SubmitAttempt closes the caller's own attempt.
func (s *Service) SubmitAttempt(ctx context.Context, attemptID, userID string) (AttemptView, error) {
	a, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return AttemptView{}, err
	}
	if a.UserID != userID {
		return AttemptView{}, ErrForbidden
	}
	return s.Submit(ctx, attemptID, attempt.TriggerUser)
}

// Submit grades and closes an attempt. It is idempotent: a submitted attempt
// is returned unchanged. Answers recorded after the deadline are ignored.
func (s *Service) Submit(ctx context.Context, attemptID string, by attempt.Trigger) (AttemptView, error) {
	a, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return AttemptView{}, err
	}
	now := s.now()
	if a.Status == attempt.StatusSubmitted {
		return s.view(a, now), nil
	}
	qz, err := s.loadQuiz(ctx, a.QuizID)
	if err != nil {
		return AttemptView{}, err
	}

	graded, closed, err := s.ledger.Finalize(ctx, attemptID, now, by, s.gradeWith(qz))
	if err != nil {
		return AttemptView{}, err
	}
	if closed {
		metrics.AttemptsSubmitted.WithLabelValues(string(by)).Inc()
		metrics.AttemptPercentage.Observe(graded.Percentage)
		s.log.Info("attempt submitted",
			"attempt_id", graded.ID, "trigger", by, "score", graded.Score,
			"max_score", graded.MaxScore, "percentage", graded.Percentage, "passed", graded.Passed)
		s.announce(ctx, graded, string(by))
	}
	return s.view(graded, now), nil
}

// Expire closes an attempt whose deadline passed. The sweeper calls it.
func (s *Service) Expire(ctx context.Context, attemptID string) error {
	_, err := s.Submit(ctx, attemptID, attempt.TriggerSweeper)
	return err
}

func (s *Service) gradeWith(qz quiz.Quiz) attempt.GradeFunc {
	return func(a attempt.Attempt, answers []attempt.Answer) (attempt.Outcome, error) {
		responses := make(map[string]string, len(answers))
		for _, ans := range answers {
			if a.Counted(ans) {
				responses[ans.QuestionID] = ans.AnswerText
			}
		}
		results := s.grader.Grade(qz.GradingQuestions(), responses)
		sum := grading.Tally(results, qz.PassingScore)

		out := attempt.Outcome{
			Marks:      make(map[string]attempt.Mark, len(results)),
			Score:      sum.Score,
			MaxScore:   sum.MaxScore,
			Percentage: sum.Percentage,
			Passed:     sum.Passed,
		}
		for _, r := range results {
			if r.NeedsManual {
				out.Marks[r.QuestionID] = attempt.Mark{}
				continue
			}
			correct, pts := r.IsCorrect, r.AutoPoints
			out.Marks[r.QuestionID] = attempt.Mark{IsCorrect: &correct, PointsAwarded: &pts}
		}
		return out, nil
	}
}

func (s *Service) announce(ctx context.Context, a attempt.Attempt, trigger string) {
	ev := notify.GradedEvent{
		AttemptID:  a.ID,
		QuizID:     a.QuizID,
		UserID:     a.UserID,
		Percentage: a.Percentage,
		Passed:     a.Passed,
		Trigger:    trigger,
		GradedAt:   s.now(),
	}
	if err := s.notifier.NotifyGraded(ctx, ev); err != nil {
		s.log.Warn("graded notification not queued", "attempt_id", a.ID, "err", err)
	}
}

// GetAttempt returns the attempt with its answers. It never closes an
// attempt; a due attempt reads as in progress with zero seconds left until
// submitted or swept.
func (s *Service) GetAttempt(ctx context.Context, attemptID string) (AttemptView, error) {
	a, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return AttemptView{}, err
	}
	return s.view(a, s.now()), nil
}

func (s *Service) ListAttempts(ctx context.Context, f attempt.ListFilter) ([]attempt.Attempt, error) {
	return s.ledger.List(ctx, f)
}

func (s *Service) loadQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	qz, err := s.quizzes.GetQuiz(ctx, id)
	if errors.Is(err, quiz.ErrNotFound) {
		return quiz.Quiz{}, fmt.Errorf("%w: quiz %s", ErrNotFound, id)
	}
	return qz, err
}

func (s *Service) loadAttempt(ctx context.Context, id string) (attempt.Attempt, error) {
	a, err := s.ledger.Get(ctx, id)
	if errors.Is(err, attempt.ErrNotFound) {
		return attempt.Attempt{}, fmt.Errorf("%w: attempt %s", ErrNotFound, id)
	}
	return a, err
}
