package sweeper_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/assessment"
	"github.com/mind-engage/mindengage-assess/internal/attempt"
	"github.com/mind-engage/mindengage-assess/internal/clock"
	"github.com/mind-engage/mindengage-assess/internal/db"
	"github.com/mind-engage/mindengage-assess/internal/db/dbtest"
	"github.com/mind-engage/mindengage-assess/internal/enrollment"
	"github.com/mind-engage/mindengage-assess/internal/quiz"
	"github.com/mind-engage/mindengage-assess/internal/rubric"
	"github.com/mind-engage/mindengage-assess/internal/sweeper"
)

func TestSweeperGradesAbandonedAttempt(t *testing.T) {
	ctx := context.Background()
	sqldb := dbtest.Open(t)
	clk := clock.NewFake(time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC))
	ledger := attempt.NewSQLLedger(sqldb, db.DriverSQLite)
	everyone := enrollment.CheckerFunc(func(context.Context, string, string) (bool, error) { return true, nil })
	svc := assessment.New(quiz.NewSQLStore(sqldb, clk.Clock()), ledger, rubric.NewSQLStore(sqldb),
		assessment.WithClock(clk.Clock()), assessment.WithEnrollment(everyone))

	qz, err := svc.CreateQuiz(ctx, quiz.Quiz{
		CourseID: "c1", Title: "Quick", DurationMinutes: 10, PassingScore: 50, MaxAttempts: 1,
		Questions: []quiz.Question{
			{Type: quiz.TrueFalse, Prompt: "Sky is blue", CorrectAnswer: "true", Points: 1},
			{Type: quiz.TrueFalse, Prompt: "Fire is cold", CorrectAnswer: "false", Points: 1},
		},
	}, "teacher")
	if err != nil {
		t.Fatal(err)
	}
	v, err := svc.StartAttempt(ctx, qz.ID, "sam")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordAnswer(ctx, v.ID, "sam", qz.Questions[0].ID, "true"); err != nil {
		t.Fatal(err)
	}

	sw := sweeper.New(ledger, svc, clk.Clock(), time.Minute, 50, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if n, _ := sw.Sweep(ctx); n != 0 {
		t.Fatalf("swept %d before deadline", n)
	}

	clk.Advance(11 * time.Minute)
	n, err := sw.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("sweep n=%d err=%v", n, err)
	}
	got, err := svc.GetAttempt(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != attempt.StatusSubmitted || got.SubmittedBy != attempt.TriggerSweeper {
		t.Fatalf("attempt %+v", got.Attempt)
	}
	if got.Percentage != 50 || !got.Passed {
		t.Fatalf("pct=%v passed=%v", got.Percentage, got.Passed)
	}
	if n, _ := sw.Sweep(ctx); n != 0 {
		t.Fatalf("second sweep closed %d", n)
	}
}
