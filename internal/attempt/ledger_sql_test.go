package attempt_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/attempt"
	"github.com/mind-engage/mindengage-assess/internal/db"
	"github.com/mind-engage/mindengage-assess/internal/db/dbtest"
)

var t0 = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

func newLedger(t *testing.T) (*attempt.SQLLedger, *sql.DB) {
	t.Helper()
	sqldb := dbtest.Open(t)
	if _, err := sqldb.Exec(`INSERT INTO quizzes (id, course_id, title, passing_score, max_attempts, created_at)
		VALUES ('quiz-1','course-1','Quiz',50,2,0)`); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return attempt.NewSQLLedger(sqldb, db.DriverSQLite), sqldb
}

func start(dl *time.Time) attempt.Start {
	return attempt.Start{QuizID: "quiz-1", UserID: "u1", Now: t0, Deadline: dl, MaxAttempts: 2}
}

func ptr[T any](v T) *T { return &v }

// fixedGrade awards one point per answer recorded.
func fixedGrade(a attempt.Attempt, answers []attempt.Answer) (attempt.Outcome, error) {
	out := attempt.Outcome{Marks: map[string]attempt.Mark{}, MaxScore: 4}
	for _, ans := range answers {
		out.Marks[ans.QuestionID] = attempt.Mark{IsCorrect: ptr(true), PointsAwarded: ptr(1.0)}
		out.Score++
	}
	out.Percentage = out.Score / out.MaxScore * 100
	out.Passed = out.Percentage >= 50
	return out, nil
}

func TestBeginIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	first, created, err := l.Begin(ctx, start(nil))
	if err != nil || !created {
		t.Fatalf("first begin: created=%v err=%v", created, err)
	}
	again, created, err := l.Begin(ctx, start(nil))
	if err != nil || created {
		t.Fatalf("second begin: created=%v err=%v", created, err)
	}
	if again.ID != first.ID {
		t.Fatalf("resume returned %s, want %s", again.ID, first.ID)
	}
	active, err := l.Active(ctx, "quiz-1", "u1")
	if err != nil || active.ID != first.ID {
		t.Fatalf("active=%+v err=%v", active, err)
	}
}

func TestBeginConcurrentSingleAttempt(t *testing.T) {
	ctx := context.Background()
	l, sqldb := newLedger(t)

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, _, err := l.Begin(ctx, start(nil))
			if err != nil {
				t.Errorf("begin %d: %v", i, err)
				return
			}
			ids[i] = a.ID
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("goroutine %d got %s, want %s", i, ids[i], ids[0])
		}
	}
	var rows int
	if err := sqldb.QueryRow(`SELECT COUNT(*) FROM attempts`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Fatalf("attempt rows=%d want 1", rows)
	}
}

func TestBeginEnforcesLimit(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	for i := 0; i < 2; i++ {
		a, _, err := l.Begin(ctx, start(nil))
		if err != nil {
			t.Fatalf("begin %d: %v", i, err)
		}
		if _, _, err := l.Finalize(ctx, a.ID, t0.Add(time.Minute), attempt.TriggerUser, fixedGrade); err != nil {
			t.Fatalf("finalize %d: %v", i, err)
		}
	}
	if _, _, err := l.Begin(ctx, start(nil)); !errors.Is(err, attempt.ErrLimitReached) {
		t.Fatalf("third begin err=%v want ErrLimitReached", err)
	}
}

func TestSaveAnswerRespectsDeadline(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	dl := t0.Add(10 * time.Minute)
	a, _, err := l.Begin(ctx, start(&dl))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := l.SaveAnswer(ctx, a.ID, "q1", "first", t0.Add(time.Minute)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := l.SaveAnswer(ctx, a.ID, "q1", "second", dl); err != nil {
		t.Fatalf("save at deadline: %v", err)
	}
	if _, err := l.SaveAnswer(ctx, a.ID, "q2", "late", dl.Add(time.Second)); !errors.Is(err, attempt.ErrNotActive) {
		t.Fatalf("late save err=%v want ErrNotActive", err)
	}
	if _, err := l.SaveAnswer(ctx, "missing", "q1", "x", t0); !errors.Is(err, attempt.ErrNotFound) {
		t.Fatalf("missing attempt err=%v", err)
	}

	got, err := l.Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Answers) != 1 || got.Answers[0].AnswerText != "second" {
		t.Fatalf("answers=%+v", got.Answers)
	}
}

func TestFinalizeOnce(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	dl := t0.Add(10 * time.Minute)
	a, _, err := l.Begin(ctx, start(&dl))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.SaveAnswer(ctx, a.ID, "q1", "A", t0.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	closedAt := t0.Add(20 * time.Minute)
	got, closed, err := l.Finalize(ctx, a.ID, closedAt, attempt.TriggerSweeper, fixedGrade)
	if err != nil || !closed {
		t.Fatalf("finalize: closed=%v err=%v", closed, err)
	}
	if got.Status != attempt.StatusSubmitted || got.SubmittedBy != attempt.TriggerSweeper {
		t.Fatalf("got %+v", got)
	}
	if got.SubmittedAt == nil || !got.SubmittedAt.Equal(closedAt) {
		t.Fatalf("submitted_at=%v", got.SubmittedAt)
	}
	if got.TimeTakenSeconds != 600 {
		t.Fatalf("time taken %d, want capped at 600", got.TimeTakenSeconds)
	}
	if got.Score != 1 || got.MaxScore != 4 || got.Percentage != 25 || got.Passed {
		t.Fatalf("totals %+v", got)
	}
	if len(got.Answers) != 1 || got.Answers[0].PointsAwarded == nil || *got.Answers[0].PointsAwarded != 1 {
		t.Fatalf("answer marks %+v", got.Answers)
	}

	calls := 0
	counting := func(a attempt.Attempt, ans []attempt.Answer) (attempt.Outcome, error) {
		calls++
		return fixedGrade(a, ans)
	}
	again, closed, err := l.Finalize(ctx, a.ID, closedAt.Add(time.Hour), attempt.TriggerUser, counting)
	if err != nil || closed {
		t.Fatalf("second finalize: closed=%v err=%v", closed, err)
	}
	if calls != 0 {
		t.Fatalf("grader ran %d times on a closed attempt", calls)
	}
	if again.SubmittedBy != attempt.TriggerSweeper || !again.SubmittedAt.Equal(closedAt) {
		t.Fatalf("closed attempt changed: %+v", again)
	}
}

func TestListDue(t *testing.T) {
	ctx := context.Background()
	l, sqldb := newLedger(t)
	if _, err := sqldb.Exec(`UPDATE quizzes SET max_attempts=10`); err != nil {
		t.Fatal(err)
	}
	early, late := t0.Add(5*time.Minute), t0.Add(15*time.Minute)
	a1, _, _ := l.Begin(ctx, attempt.Start{QuizID: "quiz-1", UserID: "u1", Now: t0, Deadline: &late, MaxAttempts: 10})
	a2, _, _ := l.Begin(ctx, attempt.Start{QuizID: "quiz-1", UserID: "u2", Now: t0, Deadline: &early, MaxAttempts: 10})
	_, _, _ = l.Begin(ctx, attempt.Start{QuizID: "quiz-1", UserID: "u3", Now: t0, MaxAttempts: 10})

	due, err := l.ListDue(ctx, t0.Add(10*time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != a2.ID {
		t.Fatalf("due=%+v", due)
	}
	due, _ = l.ListDue(ctx, late, 10)
	if len(due) != 1 || due[0].ID != a2.ID {
		t.Fatalf("due exactly at a deadline=%+v", due)
	}
	after := late.Add(time.Millisecond)
	due, _ = l.ListDue(ctx, after, 10)
	if len(due) != 2 || due[0].ID != a2.ID || due[1].ID != a1.ID {
		t.Fatalf("due after late=%+v", due)
	}
	due, _ = l.ListDue(ctx, after, 1)
	if len(due) != 1 {
		t.Fatalf("limit ignored: %d", len(due))
	}
}

func TestReviewRewritesTotals(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)
	a, _, _ := l.Begin(ctx, start(nil))
	if _, err := l.SaveAnswer(ctx, a.ID, "essay", "long text", t0.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	pending := func(attempt.Attempt, []attempt.Answer) (attempt.Outcome, error) {
		return attempt.Outcome{Marks: map[string]attempt.Mark{"essay": {}}, MaxScore: 4}, nil
	}
	if _, err := l.Review(ctx, a.ID, "essay", attempt.Mark{PointsAwarded: ptr(2.0)}, "t1", t0, fixedGrade, nil); !errors.Is(err, attempt.ErrNotSubmitted) {
		t.Fatalf("review before submit err=%v", err)
	}
	if _, _, err := l.Finalize(ctx, a.ID, t0.Add(2*time.Minute), attempt.TriggerUser, pending); err != nil {
		t.Fatal(err)
	}

	sum := func(a attempt.Attempt, answers []attempt.Answer) (attempt.Outcome, error) {
		out := attempt.Outcome{MaxScore: 4}
		for _, ans := range answers {
			if ans.PointsAwarded != nil {
				out.Score += *ans.PointsAwarded
			}
		}
		out.Percentage = out.Score / out.MaxScore * 100
		out.Passed = out.Percentage >= 50
		return out, nil
	}
	got, err := l.Review(ctx, a.ID, "essay", attempt.Mark{IsCorrect: ptr(false), PointsAwarded: ptr(3.0)}, "t1", t0.Add(time.Hour), sum, nil)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if got.Score != 3 || got.Percentage != 75 || !got.Passed {
		t.Fatalf("totals %+v", got)
	}
	if got.Answers[0].ReviewedBy != "t1" || got.Answers[0].ReviewedAt == nil {
		t.Fatalf("review metadata %+v", got.Answers[0])
	}
	called := false
	mark := func(context.Context, db.Execer) error { called = true; return nil }
	if _, err := l.Review(ctx, a.ID, "other", attempt.Mark{}, "t1", t0, sum, mark); !errors.Is(err, attempt.ErrAnswerNotFound) {
		t.Fatalf("missing answer err=%v", err)
	}
	if called {
		t.Fatal("side write ran for a missing answer")
	}
}

func TestReviewSideWriteSharesTransaction(t *testing.T) {
	ctx := context.Background()
	l, sqldb := newLedger(t)
	a, _, _ := l.Begin(ctx, start(nil))
	if _, err := l.SaveAnswer(ctx, a.ID, "essay", "long text", t0.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	pending := func(attempt.Attempt, []attempt.Answer) (attempt.Outcome, error) {
		return attempt.Outcome{Marks: map[string]attempt.Mark{"essay": {}}, MaxScore: 4}, nil
	}
	if _, _, err := l.Finalize(ctx, a.ID, t0.Add(2*time.Minute), attempt.TriggerUser, pending); err != nil {
		t.Fatal(err)
	}
	note := func(ctx context.Context, tx db.Execer) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO course_students (course_id, student_id) VALUES ('course-1','reviewed')`)
		return err
	}

	boom := errors.New("boom")
	failing := func(ctx context.Context, tx db.Execer) error {
		if err := note(ctx, tx); err != nil {
			return err
		}
		return boom
	}
	if _, err := l.Review(ctx, a.ID, "essay", attempt.Mark{PointsAwarded: ptr(3.0)}, "t1", t0, fixedGrade, failing); !errors.Is(err, boom) {
		t.Fatalf("failing side write err=%v", err)
	}
	got, err := l.Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Answers[0].PointsAwarded != nil || got.Answers[0].ReviewedBy != "" {
		t.Fatalf("mark survived a failed side write: %+v", got.Answers[0])
	}
	var n int
	if err := sqldb.QueryRow(`SELECT COUNT(*) FROM course_students`).Scan(&n); err != nil || n != 0 {
		t.Fatalf("side rows after rollback n=%d err=%v", n, err)
	}

	if _, err := l.Review(ctx, a.ID, "essay", attempt.Mark{PointsAwarded: ptr(3.0)}, "t1", t0, fixedGrade, note); err != nil {
		t.Fatalf("review: %v", err)
	}
	if err := sqldb.QueryRow(`SELECT COUNT(*) FROM course_students`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("side rows after commit n=%d err=%v", n, err)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	l, sqldb := newLedger(t)
	if _, err := sqldb.Exec(`UPDATE quizzes SET max_attempts=10`); err != nil {
		t.Fatal(err)
	}
	for i, u := range []string{"u1", "u2", "u1"} {
		a, _, err := l.Begin(ctx, attempt.Start{QuizID: "quiz-1", UserID: u, Now: t0.Add(time.Duration(i) * time.Minute), MaxAttempts: 10})
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			if _, _, err := l.Finalize(ctx, a.ID, t0.Add(time.Minute), attempt.TriggerUser, fixedGrade); err != nil {
				t.Fatal(err)
			}
		}
	}
	mine, err := l.List(ctx, attempt.ListFilter{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 || !mine[0].StartedAt.After(mine[1].StartedAt) {
		t.Fatalf("u1 attempts=%+v", mine)
	}
	open, _ := l.List(ctx, attempt.ListFilter{QuizID: "quiz-1", Status: attempt.StatusInProgress})
	if len(open) != 2 {
		t.Fatalf("in progress=%d want 2", len(open))
	}
	page, _ := l.List(ctx, attempt.ListFilter{Limit: 1, Offset: 1})
	if len(page) != 1 {
		t.Fatalf("page=%d want 1", len(page))
	}
}
