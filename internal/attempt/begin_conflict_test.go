package attempt

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/db"
	"github.com/mind-engage/mindengage-assess/internal/db/dbtest"
)

func TestBeginHandsBackConcurrentWinner(t *testing.T) {
	ctx := context.Background()
	sqldb := dbtest.Open(t)
	if _, err := sqldb.Exec(`INSERT INTO quizzes (id, course_id, title, passing_score, max_attempts, created_at)
		VALUES ('quiz-1','course-1','Quiz',50,3,0)`); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	l := NewSQLLedger(sqldb, db.DriverSQLite)

	// the rival lands after the existence check has already missed
	l.beforeInsert = func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO attempts (id, quiz_id, user_id, status, started_at)
			VALUES ('rival','quiz-1','u1','in_progress',$1)`, db.Millis(now))
		return err
	}
	s := Start{QuizID: "quiz-1", UserID: "u1", Now: now, MaxAttempts: 3}
	got, created, err := l.Begin(ctx, s)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if created || got.ID != "rival" || got.Status != StatusInProgress {
		t.Fatalf("got %+v created=%v, want the rival attempt", got, created)
	}

	var n int
	if err := sqldb.QueryRow(`SELECT COUNT(*) FROM attempts WHERE quiz_id='quiz-1' AND user_id='u1'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("attempt rows=%d want 1", n)
	}

	l.beforeInsert = nil
	again, created, err := l.Begin(ctx, s)
	if err != nil || created || again.ID != "rival" {
		t.Fatalf("resume: %+v created=%v err=%v", again, created, err)
	}
}
