package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestOpenSQLiteAppliesSchema(t *testing.T) {
	ctx := context.Background()
	sqldb, err := Open(ctx, DriverSQLite, "file:connect_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sqldb.Close()

	for _, table := range []string{"quizzes", "questions", "attempts", "answers", "rubrics", "rubric_items", "rubric_scores", "grades", "course_students", "event_log"} {
		var n int
		if err := sqldb.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			t.Fatalf("table %s: %v", table, err)
		}
	}
	// schema is idempotent
	if err := ensureSchema(ctx, sqldb, DriverSQLite); err != nil {
		t.Fatalf("second ensureSchema: %v", err)
	}
}

func TestSQLitePragmasSurviveReconnect(t *testing.T) {
	ctx := context.Background()
	sqldb, err := Open(ctx, DriverSQLite, "file:connect_pragma_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sqldb.Close()

	// drop the idle connection so each query below dials a fresh one
	sqldb.SetMaxIdleConns(0)
	for i := 0; i < 2; i++ {
		var fk, busy int
		if err := sqldb.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk); err != nil {
			t.Fatal(err)
		}
		if err := sqldb.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&busy); err != nil {
			t.Fatal(err)
		}
		if fk != 1 || busy != 5000 {
			t.Fatalf("conn %d: foreign_keys=%d busy_timeout=%d", i, fk, busy)
		}
	}
}

func TestWithPragmas(t *testing.T) {
	cases := map[string]string{
		"file:a.db":                           "file:a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		"file:a.db?mode=rwc":                  "file:a.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		"file:a.db?_pragma=busy_timeout(100)": "file:a.db?_pragma=busy_timeout(100)&_pragma=foreign_keys(1)",
	}
	for in, want := range cases {
		if got := withPragmas(in); got != want {
			t.Errorf("withPragmas(%q)=%q want %q", in, got, want)
		}
	}
}

func TestActiveAttemptIndexIsUnique(t *testing.T) {
	ctx := context.Background()
	sqldb, err := Open(ctx, DriverSQLite, "file:connect_unique_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sqldb.Close()

	mustExec := func(q string, args ...any) error {
		_, err := sqldb.ExecContext(ctx, q, args...)
		return err
	}
	if err := mustExec(`INSERT INTO quizzes (id, course_id, title, passing_score, max_attempts, created_at) VALUES ('q1','c1','t',50,3,0)`); err != nil {
		t.Fatal(err)
	}
	ins := `INSERT INTO attempts (id, quiz_id, user_id, status, started_at) VALUES ($1,'q1','u1',$2,0)`
	if err := mustExec(ins, "a1", "in_progress"); err != nil {
		t.Fatal(err)
	}
	if err := mustExec(ins, "a2", "submitted"); err != nil {
		t.Fatalf("submitted row must not collide: %v", err)
	}
	err = mustExec(ins, "a3", "in_progress")
	if !IsUniqueViolation(err) {
		t.Fatalf("second in_progress row: err=%v, want unique violation", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil) {
		t.Fatal("nil is not a violation")
	}
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("pg 23505 should match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("fk violation should not match")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Fatal("plain error should not match")
	}
}

func TestParseDriver(t *testing.T) {
	cases := map[string]Driver{"": DriverSQLite, "sqlite": DriverSQLite, "PGX": DriverPostgres, "postgres": DriverPostgres}
	for in, want := range cases {
		got, err := ParseDriver(in)
		if err != nil || got != want {
			t.Errorf("ParseDriver(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	if _, err := ParseDriver("mysql"); err == nil {
		t.Error("mysql should be rejected")
	}
}

func TestMillisRoundTrip(t *testing.T) {
	ts := time.Date(2025, 5, 4, 3, 2, 1, 7_000_000, time.UTC)
	if got := FromMillis(Millis(ts)); !got.Equal(ts) {
		t.Fatalf("round trip %v != %v", got, ts)
	}
	if TimePtr(sql.NullInt64{}) != nil {
		t.Fatal("null should map to nil")
	}
	if p := TimePtr(NullMillis(&ts)); p == nil || !p.Equal(ts) {
		t.Fatalf("nullable round trip: %v", p)
	}
}
