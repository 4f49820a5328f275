package attempt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-assess/internal/db"
)

type SQLLedger struct {
	db     *sql.DB
	driver db.Driver

	// beforeInsert runs inside Begin's transaction just ahead of the insert.
	beforeInsert func(ctx context.Context, tx *sql.Tx) error
}

func NewSQLLedger(sqldb *sql.DB, driver db.Driver) *SQLLedger {
	return &SQLLedger{db: sqldb, driver: driver}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectAttempt = `SELECT id, quiz_id, user_id, status, started_at, deadline, submitted_at, submitted_by,
	score, max_score, percentage, passed, time_taken_seconds FROM attempts`

type rowScanner interface{ Scan(dest ...any) error }

func scanAttempt(r rowScanner) (Attempt, error) {
	var (
		a                   Attempt
		status, by          string
		started             int64
		deadline, submitted sql.NullInt64
	)
	if err := r.Scan(&a.ID, &a.QuizID, &a.UserID, &status, &started, &deadline, &submitted, &by,
		&a.Score, &a.MaxScore, &a.Percentage, &a.Passed, &a.TimeTakenSeconds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrNotFound
		}
		return Attempt{}, err
	}
	a.Status = Status(status)
	a.SubmittedBy = Trigger(by)
	a.StartedAt = db.FromMillis(started)
	a.Deadline = db.TimePtr(deadline)
	a.SubmittedAt = db.TimePtr(submitted)
	return a, nil
}

func (l *SQLLedger) Active(ctx context.Context, quizID, userID string) (Attempt, error) {
	return scanAttempt(l.db.QueryRowContext(ctx,
		selectAttempt+` WHERE quiz_id=$1 AND user_id=$2 AND status='in_progress'`, quizID, userID))
}

func (l *SQLLedger) Begin(ctx context.Context, s Start) (Attempt, bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, false, err
	}
	defer tx.Rollback()

	existing, err := scanAttempt(tx.QueryRowContext(ctx,
		selectAttempt+` WHERE quiz_id=$1 AND user_id=$2 AND status='in_progress'`+db.ForUpdate(l.driver), s.QuizID, s.UserID))
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return Attempt{}, false, err
	}

	var used int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE quiz_id=$1 AND user_id=$2`,
		s.QuizID, s.UserID).Scan(&used); err != nil {
		return Attempt{}, false, err
	}
	if used >= s.MaxAttempts {
		return Attempt{}, false, ErrLimitReached
	}

	a := Attempt{
		ID:        uuid.NewString(),
		QuizID:    s.QuizID,
		UserID:    s.UserID,
		Status:    StatusInProgress,
		StartedAt: s.Now.UTC(),
		Deadline:  s.Deadline,
	}
	if l.beforeInsert != nil {
		if err := l.beforeInsert(ctx, tx); err != nil {
			return Attempt{}, false, err
		}
	}
	if _, err := tx.ExecContext(ctx, `SAVEPOINT begin_attempt`); err != nil {
		return Attempt{}, false, err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO attempts (id, quiz_id, user_id, status, started_at, deadline)
		VALUES ($1,$2,$3,'in_progress',$4,$5)`,
		a.ID, a.QuizID, a.UserID, db.Millis(a.StartedAt), db.NullMillis(a.Deadline))
	switch {
	case db.IsUniqueViolation(err):
		// another Begin committed first; hand back its attempt
		if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT begin_attempt`); err != nil {
			return Attempt{}, false, err
		}
		winner, err := scanAttempt(tx.QueryRowContext(ctx,
			selectAttempt+` WHERE quiz_id=$1 AND user_id=$2 AND status='in_progress'`, s.QuizID, s.UserID))
		if err != nil {
			return Attempt{}, false, fmt.Errorf("reload concurrent attempt: %w", err)
		}
		return winner, false, tx.Commit()
	case err != nil:
		return Attempt{}, false, fmt.Errorf("insert attempt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, false, err
	}
	// round-trip through storage precision
	a.StartedAt = db.FromMillis(db.Millis(a.StartedAt))
	if a.Deadline != nil {
		a.Deadline = db.TimePtr(db.NullMillis(a.Deadline))
	}
	return a, true, nil
}

func (l *SQLLedger) Get(ctx context.Context, id string) (Attempt, error) {
	a, err := scanAttempt(l.db.QueryRowContext(ctx, selectAttempt+` WHERE id=$1`, id))
	if err != nil {
		return Attempt{}, err
	}
	a.Answers, err = loadAnswers(ctx, l.db, id)
	if err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (l *SQLLedger) SaveAnswer(ctx context.Context, attemptID, questionID, text string, now time.Time) (Answer, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Answer{}, err
	}
	defer tx.Rollback()

	a, err := scanAttempt(tx.QueryRowContext(ctx, selectAttempt+` WHERE id=$1`+db.ForUpdate(l.driver), attemptID))
	if err != nil {
		return Answer{}, err
	}
	if !a.Open(now) {
		return Answer{}, ErrNotActive
	}
	ans := Answer{AttemptID: attemptID, QuestionID: questionID, AnswerText: text, AnsweredAt: db.FromMillis(db.Millis(now))}
	_, err = tx.ExecContext(ctx, `INSERT INTO answers (attempt_id, question_id, answer_text, answered_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (attempt_id, question_id) DO UPDATE SET answer_text=EXCLUDED.answer_text, answered_at=EXCLUDED.answered_at`,
		attemptID, questionID, text, db.Millis(now))
	if err != nil {
		return Answer{}, fmt.Errorf("upsert answer: %w", err)
	}
	return ans, tx.Commit()
}

func (l *SQLLedger) Finalize(ctx context.Context, id string, now time.Time, by Trigger, grade GradeFunc) (Attempt, bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, false, err
	}
	defer tx.Rollback()

	a, err := scanAttempt(tx.QueryRowContext(ctx, selectAttempt+` WHERE id=$1`+db.ForUpdate(l.driver), id))
	if err != nil {
		return Attempt{}, false, err
	}
	if a.Status != StatusInProgress {
		_ = tx.Rollback()
		cur, err := l.Get(ctx, id)
		return cur, false, err
	}

	answers, err := loadAnswers(ctx, tx, id)
	if err != nil {
		return Attempt{}, false, err
	}
	out, err := grade(a, answers)
	if err != nil {
		return Attempt{}, false, fmt.Errorf("grade attempt %s: %w", id, err)
	}
	for qid, m := range out.Marks {
		if err := writeMark(ctx, tx, id, qid, m); err != nil {
			return Attempt{}, false, err
		}
	}

	end := now
	if a.Deadline != nil && a.Deadline.Before(end) {
		end = *a.Deadline
	}
	taken := int(end.Sub(a.StartedAt) / time.Second)
	if taken < 0 {
		taken = 0
	}
	res, err := tx.ExecContext(ctx, `UPDATE attempts
		SET status='submitted', submitted_at=$1, submitted_by=$2, score=$3, max_score=$4, percentage=$5, passed=$6, time_taken_seconds=$7
		WHERE id=$8 AND status='in_progress'`,
		db.Millis(now), string(by), out.Score, out.MaxScore, out.Percentage, out.Passed, taken, id)
	if err != nil {
		return Attempt{}, false, fmt.Errorf("close attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		cur, err := l.Get(ctx, id)
		return cur, false, err
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, false, err
	}
	closed, err := l.Get(ctx, id)
	return closed, err == nil, err
}

func (l *SQLLedger) Review(ctx context.Context, id, questionID string, mark Mark, reviewer string, now time.Time, rescore GradeFunc, also TxFunc) (Attempt, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	a, err := scanAttempt(tx.QueryRowContext(ctx, selectAttempt+` WHERE id=$1`+db.ForUpdate(l.driver), id))
	if err != nil {
		return Attempt{}, err
	}
	if a.Status != StatusSubmitted {
		return Attempt{}, ErrNotSubmitted
	}
	res, err := tx.ExecContext(ctx, `UPDATE answers
		SET is_correct=$1, points_awarded=$2, reviewed_by=$3, reviewed_at=$4
		WHERE attempt_id=$5 AND question_id=$6`,
		nullBool(mark.IsCorrect), nullFloat(mark.PointsAwarded), reviewer, db.Millis(now), id, questionID)
	if err != nil {
		return Attempt{}, fmt.Errorf("review answer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Attempt{}, ErrAnswerNotFound
	}
	if also != nil {
		if err := also(ctx, tx); err != nil {
			return Attempt{}, err
		}
	}

	answers, err := loadAnswers(ctx, tx, id)
	if err != nil {
		return Attempt{}, err
	}
	out, err := rescore(a, answers)
	if err != nil {
		return Attempt{}, fmt.Errorf("rescore attempt %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE attempts SET score=$1, max_score=$2, percentage=$3, passed=$4 WHERE id=$5`,
		out.Score, out.MaxScore, out.Percentage, out.Passed, id); err != nil {
		return Attempt{}, err
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return l.Get(ctx, id)
}

func (l *SQLLedger) ListDue(ctx context.Context, now time.Time, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, selectAttempt+`
		WHERE status='in_progress' AND deadline IS NOT NULL AND deadline < $1
		ORDER BY deadline LIMIT $2`, db.Millis(now), limit)
	if err != nil {
		return nil, err
	}
	return scanAttempts(rows)
}

func (l *SQLLedger) List(ctx context.Context, f ListFilter) ([]Attempt, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.QuizID != "" {
		add("quiz_id=$%d", f.QuizID)
	}
	if f.UserID != "" {
		add("user_id=$%d", f.UserID)
	}
	if f.Status != "" {
		add("status=$%d", string(f.Status))
	}
	q := selectAttempt
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	q += fmt.Sprintf(" ORDER BY started_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanAttempts(rows)
}

func scanAttempts(rows *sql.Rows) ([]Attempt, error) {
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func loadAnswers(ctx context.Context, q querier, attemptID string) ([]Answer, error) {
	rows, err := q.QueryContext(ctx, `SELECT attempt_id, question_id, answer_text, answered_at, is_correct, points_awarded, reviewed_by, reviewed_at
		FROM answers WHERE attempt_id=$1 ORDER BY answered_at, question_id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Answer{}
	for rows.Next() {
		var (
			ans      Answer
			answered int64
			correct  sql.NullBool
			points   sql.NullFloat64
			reviewed sql.NullInt64
		)
		if err := rows.Scan(&ans.AttemptID, &ans.QuestionID, &ans.AnswerText, &answered, &correct, &points, &ans.ReviewedBy, &reviewed); err != nil {
			return nil, err
		}
		ans.AnsweredAt = db.FromMillis(answered)
		if correct.Valid {
			ans.IsCorrect = &correct.Bool
		}
		if points.Valid {
			ans.PointsAwarded = &points.Float64
		}
		ans.ReviewedAt = db.TimePtr(reviewed)
		out = append(out, ans)
	}
	return out, rows.Err()
}

func writeMark(ctx context.Context, q querier, attemptID, questionID string, m Mark) error {
	_, err := q.ExecContext(ctx, `UPDATE answers SET is_correct=$1, points_awarded=$2 WHERE attempt_id=$3 AND question_id=$4`,
		nullBool(m.IsCorrect), nullFloat(m.PointsAwarded), attemptID, questionID)
	if err != nil {
		return fmt.Errorf("mark answer %s: %w", questionID, err)
	}
	return nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
