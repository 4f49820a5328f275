package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-assess/internal/clock"
	"github.com/mind-engage/mindengage-assess/internal/db"
)

type SQLStore struct {
	db  *sql.DB
	now clock.Clock
}

func NewSQLStore(sqldb *sql.DB, now clock.Clock) *SQLStore {
	if now == nil {
		now = clock.Real
	}
	return &SQLStore{db: sqldb, now: now}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) CreateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.CreatedAt = s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Quiz{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO quizzes
		(id, course_id, title, description, window_start, window_end, duration_minutes, passing_score, max_attempts, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		q.ID, q.CourseID, q.Title, q.Description, db.NullMillis(q.WindowStart), db.NullMillis(q.WindowEnd),
		q.DurationMinutes, q.PassingScore, q.MaxAttempts, q.CreatedBy, db.Millis(q.CreatedAt))
	if err != nil {
		return Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	for i := range q.Questions {
		qs := &q.Questions[i]
		if qs.ID == "" {
			qs.ID = uuid.NewString()
		}
		qs.QuizID = q.ID
		qs.OrderIndex = i
		if err := insertQuestion(ctx, tx, *qs); err != nil {
			return Quiz{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

const selectQuiz = `SELECT id, course_id, title, description, window_start, window_end,
	duration_minutes, passing_score, max_attempts, created_by, created_at FROM quizzes`

type rowScanner interface{ Scan(dest ...any) error }

func scanQuiz(r rowScanner) (Quiz, error) {
	var (
		q          Quiz
		start, end sql.NullInt64
		created    int64
	)
	if err := r.Scan(&q.ID, &q.CourseID, &q.Title, &q.Description, &start, &end,
		&q.DurationMinutes, &q.PassingScore, &q.MaxAttempts, &q.CreatedBy, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrNotFound
		}
		return Quiz{}, err
	}
	q.WindowStart = db.TimePtr(start)
	q.WindowEnd = db.TimePtr(end)
	q.CreatedAt = db.FromMillis(created)
	q.Questions = []Question{}
	return q, nil
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	q, err := scanQuiz(s.db.QueryRowContext(ctx, selectQuiz+` WHERE id=$1`, id))
	if err != nil {
		return Quiz{}, err
	}
	q.Questions, err = listQuestions(ctx, s.db, id)
	if err != nil {
		return Quiz{}, err
	}
	return q, nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, courseID string) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, selectQuiz+` WHERE course_id=$1 ORDER BY created_at DESC, id`, courseID)
	if err != nil {
		return nil, err
	}
	out := []Quiz{}
	index := map[string]int{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[q.ID] = len(out)
		out = append(out, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	qrows, err := s.db.QueryContext(ctx, selectQuestion+`
		WHERE quiz_id IN (SELECT id FROM quizzes WHERE course_id=$1) ORDER BY quiz_id, order_index`, courseID)
	if err != nil {
		return nil, err
	}
	questions, err := scanQuestions(qrows)
	if err != nil {
		return nil, err
	}
	for _, qs := range questions {
		if i, ok := index[qs.QuizID]; ok {
			out[i].Questions = append(out[i].Questions, qs)
		}
	}
	return out, nil
}

func (s *SQLStore) UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE quizzes
		SET title=$1, description=$2, window_start=$3, window_end=$4, duration_minutes=$5, passing_score=$6, max_attempts=$7
		WHERE id=$8`,
		q.Title, q.Description, db.NullMillis(q.WindowStart), db.NullMillis(q.WindowEnd),
		q.DurationMinutes, q.PassingScore, q.MaxAttempts, q.ID)
	if err != nil {
		return Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Quiz{}, ErrNotFound
	}
	return s.GetQuiz(ctx, q.ID)
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var open int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE quiz_id=$1 AND status='in_progress'`, id).Scan(&open); err != nil {
		return err
	}
	if open > 0 {
		return ErrInUse
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	rows, err := s.db.QueryContext(ctx, selectQuestion+` WHERE id=$1`, id)
	if err != nil {
		return Question{}, err
	}
	qs, err := scanQuestions(rows)
	if err != nil {
		return Question{}, err
	}
	if len(qs) == 0 {
		return Question{}, ErrQuestionNotFound
	}
	return qs[0], nil
}

// AddQuestion appends at the next order_index.
func (s *SQLStore) AddQuestion(ctx context.Context, quizID string, q Question) (Question, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Question{}, err
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(q.order_index) + 1, 0)
		FROM quizzes z LEFT JOIN questions q ON q.quiz_id = z.id
		WHERE z.id=$1 GROUP BY z.id`, quizID).Scan(&next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrNotFound
		}
		return Question{}, err
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.QuizID = quizID
	q.OrderIndex = next
	if err := insertQuestion(ctx, tx, q); err != nil {
		return Question{}, err
	}
	return q, tx.Commit()
}

// UpdateQuestion rewrites content fields. Position and quiz are unchanged.
func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) (Question, error) {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return Question{}, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE questions
		SET type=$1, prompt=$2, options_json=$3, correct_answer=$4, points=$5, explanation=$6
		WHERE id=$7`,
		string(q.Type), q.Prompt, string(opts), q.CorrectAnswer, q.Points, q.Explanation, q.ID)
	if err != nil {
		return Question{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Question{}, ErrQuestionNotFound
	}
	return s.GetQuestion(ctx, q.ID)
}

// DeleteQuestion removes the question and closes the gap in order_index.
func (s *SQLStore) DeleteQuestion(ctx context.Context, questionID string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var quizID string
	if err := tx.QueryRowContext(ctx, `SELECT quiz_id FROM questions WHERE id=$1`, questionID).Scan(&quizID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrQuestionNotFound
		}
		return "", err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, questionID); err != nil {
		return "", err
	}
	remaining, err := listQuestions(ctx, tx, quizID)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(remaining))
	for i, q := range remaining {
		ids[i] = q.ID
	}
	if err := renumber(ctx, tx, quizID, ids); err != nil {
		return "", err
	}
	return quizID, tx.Commit()
}

// ReorderQuestions assigns positions 0..n-1 in the given order. The ids must
// be a permutation of the quiz's questions.
func (s *SQLStore) ReorderQuestions(ctx context.Context, quizID string, questionIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var one int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM quizzes WHERE id=$1`, quizID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	current, err := listQuestions(ctx, tx, quizID)
	if err != nil {
		return err
	}
	if len(current) != len(questionIDs) {
		return invalid("question_ids", "must list every question exactly once")
	}
	have := make(map[string]bool, len(current))
	for _, q := range current {
		have[q.ID] = false
	}
	for _, id := range questionIDs {
		used, ok := have[id]
		if !ok || used {
			return invalid("question_ids", "must list every question exactly once")
		}
		have[id] = true
	}
	if err := renumber(ctx, tx, quizID, questionIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// renumber parks every row on a negative index first so the unique
// (quiz_id, order_index) constraint holds after each statement.
func renumber(ctx context.Context, x execer, quizID string, ids []string) error {
	if _, err := x.ExecContext(ctx, `UPDATE questions SET order_index = -1 - order_index WHERE quiz_id=$1`, quizID); err != nil {
		return fmt.Errorf("park order: %w", err)
	}
	for i, id := range ids {
		if _, err := x.ExecContext(ctx, `UPDATE questions SET order_index=$1 WHERE id=$2 AND quiz_id=$3`, i, id, quizID); err != nil {
			return fmt.Errorf("set order: %w", err)
		}
	}
	return nil
}

func insertQuestion(ctx context.Context, x execer, q Question) error {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	_, err = x.ExecContext(ctx, `INSERT INTO questions
		(id, quiz_id, type, prompt, options_json, correct_answer, points, order_index, explanation)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		q.ID, q.QuizID, string(q.Type), q.Prompt, string(opts), q.CorrectAnswer, q.Points, q.OrderIndex, q.Explanation)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

const selectQuestion = `SELECT id, quiz_id, type, prompt, options_json, correct_answer, points, order_index, explanation FROM questions`

func listQuestions(ctx context.Context, x execer, quizID string) ([]Question, error) {
	rows, err := x.QueryContext(ctx, selectQuestion+` WHERE quiz_id=$1 ORDER BY order_index`, quizID)
	if err != nil {
		return nil, err
	}
	return scanQuestions(rows)
}

func scanQuestions(rows *sql.Rows) ([]Question, error) {
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		var (
			q     Question
			typ   string
			ojson string
		)
		if err := rows.Scan(&q.ID, &q.QuizID, &typ, &q.Prompt, &ojson, &q.CorrectAnswer, &q.Points, &q.OrderIndex, &q.Explanation); err != nil {
			return nil, err
		}
		q.Type = QuestionType(typ)
		if err := json.Unmarshal([]byte(ojson), &q.Options); err != nil {
			return nil, fmt.Errorf("question %s options: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
