package quiz

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("quiz not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrInUse            = errors.New("quiz has attempts in progress")
)

// Store persists quiz definitions. GetQuiz returns the full definition
// including answer keys; callers project StudentView for learners.
type Store interface {
	CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	// ListQuizzes returns a course's quizzes, newest first, questions included.
	ListQuizzes(ctx context.Context, courseID string) ([]Quiz, error)
	// UpdateQuiz rewrites the settings of q.ID. Questions, course and
	// creator are left alone.
	UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	// DeleteQuiz removes the quiz with its questions and closed attempts.
	// It refuses with ErrInUse while any attempt is still in progress.
	DeleteQuiz(ctx context.Context, id string) error
	GetQuestion(ctx context.Context, id string) (Question, error)
	AddQuestion(ctx context.Context, quizID string, q Question) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) (Question, error)
	DeleteQuestion(ctx context.Context, questionID string) (quizID string, err error)
	ReorderQuestions(ctx context.Context, quizID string, questionIDs []string) error
}
