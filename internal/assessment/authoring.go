package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-assess/internal/quiz"
	"github.com/mind-engage/mindengage-assess/internal/rubric"
)

// Editing a question never regrades attempts that were already submitted.

func (s *Service) CreateQuiz(ctx context.Context, q quiz.Quiz, creatorID string) (quiz.Quiz, error) {
	q.ID = ""
	q.CreatedBy = creatorID
	for i := range q.Questions {
		q.Questions[i].Normalize()
	}
	if err := quiz.ValidateQuiz(q); err != nil {
		return quiz.Quiz{}, invalidInput(err)
	}
	created, err := s.quizzes.CreateQuiz(ctx, q)
	if err != nil {
		return quiz.Quiz{}, err
	}
	s.log.Info("quiz created", "quiz_id", created.ID, "course_id", created.CourseID, "questions", len(created.Questions))
	return created, nil
}

// GetQuiz returns the definition; answer keys only when withAnswers is set.
func (s *Service) GetQuiz(ctx context.Context, id string, withAnswers bool) (quiz.Quiz, error) {
	qz, err := s.loadQuiz(ctx, id)
	if err != nil {
		return quiz.Quiz{}, err
	}
	if !withAnswers {
		return qz.StudentView(), nil
	}
	return qz, nil
}

// ListQuizzes lists a course's quizzes, newest first. A non-empty learnerID
// must be enrolled in the course.
func (s *Service) ListQuizzes(ctx context.Context, courseID, learnerID string) ([]quiz.Summary, error) {
	if courseID == "" {
		return nil, fmt.Errorf("%w: course_id required", ErrInvalidInput)
	}
	if learnerID != "" {
		ok, err := s.enroll.IsEnrolled(ctx, courseID, learnerID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEnrollmentUnavailable, err)
		}
		if !ok {
			return nil, ErrNotEnrolled
		}
	}
	qs, err := s.quizzes.ListQuizzes(ctx, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]quiz.Summary, len(qs))
	for i, q := range qs {
		out[i] = q.Summary()
	}
	return out, nil
}

// UpdateQuiz replaces a quiz's settings. Attempts already running keep the
// deadline they started with.
func (s *Service) UpdateQuiz(ctx context.Context, quizID string, in quiz.Quiz) (quiz.Quiz, error) {
	cur, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, err
	}
	in.ID = cur.ID
	in.CourseID = cur.CourseID
	in.CreatedBy = cur.CreatedBy
	in.CreatedAt = cur.CreatedAt
	in.Questions = cur.Questions
	if err := quiz.ValidateQuiz(in); err != nil {
		return quiz.Quiz{}, invalidInput(err)
	}
	out, err := s.quizzes.UpdateQuiz(ctx, in)
	if errors.Is(err, quiz.ErrNotFound) {
		return quiz.Quiz{}, fmt.Errorf("%w: quiz %s", ErrNotFound, quizID)
	}
	if err != nil {
		return quiz.Quiz{}, err
	}
	s.log.Info("quiz updated", "quiz_id", out.ID, "duration_minutes", out.DurationMinutes, "max_attempts", out.MaxAttempts)
	return out, nil
}

// DeleteQuiz removes a quiz and its graded history. A quiz with an attempt
// still in progress is ErrQuizInUse.
func (s *Service) DeleteQuiz(ctx context.Context, quizID string) error {
	err := s.quizzes.DeleteQuiz(ctx, quizID)
	switch {
	case errors.Is(err, quiz.ErrNotFound):
		return fmt.Errorf("%w: quiz %s", ErrNotFound, quizID)
	case errors.Is(err, quiz.ErrInUse):
		return ErrQuizInUse
	case err != nil:
		return err
	}
	s.log.Info("quiz deleted", "quiz_id", quizID)
	return nil
}

func (s *Service) AddQuestion(ctx context.Context, quizID string, q quiz.Question) (quiz.Question, error) {
	q.ID = ""
	q.Normalize()
	if err := quiz.ValidateQuestion(q); err != nil {
		return quiz.Question{}, invalidInput(err)
	}
	out, err := s.quizzes.AddQuestion(ctx, quizID, q)
	if errors.Is(err, quiz.ErrNotFound) {
		return quiz.Question{}, fmt.Errorf("%w: quiz %s", ErrNotFound, quizID)
	}
	return out, err
}

func (s *Service) UpdateQuestion(ctx context.Context, questionID string, q quiz.Question) (quiz.Question, error) {
	q.ID = questionID
	q.Normalize()
	if err := quiz.ValidateQuestion(q); err != nil {
		return quiz.Question{}, invalidInput(err)
	}
	out, err := s.quizzes.UpdateQuestion(ctx, q)
	if errors.Is(err, quiz.ErrQuestionNotFound) {
		return quiz.Question{}, ErrQuestionNotFound
	}
	return out, err
}

func (s *Service) DeleteQuestion(ctx context.Context, questionID string) error {
	_, err := s.quizzes.DeleteQuestion(ctx, questionID)
	if errors.Is(err, quiz.ErrQuestionNotFound) {
		return ErrQuestionNotFound
	}
	return err
}

func (s *Service) ReorderQuestions(ctx context.Context, quizID string, questionIDs []string) error {
	err := s.quizzes.ReorderQuestions(ctx, quizID, questionIDs)
	var ve *quiz.ValidationError
	switch {
	case errors.Is(err, quiz.ErrNotFound):
		return fmt.Errorf("%w: quiz %s", ErrNotFound, quizID)
	case errors.As(err, &ve):
		return invalidInput(err)
	}
	return err
}

func (s *Service) CreateRubric(ctx context.Context, r rubric.Rubric, creatorID string) (rubric.Rubric, error) {
	r.ID = ""
	r.CreatedBy = creatorID
	r.CreatedAt = s.now()
	if err := r.Validate(); err != nil {
		return rubric.Rubric{}, invalidInput(err)
	}
	return s.rubrics.CreateRubric(ctx, r)
}

func (s *Service) GetRubric(ctx context.Context, id string) (rubric.Rubric, error) {
	r, err := s.rubrics.GetRubric(ctx, id)
	if errors.Is(err, rubric.ErrNotFound) {
		return rubric.Rubric{}, fmt.Errorf("%w: rubric %s", ErrNotFound, id)
	}
	return r, err
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
