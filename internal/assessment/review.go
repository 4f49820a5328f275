package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mind-engage/mindengage-assess/internal/attempt"
	"github.com/mind-engage/mindengage-assess/internal/db"
	"github.com/mind-engage/mindengage-assess/internal/grading"
	"github.com/mind-engage/mindengage-assess/internal/quiz"
	"github.com/mind-engage/mindengage-assess/internal/rubric"
)

type RubricScoreInput struct {
	ItemID  string          `json:"item_id" validate:"required"`
	Score   decimal.Decimal `json:"score"`
	Comment string          `json:"comment,omitempty"`
}

// ReviewInput grades one short answer either with direct points or with a
// rubric whose percentage is scaled onto the question's points.
type ReviewInput struct {
	Points   *float64
	RubricID string
	Scores   []RubricScoreInput
	Reviewer string
}

// AnswerEntityID names a single answer when it is graded with a rubric.
func AnswerEntityID(attemptID, questionID string) string {
	return attemptID + ":" + questionID
}

// ReviewAnswer sets points on a short answer of a submitted attempt and
// recomputes the attempt totals. Reviewing again overwrites the previous mark.
func (s *Service) ReviewAnswer(ctx context.Context, attemptID, questionID string, in ReviewInput) (AttemptView, error) {
	a, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return AttemptView{}, err
	}
	if a.Status != attempt.StatusSubmitted {
		return AttemptView{}, ErrAttemptNotSubmitted
	}
	qz, err := s.loadQuiz(ctx, a.QuizID)
	if err != nil {
		return AttemptView{}, err
	}
	q, ok := qz.Question(questionID)
	if !ok {
		return AttemptView{}, ErrQuestionNotFound
	}
	if q.Type != quiz.ShortAnswer {
		return AttemptView{}, ErrNotReviewable
	}

	if !hasAnswer(a.Answers, questionID) {
		return AttemptView{}, fmt.Errorf("%w: no answer recorded for question %s", ErrNotFound, questionID)
	}

	var (
		points float64
		also   attempt.TxFunc
		sheet  scoreSheet
	)
	switch {
	case in.RubricID != "":
		sheet, err = s.scoreRubric(ctx, in.RubricID, AnswerEntityID(attemptID, questionID), in.Reviewer, in.Scores)
		if err != nil {
			return AttemptView{}, err
		}
		points = grading.PointsFromPercentage(sheet.grade.Percentage, q.Points)
		also = func(ctx context.Context, tx db.Execer) error {
			return s.rubrics.WriteScores(ctx, tx, sheet.rubric, sheet.rows, sheet.grade)
		}
	case in.Points != nil:
		points = *in.Points
		if points < 0 || points > q.Points {
			return AttemptView{}, fmt.Errorf("%w: %v not in [0, %v]", ErrScoreOutOfRange, points, q.Points)
		}
	default:
		return AttemptView{}, fmt.Errorf("%w: points or rubric scores required", ErrInvalidInput)
	}

	correct := points == q.Points
	now := s.now()
	reviewed, err := s.ledger.Review(ctx, attemptID, questionID,
		attempt.Mark{IsCorrect: &correct, PointsAwarded: &points}, in.Reviewer, now, rescoreWith(qz), also)
	switch {
	case errors.Is(err, attempt.ErrAnswerNotFound):
		return AttemptView{}, fmt.Errorf("%w: no answer recorded for question %s", ErrNotFound, questionID)
	case errors.Is(err, attempt.ErrNotSubmitted):
		return AttemptView{}, ErrAttemptNotSubmitted
	case err != nil:
		return AttemptView{}, err
	}
	if also != nil {
		s.log.Info("rubric graded", "rubric_id", sheet.rubric.ID, "entity_id", sheet.grade.EntityID,
			"percentage", sheet.grade.Percentage.String(), "grader", in.Reviewer)
	}
	s.log.Info("answer reviewed", "attempt_id", attemptID, "question_id", questionID,
		"points", points, "reviewer", in.Reviewer, "percentage", reviewed.Percentage)
	s.announce(ctx, reviewed, "review")
	return s.view(reviewed, now), nil
}

func hasAnswer(answers []attempt.Answer, questionID string) bool {
	for _, ans := range answers {
		if ans.QuestionID == questionID {
			return true
		}
	}
	return false
}

// rescoreWith sums awarded points against the total fixed at submit time.
func rescoreWith(qz quiz.Quiz) attempt.GradeFunc {
	return func(a attempt.Attempt, answers []attempt.Answer) (attempt.Outcome, error) {
		score := 0.0
		for _, ans := range answers {
			if _, ok := qz.Question(ans.QuestionID); ok && ans.PointsAwarded != nil && a.Counted(ans) {
				score += *ans.PointsAwarded
			}
		}
		sum := grading.Summarize(score, a.MaxScore, qz.PassingScore)
		return attempt.Outcome{Score: sum.Score, MaxScore: sum.MaxScore, Percentage: sum.Percentage, Passed: sum.Passed}, nil
	}
}

// scoreSheet is a scored rubric that has not been stored yet.
type scoreSheet struct {
	rubric rubric.Rubric
	rows   []rubric.Score
	grade  rubric.Grade
}

func (s *Service) scoreRubric(ctx context.Context, rubricID, entityID, graderID string, scores []RubricScoreInput) (scoreSheet, error) {
	if entityID == "" {
		return scoreSheet{}, fmt.Errorf("%w: entity_id required", ErrInvalidInput)
	}
	r, err := s.rubrics.GetRubric(ctx, rubricID)
	if errors.Is(err, rubric.ErrNotFound) {
		return scoreSheet{}, fmt.Errorf("%w: rubric %s", ErrNotFound, rubricID)
	}
	if err != nil {
		return scoreSheet{}, err
	}

	awarded := make([]grading.Awarded, len(scores))
	for i, sc := range scores {
		awarded[i] = grading.Awarded{CriterionID: sc.ItemID, Score: sc.Score}
	}
	res, err := grading.ScoreRubric(r.Criteria(), awarded)
	if err != nil {
		return scoreSheet{}, err
	}

	now := s.now()
	rows := make([]rubric.Score, len(scores))
	for i, sc := range scores {
		rows[i] = rubric.Score{EntityID: entityID, ItemID: sc.ItemID, Score: sc.Score, Comment: sc.Comment, ScoredBy: graderID, ScoredAt: now}
	}
	return scoreSheet{
		rubric: r,
		rows:   rows,
		grade:  rubric.Grade{EntityID: entityID, RubricID: r.ID, Percentage: res.Percentage, GradedBy: graderID, GradedAt: now},
	}, nil
}

// SubmitRubricScore scores every item of a rubric for one entity, replacing
// any earlier scores, and stores the resulting grade.
func (s *Service) SubmitRubricScore(ctx context.Context, rubricID, entityID, graderID string, scores []RubricScoreInput) (rubric.Grade, error) {
	sheet, err := s.scoreRubric(ctx, rubricID, entityID, graderID, scores)
	if err != nil {
		return rubric.Grade{}, err
	}
	if err := s.rubrics.SaveScores(ctx, sheet.rubric, sheet.rows, sheet.grade); err != nil {
		return rubric.Grade{}, err
	}
	s.log.Info("rubric graded", "rubric_id", sheet.rubric.ID, "entity_id", entityID,
		"percentage", sheet.grade.Percentage.String(), "grader", graderID)
	return sheet.grade, nil
}

// RubricScores is everything stored for one entity on one rubric.
type RubricScores struct {
	RubricID string         `json:"rubric_id"`
	EntityID string         `json:"entity_id"`
	Scores   []rubric.Score `json:"scores"`
	Grade    *rubric.Grade  `json:"grade,omitempty"`
}

// GetRubricScores reads back the item scores and grade an entity holds on a
// rubric. An entity that was never scored is ErrNotFound.
func (s *Service) GetRubricScores(ctx context.Context, rubricID, entityID string) (RubricScores, error) {
	if _, err := s.GetRubric(ctx, rubricID); err != nil {
		return RubricScores{}, err
	}
	scores, err := s.rubrics.ListScores(ctx, rubricID, entityID)
	if err != nil {
		return RubricScores{}, err
	}
	out := RubricScores{RubricID: rubricID, EntityID: entityID, Scores: scores}
	g, err := s.rubrics.GetGrade(ctx, entityID)
	switch {
	case err == nil && g.RubricID == rubricID:
		out.Grade = &g
	case err != nil && !errors.Is(err, rubric.ErrGradeNotFound):
		return RubricScores{}, err
	}
	if len(scores) == 0 && out.Grade == nil {
		return RubricScores{}, fmt.Errorf("%w: no scores for %s on rubric %s", ErrNotFound, entityID, rubricID)
	}
	return out, nil
}
