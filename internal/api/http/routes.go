package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/assessment"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

// MountAssessment registers the quiz, attempt and rubric routes. The router
// must already carry the auth middleware that sets subject and role.
func MountAssessment(r chi.Router, svc *assessment.Service) {
	r.With(rbac.Require(rbac.PermQuizCreate)).Post("/quizzes", CreateQuizHandler(svc))
	r.With(rbac.Require(rbac.PermQuizView)).Get("/courses/{courseID}/quizzes", ListQuizzesHandler(svc))
	r.With(rbac.Require(rbac.PermQuizView)).Get("/quizzes/{quizID}", GetQuizHandler(svc))
	r.With(rbac.Require(rbac.PermQuizCreate)).Put("/quizzes/{quizID}", UpdateQuizHandler(svc))
	r.With(rbac.Require(rbac.PermQuizCreate)).Delete("/quizzes/{quizID}", DeleteQuizHandler(svc))
	r.With(rbac.Require(rbac.PermAttemptViewAll)).Get("/quizzes/{quizID}/students", QuizStudentsHandler(svc))
	r.With(rbac.Require(rbac.PermQuizCreate)).Post("/quizzes/{quizID}/questions", AddQuestionHandler(svc))
	r.With(rbac.Require(rbac.PermQuizCreate)).Put("/quizzes/{quizID}/questions/order", ReorderQuestionsHandler(svc))
	r.With(rbac.Require(rbac.PermQuizCreate)).Put("/questions/{questionID}", UpdateQuestionHandler(svc))
	r.With(rbac.Require(rbac.PermQuizCreate)).Delete("/questions/{questionID}", DeleteQuestionHandler(svc))

	r.With(rbac.Require(rbac.PermAttemptCreate)).Post("/quizzes/{quizID}/attempts", StartAttemptHandler(svc))
	r.With(rbac.Require(rbac.PermAttemptSave)).Post("/attempts/{attemptID}/answers", RecordAnswerHandler(svc))
	r.With(rbac.Require(rbac.PermAttemptSubmit)).Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(svc))
	r.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).Get("/attempts", ListAttemptsHandler(svc))
	r.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).Get("/attempts/{attemptID}", GetAttemptHandler(svc))
	r.With(rbac.Require(rbac.PermAttemptGrade)).Post("/attempts/{attemptID}/answers/{questionID}/review", ReviewAnswerHandler(svc))

	r.With(rbac.Require(rbac.PermRubricCreate)).Post("/rubrics", CreateRubricHandler(svc))
	r.With(rbac.Require(rbac.PermRubricView)).Get("/rubrics/{rubricID}", GetRubricHandler(svc))
	r.With(rbac.Require(rbac.PermRubricGrade)).Post("/rubrics/{rubricID}/scores", SubmitRubricScoresHandler(svc))
	r.With(rbac.Require(rbac.PermRubricView)).Get("/rubrics/{rubricID}/scores/{entityID}", GetRubricScoresHandler(svc))
}
