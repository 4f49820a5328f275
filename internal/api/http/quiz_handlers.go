package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/assessment"
	authmw "github.com/mind-engage/mindengage-assess/internal/auth/middleware"
	"github.com/mind-engage/mindengage-assess/internal/quiz"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

// POST /quizzes
func CreateQuizHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Quiz
		if !decodeJSON(w, r, &q) {
			return
		}
		out, err := svc.CreateQuiz(r.Context(), q, authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// GET /quizzes/{quizID}
// Answer keys are only included for roles with quiz:view-answers.
func GetQuizHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "quizID"))
		q, err := svc.GetQuiz(r.Context(), id, rbac.Allowed(r, rbac.PermQuizViewAnswers))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// GET /courses/{courseID}/quizzes
// Learners only see courses they are enrolled in.
func ListQuizzesHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner := ""
		if !rbac.Allowed(r, rbac.PermQuizViewAnswers) {
			learner = authmw.SubjectFromContext(r.Context())
		}
		list, err := svc.ListQuizzes(r.Context(), strings.TrimSpace(chi.URLParam(r, "courseID")), learner)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// PUT /quizzes/{quizID}
func UpdateQuizHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Quiz
		if !decodeJSON(w, r, &q) {
			return
		}
		out, err := svc.UpdateQuiz(r.Context(), chi.URLParam(r, "quizID"), q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// DELETE /quizzes/{quizID}
func DeleteQuizHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteQuiz(r.Context(), chi.URLParam(r, "quizID")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /quizzes/{quizID}/students
func QuizStudentsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.QuizStudentStatus(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /quizzes/{quizID}/questions
func AddQuestionHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Question
		if !decodeJSON(w, r, &q) {
			return
		}
		out, err := svc.AddQuestion(r.Context(), chi.URLParam(r, "quizID"), q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// PUT /questions/{questionID}
func UpdateQuestionHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Question
		if !decodeJSON(w, r, &q) {
			return
		}
		out, err := svc.UpdateQuestion(r.Context(), chi.URLParam(r, "questionID"), q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// DELETE /questions/{questionID}
func DeleteQuestionHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteQuestion(r.Context(), chi.URLParam(r, "questionID")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type reorderReq struct {
	QuestionIDs []string `json:"question_ids" validate:"required,min=1,dive,required"`
}

// PUT /quizzes/{quizID}/questions/order
func ReorderQuestionsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reorderReq
		if !decode(w, r, &req) {
			return
		}
		id := chi.URLParam(r, "quizID")
		if err := svc.ReorderQuestions(r.Context(), id, req.QuestionIDs); err != nil {
			writeError(w, r, err)
			return
		}
		q, err := svc.GetQuiz(r.Context(), id, true)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}
