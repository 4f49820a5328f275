package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/assessment"
	"github.com/mind-engage/mindengage-assess/internal/attempt"
	authmw "github.com/mind-engage/mindengage-assess/internal/auth/middleware"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

// POST /quizzes/{quizID}/attempts
// Returns 201 for a new attempt and 200 when the open one is resumed.
func StartAttemptHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		v, err := svc.StartAttempt(r.Context(), chi.URLParam(r, "quizID"), sub)
		if err != nil {
			writeError(w, r, err)
			return
		}
		status := http.StatusOK
		if v.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, v)
	}
}

type answerReq struct {
	QuestionID string `json:"question_id" validate:"required"`
	AnswerText string `json:"answer_text"`
}

// POST /attempts/{attemptID}/answers
func RecordAnswerHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerReq
		if !decode(w, r, &req) {
			return
		}
		sub := authmw.SubjectFromContext(r.Context())
		ans, err := svc.RecordAnswer(r.Context(), chi.URLParam(r, "attemptID"), sub, req.QuestionID, req.AnswerText)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ans)
	}
}

// POST /attempts/{attemptID}/submit
func SubmitAttemptHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		v, err := svc.SubmitAttempt(r.Context(), chi.URLParam(r, "attemptID"), sub)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// GET /attempts/{attemptID}
// Without attempt:view-all the caller must own the attempt.
func GetAttemptHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.GetAttempt(r.Context(), chi.URLParam(r, "attemptID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !rbac.Allowed(r, rbac.PermAttemptViewAll) && v.UserID != authmw.SubjectFromContext(r.Context()) {
			writeError(w, r, assessment.ErrForbidden)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// GET /attempts?quiz_id=...&user_id=...&status=...&limit=50&offset=0
// Callers without attempt:view-all only ever see their own attempts.
func ListAttemptsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := attempt.ListFilter{
			QuizID: strings.TrimSpace(q.Get("quiz_id")),
			UserID: strings.TrimSpace(q.Get("user_id")),
			Status: attempt.Status(strings.TrimSpace(q.Get("status"))),
			Limit:  parseIntDefault(q.Get("limit"), 50),
			Offset: parseIntDefault(q.Get("offset"), 0),
		}
		if f.Status != "" && f.Status != attempt.StatusInProgress && f.Status != attempt.StatusSubmitted {
			writeProblem(w, http.StatusBadRequest, "invalid_input", "status must be in_progress or submitted")
			return
		}
		if !rbac.Allowed(r, rbac.PermAttemptViewAll) {
			f.UserID = authmw.SubjectFromContext(r.Context())
		}
		list, err := svc.ListAttempts(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type reviewReq struct {
	Points   *float64           `json:"points" validate:"omitempty,gte=0"`
	RubricID string             `json:"rubric_id" validate:"required_without=Points"`
	Scores   []rubricScoreEntry `json:"scores" validate:"required_with=RubricID,dive"`
}

// POST /attempts/{attemptID}/answers/{questionID}/review
func ReviewAnswerHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reviewReq
		if !decode(w, r, &req) {
			return
		}
		v, err := svc.ReviewAnswer(r.Context(), chi.URLParam(r, "attemptID"), chi.URLParam(r, "questionID"),
			assessment.ReviewInput{
				Points:   req.Points,
				RubricID: req.RubricID,
				Scores:   scoreInputs(req.Scores),
				Reviewer: authmw.SubjectFromContext(r.Context()),
			})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}
