package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-assess/internal/assessment"
	"github.com/mind-engage/mindengage-assess/internal/quiz"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// writeError maps service errors onto status codes. Unknown errors are logged
// and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *quiz.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{Code: "invalid_input", Message: ve.Error(), Field: ve.Field}})
		return
	}
	for _, m := range errorMap {
		if errors.Is(err, m.err) {
			writeProblem(w, m.status, m.code, err.Error())
			return
		}
	}
	slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	writeProblem(w, http.StatusInternalServerError, "internal", "internal error")
}

var errorMap = []struct {
	err    error
	status int
	code   string
}{
	{assessment.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{assessment.ErrForbidden, http.StatusForbidden, "forbidden"},
	{assessment.ErrNotEnrolled, http.StatusForbidden, "not_enrolled"},
	{assessment.ErrWindowClosed, http.StatusForbidden, "window_closed"},
	{assessment.ErrQuestionNotFound, http.StatusNotFound, "question_not_found"},
	{assessment.ErrNotFound, http.StatusNotFound, "not_found"},
	{assessment.ErrAttemptLimitExceeded, http.StatusConflict, "attempt_limit_exceeded"},
	{assessment.ErrAttemptNotActive, http.StatusConflict, "attempt_not_active"},
	{assessment.ErrAttemptNotSubmitted, http.StatusConflict, "attempt_not_submitted"},
	{assessment.ErrQuizInUse, http.StatusConflict, "quiz_in_use"},
	{assessment.ErrNotReviewable, http.StatusUnprocessableEntity, "not_reviewable"},
	{assessment.ErrIncompleteRubric, http.StatusUnprocessableEntity, "incomplete_rubric"},
	{assessment.ErrScoreOutOfRange, http.StatusUnprocessableEntity, "score_out_of_range"},
	{assessment.ErrEnrollmentUnavailable, http.StatusServiceUnavailable, "enrollment_unavailable"},
}

// decodeJSON reads a JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_input", "bad json: "+err.Error())
		return false
	}
	return true
}

// decode is decodeJSON followed by the struct's validate tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decodeJSON(w, r, dst) {
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
				Code:    "invalid_input",
				Message: fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()),
				Field:   fe.Field(),
			}})
			return false
		}
		writeProblem(w, http.StatusBadRequest, "invalid_input", err.Error())
		return false
	}
	return true
}

func parseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
