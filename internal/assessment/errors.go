package assessment

import (
	"errors"

	"github.com/mind-engage/mindengage-assess/internal/grading"
)

// User-correctable outcomes. Anything else a Service method returns is a
// storage or dependency failure.
var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrNotEnrolled           = errors.New("not enrolled")
	ErrEnrollmentUnavailable = errors.New("enrollment check unavailable")
	ErrWindowClosed          = errors.New("quiz window closed")
	ErrAttemptLimitExceeded  = errors.New("attempt limit exceeded")
	ErrAttemptNotActive      = errors.New("attempt not active")
	ErrAttemptNotSubmitted   = errors.New("attempt not submitted")
	ErrQuestionNotFound      = errors.New("question not found")
	ErrQuizInUse             = errors.New("quiz has attempts in progress")
	ErrNotReviewable         = errors.New("question is not manually graded")
	ErrInvalidInput          = errors.New("invalid input")

	ErrIncompleteRubric = grading.ErrIncompleteRubric
	ErrScoreOutOfRange  = grading.ErrScoreOutOfRange
)
