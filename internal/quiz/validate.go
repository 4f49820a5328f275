package quiz

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so errors match the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError is a user-correctable problem with a quiz or question.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

// ValidateQuiz checks quiz-level fields and every question.
func ValidateQuiz(q Quiz) error {
	if err := structErr(validate.Struct(q)); err != nil {
		return err
	}
	if q.WindowStart != nil && q.WindowEnd != nil && !q.WindowStart.Before(*q.WindowEnd) {
		return invalid("window_end", "must be after window_start")
	}
	for i, qs := range q.Questions {
		if err := ValidateQuestion(qs); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return invalid(fmt.Sprintf("questions[%d].%s", i, ve.Field), ve.Reason)
			}
			return err
		}
	}
	return nil
}

// ValidateQuestion checks one question, including its type-specific rules.
func ValidateQuestion(q Question) error {
	if err := structErr(validate.Struct(q)); err != nil {
		return err
	}
	switch q.Type {
	case MultipleChoice:
		if len(q.Options) < 2 {
			return invalid("options", "multiple choice needs at least two options")
		}
		seen := make(map[string]struct{}, len(q.Options))
		for _, o := range q.Options {
			if o == "" {
				return invalid("options", "empty option")
			}
			if _, dup := seen[o]; dup {
				return invalid("options", "duplicate option "+o)
			}
			seen[o] = struct{}{}
		}
		if !slices.Contains(q.Options, q.CorrectAnswer) {
			return invalid("correct_answer", "must be one of the options")
		}
	case TrueFalse:
		if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
			return invalid("correct_answer", `must be "true" or "false"`)
		}
	}
	return nil
}

func structErr(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return invalid(fe.Field(), fe.Tag())
	}
	return err
}
