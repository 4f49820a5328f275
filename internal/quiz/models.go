package quiz

import (
	"strings"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/grading"
)

type QuestionType string

const (
	MultipleChoice QuestionType = grading.TypeMultipleChoice
	TrueFalse      QuestionType = grading.TypeTrueFalse
	ShortAnswer    QuestionType = grading.TypeShortAnswer
)

type Question struct {
	ID            string       `json:"id"`
	QuizID        string       `json:"quiz_id"`
	Type          QuestionType `json:"type" validate:"required,oneof=multiple_choice true_false short_answer"`
	Prompt        string       `json:"prompt" validate:"required"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"` // hidden from students
	Points        float64      `json:"points" validate:"gt=0"`
	OrderIndex    int          `json:"order_index"`
	Explanation   string       `json:"explanation,omitempty"` // hidden from students
}

type Quiz struct {
	ID              string     `json:"id"`
	CourseID        string     `json:"course_id" validate:"required"`
	Title           string     `json:"title" validate:"required,max=255"`
	Description     string     `json:"description,omitempty"`
	WindowStart     *time.Time `json:"window_start,omitempty"`
	WindowEnd       *time.Time `json:"window_end,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty" validate:"gte=0"` // 0 = untimed
	PassingScore    float64    `json:"passing_score" validate:"gte=0,lte=100"`
	MaxAttempts     int        `json:"max_attempts" validate:"gte=1"`
	CreatedBy       string     `json:"created_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Questions       []Question `json:"questions"`
}

// Summary is the listing form of a quiz, without questions.
type Summary struct {
	ID              string     `json:"id"`
	CourseID        string     `json:"course_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	WindowStart     *time.Time `json:"window_start,omitempty"`
	WindowEnd       *time.Time `json:"window_end,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	PassingScore    float64    `json:"passing_score"`
	MaxAttempts     int        `json:"max_attempts"`
	CreatedBy       string     `json:"created_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	QuestionCount   int        `json:"question_count"`
	TotalPoints     float64    `json:"total_points"`
}

func (q Quiz) Summary() Summary {
	return Summary{
		ID:              q.ID,
		CourseID:        q.CourseID,
		Title:           q.Title,
		Description:     q.Description,
		WindowStart:     q.WindowStart,
		WindowEnd:       q.WindowEnd,
		DurationMinutes: q.DurationMinutes,
		PassingScore:    q.PassingScore,
		MaxAttempts:     q.MaxAttempts,
		CreatedBy:       q.CreatedBy,
		CreatedAt:       q.CreatedAt,
		QuestionCount:   len(q.Questions),
		TotalPoints:     q.TotalPoints(),
	}
}

// TotalPoints is the denominator for every attempt on the quiz.
func (q Quiz) TotalPoints() float64 {
	total := 0.0
	for _, qs := range q.Questions {
		total += qs.Points
	}
	return total
}

func (q Quiz) Question(id string) (Question, bool) {
	for _, qs := range q.Questions {
		if qs.ID == id {
			return qs, true
		}
	}
	return Question{}, false
}

// OpenAt reports whether now falls inside the availability window.
// Missing bounds are open-ended.
func (q Quiz) OpenAt(now time.Time) bool {
	if q.WindowStart != nil && now.Before(*q.WindowStart) {
		return false
	}
	if q.WindowEnd != nil && now.After(*q.WindowEnd) {
		return false
	}
	return true
}

// DeadlineFrom is the earliest of window_end and now+duration, nil when
// neither applies.
func (q Quiz) DeadlineFrom(now time.Time) *time.Time {
	var dl *time.Time
	if q.DurationMinutes > 0 {
		t := now.Add(time.Duration(q.DurationMinutes) * time.Minute)
		dl = &t
	}
	if q.WindowEnd != nil && (dl == nil || q.WindowEnd.Before(*dl)) {
		t := *q.WindowEnd
		dl = &t
	}
	return dl
}

// StudentView strips answer keys and explanations.
func (q Quiz) StudentView() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, qs := range q.Questions {
		qs.CorrectAnswer = ""
		qs.Explanation = ""
		out.Questions[i] = qs
	}
	return out
}

// GradingQuestions projects the quiz onto the grader's view.
func (q Quiz) GradingQuestions() []grading.Q {
	out := make([]grading.Q, 0, len(q.Questions))
	for _, qs := range q.Questions {
		out = append(out, grading.Q{ID: qs.ID, Type: string(qs.Type), Points: qs.Points, AnswerKey: qs.CorrectAnswer})
	}
	return out
}

// Normalize trims free text and canonicalises type-specific fields.
func (q *Question) Normalize() {
	q.Prompt = strings.TrimSpace(q.Prompt)
	q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
	switch q.Type {
	case MultipleChoice:
		for i := range q.Options {
			q.Options[i] = strings.TrimSpace(q.Options[i])
		}
	case TrueFalse:
		q.CorrectAnswer = strings.ToLower(q.CorrectAnswer)
		q.Options = []string{"true", "false"}
	default:
		q.Options = nil
	}
}
