package grading

import (
	"strings"
)

// Question types understood by the built-in strategies.
const (
	TypeMultipleChoice = "multiple_choice"
	TypeTrueFalse      = "true_false"
	TypeShortAnswer    = "short_answer"
)

// Q is the slice of a question the grader needs.
type Q struct {
	ID        string
	Type      string
	Points    float64
	AnswerKey string
}

// Result is the outcome of grading one question.
type Result struct {
	QuestionID  string
	Answered    bool
	IsCorrect   bool
	AutoPoints  float64 // points awarded automatically
	MaxPoints   float64 // the question's points, always counted in the total
	NeedsManual bool    // answered short answer awaiting review
}

// Strategy grades one non-empty response.
type Strategy interface {
	Grade(q Q, response string) Result
}

// Grader grades a whole attempt. Implementations are pure.
type Grader interface {
	Grade(questions []Q, responses map[string]string) []Result
}

type defaultGrader struct {
	strategies map[string]Strategy
}

// NewDefaultGrader installs the built-in strategies.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			TypeMultipleChoice: exactChoiceStrategy{},
			TypeTrueFalse:      booleanStrategy{},
			TypeShortAnswer:    manualStrategy{},
		},
	}
}

// Grade returns one Result per question, in question order. Questions with no
// response, or a blank one, score zero whatever their type.
func (g *defaultGrader) Grade(questions []Q, responses map[string]string) []Result {
	out := make([]Result, 0, len(questions))
	for _, q := range questions {
		resp, ok := responses[q.ID]
		if !ok || strings.TrimSpace(resp) == "" {
			out = append(out, Result{QuestionID: q.ID, MaxPoints: q.Points})
			continue
		}
		s, found := g.strategies[q.Type]
		if !found {
			s = manualStrategy{}
		}
		res := s.Grade(q, resp)
		res.QuestionID = q.ID
		res.Answered = true
		res.MaxPoints = q.Points
		out = append(out, res)
	}
	return out
}

// --- Strategies ---

type exactChoiceStrategy struct{}

func (exactChoiceStrategy) Grade(q Q, response string) Result {
	if strings.TrimSpace(response) == strings.TrimSpace(q.AnswerKey) {
		return Result{IsCorrect: true, AutoPoints: q.Points}
	}
	return Result{}
}

type booleanStrategy struct{}

func (booleanStrategy) Grade(q Q, response string) Result {
	if strings.EqualFold(strings.TrimSpace(response), strings.TrimSpace(q.AnswerKey)) {
		return Result{IsCorrect: true, AutoPoints: q.Points}
	}
	return Result{}
}

type manualStrategy struct{}

func (manualStrategy) Grade(Q, string) Result {
	return Result{NeedsManual: true}
}

// Summary is the attempt-level tally.
type Summary struct {
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
	Pending    int     `json:"pending"`
}

// Tally totals results against the passing threshold (0-100).
func Tally(results []Result, passingScore float64) Summary {
	var score, max float64
	pending := 0
	for _, r := range results {
		score += r.AutoPoints
		max += r.MaxPoints
		if r.NeedsManual {
			pending++
		}
	}
	s := Summarize(score, max, passingScore)
	s.Pending = pending
	return s
}

// Summarize derives percentage and pass state from raw points.
// A zero total yields 0%.
func Summarize(score, max, passingScore float64) Summary {
	pct := 0.0
	if max > 0 {
		pct = score / max * 100
	}
	return Summary{Score: score, MaxScore: max, Percentage: pct, Passed: pct >= passingScore}
}
