package assessment

import (
	"context"
	"sort"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/attempt"
)

// StudentStatus sums up one learner's attempts on a quiz. Best* come from
// the submitted attempt with the highest percentage.
type StudentStatus struct {
	UserID          string     `json:"user_id"`
	Attempts        int        `json:"attempts"`
	Submitted       int        `json:"submitted"`
	InProgress      bool       `json:"in_progress"`
	BestScore       *float64   `json:"best_score,omitempty"`
	BestPercentage  *float64   `json:"best_percentage,omitempty"`
	Passed          *bool      `json:"passed,omitempty"`
	LastSubmittedAt *time.Time `json:"last_submitted_at,omitempty"`
}

const rosterPage = 200

// QuizStudentStatus reports every learner who has started the quiz, ordered
// by user id.
func (s *Service) QuizStudentStatus(ctx context.Context, quizID string) ([]StudentStatus, error) {
	if _, err := s.loadQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	byUser := map[string]*StudentStatus{}
	for offset := 0; ; offset += rosterPage {
		page, err := s.ledger.List(ctx, attempt.ListFilter{QuizID: quizID, Limit: rosterPage, Offset: offset})
		if err != nil {
			return nil, err
		}
		for _, a := range page {
			st, ok := byUser[a.UserID]
			if !ok {
				st = &StudentStatus{UserID: a.UserID}
				byUser[a.UserID] = st
			}
			st.add(a)
		}
		if len(page) < rosterPage {
			break
		}
	}

	out := make([]StudentStatus, 0, len(byUser))
	for _, st := range byUser {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (st *StudentStatus) add(a attempt.Attempt) {
	st.Attempts++
	if a.Status == attempt.StatusInProgress {
		st.InProgress = true
		return
	}
	st.Submitted++
	if a.SubmittedAt != nil && (st.LastSubmittedAt == nil || a.SubmittedAt.After(*st.LastSubmittedAt)) {
		at := *a.SubmittedAt
		st.LastSubmittedAt = &at
	}
	if st.BestPercentage == nil || a.Percentage > *st.BestPercentage {
		score, pct, passed := a.Score, a.Percentage, a.Passed
		st.BestScore, st.BestPercentage, st.Passed = &score, &pct, &passed
	}
}
