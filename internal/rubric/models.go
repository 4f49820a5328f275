package rubric

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mind-engage/mindengage-assess/internal/grading"
)

type Rubric struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"` // assignment or question the rubric grades
	Title     string    `json:"title"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Items     []Item    `json:"items"`
}

type Item struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	MaxScore    decimal.Decimal `json:"max_score"`
	Weight      decimal.Decimal `json:"weight"`
	OrderIndex  int             `json:"order_index"`
}

type Score struct {
	EntityID string          `json:"entity_id"`
	ItemID   string          `json:"item_id"`
	Score    decimal.Decimal `json:"score"`
	Comment  string          `json:"comment,omitempty"`
	ScoredBy string          `json:"scored_by,omitempty"`
	ScoredAt time.Time       `json:"scored_at"`
}

// Grade is the stored rubric outcome for one graded entity.
type Grade struct {
	EntityID   string          `json:"entity_id"`
	RubricID   string          `json:"rubric_id"`
	Percentage decimal.Decimal `json:"percentage"`
	GradedBy   string          `json:"graded_by,omitempty"`
	GradedAt   time.Time       `json:"graded_at"`
}

// Criteria projects the rubric onto the scorer's view.
func (r Rubric) Criteria() []grading.Criterion {
	out := make([]grading.Criterion, len(r.Items))
	for i, it := range r.Items {
		out[i] = grading.Criterion{ID: it.ID, MaxScore: it.MaxScore, Weight: it.Weight}
	}
	return out
}

// Validate checks a rubric before it is stored.
func (r Rubric) Validate() error {
	if strings.TrimSpace(r.OwnerID) == "" {
		return fmt.Errorf("owner_id is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("rubric needs at least one item")
	}
	for i, it := range r.Items {
		if strings.TrimSpace(it.Description) == "" {
			return fmt.Errorf("items[%d].description is required", i)
		}
		if !it.MaxScore.IsPositive() {
			return fmt.Errorf("items[%d].max_score must be positive", i)
		}
		if it.Weight.IsNegative() {
			return fmt.Errorf("items[%d].weight must not be negative", i)
		}
	}
	return nil
}
