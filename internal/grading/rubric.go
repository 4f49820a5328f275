package grading

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrIncompleteRubric = errors.New("incomplete rubric")
	ErrScoreOutOfRange  = errors.New("score out of range")
)

var hundred = decimal.NewFromInt(100)

// Criterion is one rubric item as seen by the scorer.
type Criterion struct {
	ID       string          `json:"id"`
	MaxScore decimal.Decimal `json:"max_score"`
	Weight   decimal.Decimal `json:"weight"`
}

// Awarded is the score given for one criterion.
type Awarded struct {
	CriterionID string          `json:"item_id"`
	Score       decimal.Decimal `json:"score"`
}

type RubricResult struct {
	WeightedSum decimal.Decimal `json:"weighted_sum"`
	WeightedMax decimal.Decimal `json:"weighted_max"`
	Percentage  decimal.Decimal `json:"percentage"`
}

// ScoreRubric normalises awarded scores to a percentage rounded to 0.01.
// Every criterion must be scored exactly once and within [0, max]. When all
// weights are zero the percentage is 0.
func ScoreRubric(criteria []Criterion, awarded []Awarded) (RubricResult, error) {
	byID := make(map[string]decimal.Decimal, len(awarded))
	for _, a := range awarded {
		if _, dup := byID[a.CriterionID]; dup {
			return RubricResult{}, fmt.Errorf("%w: item %s scored twice", ErrIncompleteRubric, a.CriterionID)
		}
		byID[a.CriterionID] = a.Score
	}

	known := make(map[string]struct{}, len(criteria))
	sum, max := decimal.Zero, decimal.Zero
	for _, c := range criteria {
		known[c.ID] = struct{}{}
		s, ok := byID[c.ID]
		if !ok {
			return RubricResult{}, fmt.Errorf("%w: item %s not scored", ErrIncompleteRubric, c.ID)
		}
		if s.IsNegative() || s.GreaterThan(c.MaxScore) {
			return RubricResult{}, fmt.Errorf("%w: item %s score %s not in [0, %s]", ErrScoreOutOfRange, c.ID, s, c.MaxScore)
		}
		sum = sum.Add(s.Mul(c.Weight))
		max = max.Add(c.MaxScore.Mul(c.Weight))
	}
	for id := range byID {
		if _, ok := known[id]; !ok {
			return RubricResult{}, fmt.Errorf("%w: unknown item %s", ErrIncompleteRubric, id)
		}
	}

	pct := decimal.Zero
	if max.IsPositive() {
		pct = sum.Div(max).Mul(hundred).Round(2)
	}
	return RubricResult{WeightedSum: sum, WeightedMax: max, Percentage: pct}, nil
}

// PointsFromPercentage scales a rubric percentage onto a question worth points.
func PointsFromPercentage(pct decimal.Decimal, points float64) float64 {
	return pct.Mul(decimal.NewFromFloat(points)).Div(hundred).Round(2).InexactFloat64()
}
