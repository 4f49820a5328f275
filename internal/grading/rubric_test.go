package grading_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mind-engage/mindengage-assess/internal/grading"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestScoreRubricWeighted(t *testing.T) {
	criteria := []grading.Criterion{
		{ID: "a", MaxScore: d("10"), Weight: d("1")},
		{ID: "b", MaxScore: d("5"), Weight: d("1")},
	}
	res, err := grading.ScoreRubric(criteria, []grading.Awarded{
		{CriterionID: "a", Score: d("8")},
		{CriterionID: "b", Score: d("4")},
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !res.Percentage.Equal(d("80")) {
		t.Fatalf("percentage %s want 80", res.Percentage)
	}
	if !res.WeightedSum.Equal(d("12")) || !res.WeightedMax.Equal(d("15")) {
		t.Fatalf("sums %s/%s", res.WeightedSum, res.WeightedMax)
	}
}

func TestScoreRubricRoundsToCents(t *testing.T) {
	criteria := []grading.Criterion{
		{ID: "a", MaxScore: d("3"), Weight: d("2")},
		{ID: "b", MaxScore: d("3"), Weight: d("1")},
	}
	res, err := grading.ScoreRubric(criteria, []grading.Awarded{
		{CriterionID: "a", Score: d("1")},
		{CriterionID: "b", Score: d("1")},
	})
	if err != nil {
		t.Fatal(err)
	}
	// 3/9 = 33.333...
	if !res.Percentage.Equal(d("33.33")) {
		t.Fatalf("percentage %s want 33.33", res.Percentage)
	}
}

func TestScoreRubricErrors(t *testing.T) {
	criteria := []grading.Criterion{
		{ID: "a", MaxScore: d("10"), Weight: d("1")},
		{ID: "b", MaxScore: d("5"), Weight: d("1")},
	}
	cases := []struct {
		name    string
		awarded []grading.Awarded
		want    error
	}{
		{"missing item", []grading.Awarded{{CriterionID: "a", Score: d("1")}}, grading.ErrIncompleteRubric},
		{"unknown item", []grading.Awarded{{CriterionID: "a", Score: d("1")}, {CriterionID: "b", Score: d("1")}, {CriterionID: "z", Score: d("1")}}, grading.ErrIncompleteRubric},
		{"duplicate item", []grading.Awarded{{CriterionID: "a", Score: d("1")}, {CriterionID: "a", Score: d("2")}, {CriterionID: "b", Score: d("1")}}, grading.ErrIncompleteRubric},
		{"above max", []grading.Awarded{{CriterionID: "a", Score: d("11")}, {CriterionID: "b", Score: d("1")}}, grading.ErrScoreOutOfRange},
		{"negative", []grading.Awarded{{CriterionID: "a", Score: d("1")}, {CriterionID: "b", Score: d("-0.5")}}, grading.ErrScoreOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := grading.ScoreRubric(criteria, tc.awarded)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
		})
	}
}

func TestScoreRubricZeroWeights(t *testing.T) {
	criteria := []grading.Criterion{{ID: "a", MaxScore: d("4"), Weight: decimal.Zero}}
	res, err := grading.ScoreRubric(criteria, []grading.Awarded{{CriterionID: "a", Score: d("4")}})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Percentage.IsZero() {
		t.Fatalf("percentage %s want 0", res.Percentage)
	}
}

func TestPointsFromPercentage(t *testing.T) {
	if got := grading.PointsFromPercentage(d("80"), 5); got != 4 {
		t.Fatalf("got %v want 4", got)
	}
	if got := grading.PointsFromPercentage(d("33.33"), 3); got != 1 {
		t.Fatalf("got %v want 1", got)
	}
}
