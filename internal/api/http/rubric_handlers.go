package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mind-engage/mindengage-assess/internal/assessment"
	authmw "github.com/mind-engage/mindengage-assess/internal/auth/middleware"
	"github.com/mind-engage/mindengage-assess/internal/rubric"
)

type rubricScoreEntry struct {
	ItemID  string          `json:"item_id" validate:"required"`
	Score   decimal.Decimal `json:"score"`
	Comment string          `json:"comment"`
}

func scoreInputs(in []rubricScoreEntry) []assessment.RubricScoreInput {
	out := make([]assessment.RubricScoreInput, len(in))
	for i, s := range in {
		out[i] = assessment.RubricScoreInput{ItemID: s.ItemID, Score: s.Score, Comment: s.Comment}
	}
	return out
}

// POST /rubrics
func CreateRubricHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in rubric.Rubric
		if !decodeJSON(w, r, &in) {
			return
		}
		out, err := svc.CreateRubric(r.Context(), in, authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// GET /rubrics/{rubricID}
func GetRubricHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.GetRubric(r.Context(), chi.URLParam(r, "rubricID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type rubricScoresReq struct {
	EntityID string             `json:"entity_id" validate:"required"`
	Scores   []rubricScoreEntry `json:"scores" validate:"required,min=1,dive"`
}

// POST /rubrics/{rubricID}/scores
func SubmitRubricScoresHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rubricScoresReq
		if !decode(w, r, &req) {
			return
		}
		g, err := svc.SubmitRubricScore(r.Context(), chi.URLParam(r, "rubricID"), req.EntityID,
			authmw.SubjectFromContext(r.Context()), scoreInputs(req.Scores))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// GET /rubrics/{rubricID}/scores/{entityID}
func GetRubricScoresHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.GetRubricScores(r.Context(), chi.URLParam(r, "rubricID"), chi.URLParam(r, "entityID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
