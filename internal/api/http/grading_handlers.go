package http

import (
	"net/http"

	"github.com/mind-engage/mcqexam/internal/results"
)

type overrideScoreReq struct {
	Score *float64 `json:"score" validate:"required"`
}

// PATCH /results/{resultID}/score
func OverrideScoreHandler(engine *results.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := requester(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		id, err := idParam(r, "resultID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var body overrideScoreReq
		if err := decode(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		rec, err := engine.OverrideScore(r.Context(), id, *body.Score, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}
