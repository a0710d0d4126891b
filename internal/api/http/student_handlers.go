package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/mind-engage/mcqexam/internal/results"
)

type startReq struct {
	Password string `json:"password,omitempty"`
}

type submitReq struct {
	Answers  []results.Answer `json:"answers" validate:"dive"`
	Password string           `json:"password,omitempty"`
}

// POST /exams/{examID}/start
// Body is optional; it only carries the exam password.
func StartAttemptHandler(engine *results.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := requester(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		examID, err := idParam(r, "examID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var body startReq
		if err := decode(r, &body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, r, err)
			return
		}
		att, err := engine.StartAttempt(r.Context(), examID, req.ID, body.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, att)
	}
}

// POST /exams/{examID}/submit
func SubmitHandler(engine *results.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := requester(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		examID, err := idParam(r, "examID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var body submitReq
		if err := decode(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		sum, err := engine.Submit(r.Context(), results.Submission{
			ExamID:    examID,
			StudentID: req.ID,
			Answers:   body.Answers,
			Password:  body.Password,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, sum)
	}
}
