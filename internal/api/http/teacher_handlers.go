package http

import (
	"net/http"

	"github.com/mind-engage/mcqexam/internal/exam"
	"github.com/mind-engage/mcqexam/internal/rbac"
	"github.com/mind-engage/mcqexam/internal/results"
)

// POST /questions
func CreateQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := requester(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var q exam.Question
		if err := decode(r, &q); err != nil {
			writeError(w, r, err)
			return
		}
		q.ID = 0
		q.CreatedBy = req.ID
		if err := store.CreateQuestion(r.Context(), &q); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// PUT /exams creates an exam when id is 0, otherwise replaces it. Only the
// owner or an admin may replace an exam.
func PutExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := requester(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var e exam.Exam
		if err := decode(r, &e); err != nil {
			writeError(w, r, err)
			return
		}
		status := http.StatusCreated
		if e.ID == 0 {
			e.OwnerID = req.ID
		} else {
			cur, err := store.GetExamAdmin(r.Context(), e.ID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if !ownsExam(req, cur) {
				writeError(w, r, results.ErrForbidden)
				return
			}
			e.OwnerID = cur.OwnerID
			status = http.StatusOK
		}
		if err := store.PutExam(r.Context(), &e); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, status, e)
	}
}

// GET /exams/{examID} never includes answer keys.
func GetExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "examID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		v, err := store.GetExam(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// DELETE /exams/{examID}
func DeleteExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := requester(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		id, err := idParam(r, "examID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		cur, err := store.GetExamAdmin(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !ownsExam(req, cur) {
			writeError(w, r, results.ErrForbidden)
			return
		}
		if err := store.DeleteExam(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ownsExam(req results.Requester, e exam.Exam) bool {
	return req.Role == rbac.RoleAdmin || e.OwnerID == req.ID
}
