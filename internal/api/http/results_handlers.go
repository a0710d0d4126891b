package http

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/mind-engage/mcqexam/internal/export"
	"github.com/mind-engage/mcqexam/internal/results"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /results/mine
func MyResultsHandler(engine *results.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := requester(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		recs, err := engine.ListForStudent(r.Context(), req.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

// GET /exams/{examID}/results
func ExamResultsHandler(engine *results.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		er, ok := examResults(w, r, engine)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, er)
	}
}

// GET /exams/{examID}/results/export
func ExportExamResultsHandler(engine *results.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		er, ok := examResults(w, r, engine)
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := export.WriteExamResults(&buf, er); err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(er)))
		_, _ = w.Write(buf.Bytes())
	}
}

func examResults(w http.ResponseWriter, r *http.Request, engine *results.Engine) (results.ExamResults, bool) {
	req, ok := requester(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return results.ExamResults{}, false
	}
	examID, err := idParam(r, "examID")
	if err != nil {
		writeError(w, r, err)
		return results.ExamResults{}, false
	}
	er, err := engine.ListForExam(r.Context(), examID, req)
	if err != nil {
		writeError(w, r, err)
		return results.ExamResults{}, false
	}
	return er, true
}

// GET /results/{resultID}
func GetResultHandler(engine *results.Engine) http.HandlerFunc {
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
		rec, err := engine.Result(r.Context(), id, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// GET /results/{resultID}/review
func ReviewHandler(engine *results.Engine) http.HandlerFunc {
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
		p, err := engine.Review(r.Context(), id, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// DELETE /results/{resultID}
func DeleteResultHandler(engine *results.Engine) http.HandlerFunc {
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
		if err := engine.Delete(r.Context(), id, req); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
