package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mind-engage/mcqexam/internal/exam"
	"github.com/mind-engage/mcqexam/internal/rbac"
)

// GET /exams?q=&limit=&offset=
// Teachers see the exams they own; students and admins see every exam.
func ListExamsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := requester(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		opts := exam.ListOpts{
			Q:      strings.TrimSpace(r.URL.Query().Get("q")),
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		if req.Role == rbac.RoleTeacher {
			opts.OwnerID = req.ID
		}
		list, err := store.ListExams(r.Context(), opts)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
