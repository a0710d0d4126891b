package http

import (
	"net/http"

	"github.com/mind-engage/mcqexam/internal/rbac"
	"github.com/mind-engage/mcqexam/internal/users"
)

type updateUserRoleReq struct {
	Role string `json:"role" validate:"required"`
}

// PATCH /users/{userID}/role
func AdminUpdateUserRoleHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "userID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req updateUserRoleReq
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		role, err := rbac.ParseRole(req.Role)
		if err != nil {
			http.Error(w, "invalid role", http.StatusBadRequest)
			return
		}
		if err := store.SetRole(r.Context(), id, role); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
