package http

import (
	"errors"
	"net/http"

	"github.com/mind-engage/mcqexam/internal/rbac"
	"github.com/mind-engage/mcqexam/internal/users"
)

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" validate:"required"`
}

// POST /users/change-password
func ChangePasswordHandler(store *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := rbac.SubjectFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req changePasswordReq
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		err := store.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
		if errors.Is(err, users.ErrInvalidCredentials) {
			http.Error(w, "incorrect old password", http.StatusForbidden)
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
