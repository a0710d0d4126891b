package auth

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/mind-engage/mcqexam/internal/rbac"
	"github.com/mind-engage/mcqexam/internal/users"
)

// RoleSource returns the stored role of a user.
type RoleSource interface {
	Role(ctx context.Context, id int64) (rbac.Role, error)
}

// AttachRoleFromStore replaces the token's role with the stored one, so a
// demoted account loses access before its token expires.
// allowClaimFallback=true in dev; false in prod.
func AttachRoleFromStore(src RoleSource, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub, ok := rbac.SubjectFromContext(ctx)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			claimRole := rbac.RoleFromContext(ctx)

			role, err := src.Role(ctx, sub)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
				return
			case errors.Is(err, users.ErrNotFound):
			default:
				log.Printf("resolve role for user %d: %v", sub, err)
			}
			if allowClaimFallback && claimRole != "" {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}
