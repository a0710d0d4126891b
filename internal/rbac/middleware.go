package rbac

import (
	"net/http"
)

var defaultChecker = NewChecker(nil)

// Require lets the request through when the caller's role grants perm.
func Require(perm string) func(http.Handler) http.Handler {
	return guard(func(role Role) bool { return defaultChecker.Has(role, perm) })
}

// RequireAny lets the request through when the role grants one of perms.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return guard(func(role Role) bool { return defaultChecker.Any(role, perms...) })
}

// guard answers 401 when no role was resolved for the request and 403 when
// the resolved role is not allowed.
func guard(allowed func(Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			switch {
			case role == "":
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			case !allowed(role):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
