package rbac

import (
	"encoding/json"
	"net/http"
)

// Allowed reports whether the request's role carries perm.
func Allowed(r *http.Request, perm string) bool {
	return DefaultPolicy.Allows(RoleFromContext(r.Context()), perm)
}

// Require enforces a single permission.
func Require(perm string) func(http.Handler) http.Handler {
	return guard(perm)
}

// RequireAny enforces that the role has at least one of the permissions.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return guard(perms...)
}

func guard(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !DefaultPolicy.Allows(RoleFromContext(r.Context()), perms...) {
				deny(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "forbidden", "message": "role lacks permission"},
	})
}
