package httpx

import (
	"net/http"
	"slices"
)

// RequireAnyRole the caller must hold at least one of the provided roles.
func RequireAnyRole(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, have := range rolesFromCtx(r.Context()) {
				if slices.Contains(required, have) {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteError(w, http.StatusForbidden, "insufficient role")
		})
	}
}
