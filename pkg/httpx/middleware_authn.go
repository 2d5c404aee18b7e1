package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ministrylearn/ministrylearn/pkg/jwtx"
	"github.com/ministrylearn/ministrylearn/pkg/slogx"
)

// Verifier checks a bearer token and returns its claims.
type Verifier interface {
	Verify(token string) (*jwtx.Claims, error)
}

func AuthnMiddleware(v Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				desc := "token verification failed"
				if errors.Is(err, jwtx.ErrExpired) {
					desc = "token expired"
				}
				log.Debug("jwt verify failed", "err", err)
				writeBearerError(w, desc)
				return
			}

			// Inject into context for downstream handlers.
			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return raw, raw != ""
}

func contextWithAuth(ctx context.Context, c *jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// RFC 6750-compliant error response for bearer auth, with the JSON message
// body the LMS API uses.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, desc)
}
