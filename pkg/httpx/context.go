package httpx

import (
	"context"

	"github.com/ministrylearn/ministrylearn/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyClaims ctxKey = "claims"
)

// ClaimsFromContext returns the verified access token claims injected by
// AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (*jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(*jwtx.Claims)
	return c, ok
}

func rolesFromCtx(ctx context.Context) []string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.Roles
	}
	return nil
}
