package auth

import (
	"context"
	"net/http"
	"strings"

	"pocabinder/internal/apperr"
	"pocabinder/internal/httpx"
)

type ctxKey int

const claimsKey ctxKey = 1

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// UserID returns the authenticated user's id, or "" outside Middleware.
func UserID(ctx context.Context) string {
	c, _ := ClaimsFromContext(ctx)
	return c.Subject
}

// Middleware rejects requests without a valid bearer token.
func Middleware(j JWT) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerToken(r.Header.Get("Authorization"))
			if tok == "" {
				httpx.WriteError(w, r, nil, apperr.Unauthorized("missing bearer token"))
				return
			}
			claims, err := j.Verify(tok)
			if err != nil {
				httpx.WriteError(w, r, nil, apperr.Unauthorized("invalid token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(v string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(v), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
