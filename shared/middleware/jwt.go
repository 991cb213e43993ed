package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/skilllance/skilllance-api/shared/utilities"
)

type contextKey struct{}

var userClaimsKey = contextKey{}

// ErrMissingBearer is passed to the error writer when no usable bearer token is present.
var ErrMissingBearer = errors.New("missing or malformed authorization header")

// TokenVerifier turns a raw bearer token into claims.
type TokenVerifier[C any] interface {
	VerifyToken(ctx context.Context, token string) (C, error)
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// NewJWTMiddleware rejects requests without a valid bearer token and stores the verified
// claims in the request context.
func NewJWTMiddleware[C any](verifier TokenVerifier[C], onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := utilities.BearerToken(r)
			if !ok {
				onError(w, r, ErrMissingBearer)
				return
			}

			claims, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				onError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), userClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by NewJWTMiddleware.
func ClaimsFromContext[C any](ctx context.Context) (C, bool) {
	claims, ok := ctx.Value(userClaimsKey).(C)
	return claims, ok
}

// WithClaims stores claims the way NewJWTMiddleware does.
func WithClaims[C any](ctx context.Context, claims C) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}
