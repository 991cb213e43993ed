// Package handler exposes the marketplace usecases over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/usecase"
	authtypes "github.com/skilllance/skilllance-api/services/marketplace-service/pkg/types"
	"github.com/skilllance/skilllance-api/shared/middleware"
	"github.com/skilllance/skilllance-api/shared/validation"
)

const maxBodyBytes = 1 << 20

// Authenticator is the bearer-token middleware protecting a route.
type Authenticator func(http.Handler) http.Handler

// NewAuthenticator builds the bearer-token middleware backed by the auth usecase.
func NewAuthenticator(authUsecase usecase.AuthUsecase) Authenticator {
	return middleware.NewJWTMiddleware[*authtypes.UserClaims](authUsecase, writeAuthError)
}

// decoder reads JSON request bodies and validates them.
type decoder struct {
	validator *validation.Validator
}

// decode fills dst from the request body. It writes the error response and
// returns false when the body is malformed or invalid.
func (d decoder) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, usecase.Validation("Invalid request body", nil).Wrap(err))
		return false
	}

	return d.validate(w, r, dst)
}

func (d decoder) validate(w http.ResponseWriter, r *http.Request, v any) bool {
	err := d.validator.Struct(v)
	if err == nil {
		return true
	}

	var fields validation.FieldErrors
	if errors.As(err, &fields) {
		writeError(w, r, usecase.Validation("Validation failed", fields))
		return false
	}

	writeError(w, r, err)
	return false
}

// claimsFrom returns the verified claims stored by the bearer-token middleware.
func claimsFrom(r *http.Request) *authtypes.UserClaims {
	claims, _ := middleware.ClaimsFromContext[*authtypes.UserClaims](r.Context())
	return claims
}

// currentUserID returns the id of the signed-in user, or "" on unprotected routes.
func currentUserID(r *http.Request) string {
	if claims := claimsFrom(r); claims != nil {
		return claims.UserID
	}
	return ""
}

// queryInt64 parses an optional integer query parameter.
func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, usecase.Validation("Invalid query parameter", map[string]string{
			name: name + " must be a non-negative integer",
		})
	}
	return v, nil
}
