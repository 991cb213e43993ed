package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/usecase"
	"github.com/skilllance/skilllance-api/shared/middleware"
	"github.com/skilllance/skilllance-api/shared/response"
)

// statusFor maps an error kind to its HTTP status code.
func statusFor(kind usecase.Kind) int {
	switch kind {
	case usecase.KindValidation,
		usecase.KindUnsupportedDomain,
		usecase.KindInvalidEmail,
		usecase.KindOtpNotFound,
		usecase.KindOtpExpired,
		usecase.KindOtpMismatch:
		return http.StatusBadRequest
	case usecase.KindInvalidToken:
		return http.StatusUnauthorized
	case usecase.KindForbidden:
		return http.StatusForbidden
	case usecase.KindNotFound:
		return http.StatusNotFound
	case usecase.KindConflict, usecase.KindInvalidState:
		return http.StatusConflict
	case usecase.KindRateLimited, usecase.KindOtpExhausted:
		return http.StatusTooManyRequests
	case usecase.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as an error envelope. Unclassified errors are logged and
// answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ue *usecase.Error
	if !errors.As(err, &ue) || statusFor(ue.Kind) == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		response.Error(w, http.StatusInternalServerError, string(usecase.KindInternal), usecase.ErrInternal.Message, nil)
		return
	}

	status := statusFor(ue.Kind)
	if status == http.StatusServiceUnavailable {
		hlog.FromRequest(r).Error().Err(err).Msg("dependency unavailable")
	} else {
		hlog.FromRequest(r).Debug().Err(err).Str("kind", string(ue.Kind)).Msg("request rejected")
	}

	if retryAfter, ok := ue.Details["retryAfter"]; ok {
		w.Header().Set("Retry-After", fmt.Sprint(retryAfter))
	}

	response.Error(w, status, string(ue.Kind), ue.Message, ue.Details)
}

// writeAuthError renders a failure from the bearer-token middleware.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, middleware.ErrMissingBearer) {
		response.Error(w, http.StatusUnauthorized, string(usecase.KindInvalidToken), "Access token required", nil)
		return
	}
	writeError(w, r, err)
}
