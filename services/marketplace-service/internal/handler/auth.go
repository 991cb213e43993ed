package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/payload"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/usecase"
	"github.com/skilllance/skilllance-api/shared/response"
	"github.com/skilllance/skilllance-api/shared/utilities"
	"github.com/skilllance/skilllance-api/shared/validation"
)

type AuthHandler struct {
	decoder
	authUsecase      usecase.AuthUsecase
	magicLinkUsecase usecase.MagicLinkUsecase
	authenticate     Authenticator
}

func NewAuthHandler(
	authUsecase usecase.AuthUsecase,
	magicLinkUsecase usecase.MagicLinkUsecase,
	validator *validation.Validator,
) *AuthHandler {
	return &AuthHandler{
		decoder:          decoder{validator: validator},
		authUsecase:      authUsecase,
		magicLinkUsecase: magicLinkUsecase,
		authenticate:     NewAuthenticator(authUsecase),
	}
}

// Routes returns the auth router. It is mounted under more than one prefix.
func (h *AuthHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/send-otp", h.SendOTP)
	r.Post("/verify-otp", h.VerifyOTP)
	r.Post("/send-magic-link", h.SendMagicLink)
	r.Post("/verify-magic-link", h.VerifyMagicLink)
	r.Post("/google", h.GoogleSignIn)
	r.Post("/refresh-token", h.RefreshToken)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/verify-token", h.VerifyToken)
		r.Get("/me", h.Me)
		r.Post("/logout", h.Logout)
	})

	return r
}

func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req payload.SendOTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	dispatch, err := h.authUsecase.SendOTP(r.Context(), usecase.SendCodeParams{
		Email:     req.Email,
		IPAddress: utilities.ClientIP(r),
		UserAgent: utilities.UserAgent(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, payload.SendOTPResponse{
		Success:     true,
		Message:     "OTP sent to your college email",
		Institution: dispatch.Institution,
		ExpiresIn:   dispatch.ExpiresIn,
	})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req payload.VerifyOTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.authUsecase.VerifyOTP(r.Context(), usecase.VerifyOTPParams{
		Email:     req.Email,
		Code:      req.OTP,
		IPAddress: utilities.ClientIP(r),
		UserAgent: utilities.UserAgent(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Login successful", sessionData(session))
}

func (h *AuthHandler) SendMagicLink(w http.ResponseWriter, r *http.Request) {
	var req payload.SendMagicLinkRequest
	if !h.decode(w, r, &req) {
		return
	}

	dispatch, err := h.magicLinkUsecase.SendMagicLink(r.Context(), usecase.SendCodeParams{
		Email:     req.Email,
		IPAddress: utilities.ClientIP(r),
		UserAgent: utilities.UserAgent(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, payload.SendMagicLinkResponse{
		Success:     true,
		Message:     "Sign-in link sent to your college email",
		Institution: dispatch.Institution,
		ExpiresIn:   dispatch.ExpiresIn,
	})
}

func (h *AuthHandler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var req payload.VerifyMagicLinkRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.magicLinkUsecase.VerifyMagicLink(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Login successful", sessionData(session))
}

func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req payload.GoogleSignInRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.authUsecase.SignInWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Login successful", sessionData(session))
}

func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token, ok := utilities.BearerToken(r)
	if !ok {
		writeError(w, r, usecase.ErrInvalidToken)
		return
	}

	session, err := h.authUsecase.RefreshToken(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Token refreshed", sessionData(session))
}

func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	data := payload.TokenClaimsData{
		UserID:      claims.UserID,
		Email:       claims.Email,
		Institution: claims.Institution,
	}
	if claims.ExpiresAt != nil {
		data.ExpiresAt = claims.ExpiresAt.Time.UTC().Format(time.RFC3339)
	}

	response.Success(w, http.StatusOK, "Token is valid", data)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authUsecase.Me(r.Context(), claimsFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "", user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authUsecase.Logout(r.Context(), claimsFrom(r)); err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Logged out", nil)
}

func sessionData(session *usecase.Session) payload.SessionData {
	return payload.SessionData{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		User:      session.User,
	}
}
