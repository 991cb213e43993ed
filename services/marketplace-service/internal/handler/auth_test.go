package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendOTP(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/v1/auth/send-otp", "", map[string]string{"email": "Amy@VCE.ac.in"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Vasavi College of Engineering", body["institution"])
	assert.EqualValues(t, 600, body["expiresIn"])
	assert.NotContains(t, rec.Body.String(), testCode)
	require.Len(t, s.mail.sent, 1)
	assert.Equal(t, []string{"amy@vce.ac.in"}, s.mail.sent[0].To)
}

func TestSendOTPRejections(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"non-college domain", map[string]string{"email": "amy@gmail.com"}, http.StatusBadRequest, "UNSUPPORTED_DOMAIN"},
		{"malformed email", map[string]string{"email": "not-an-email"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing email", map[string]string{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not json", "plain text", http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := s.do(t, http.MethodPost, "/api/v1/auth/send-otp", "", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestSendOTPValidationDetails(t *testing.T) {
	s := newTestServer(t)

	_, body := s.do(t, http.MethodPost, "/api/v1/auth/send-otp", "", map[string]string{"email": "nope"})
	details := body["details"].(map[string]any)
	fields := details["fields"].(map[string]any)
	assert.Contains(t, fields, "email")
}

func TestSendOTPRateLimited(t *testing.T) {
	s := newTestServer(t)
	req := map[string]string{"email": "rita@vce.ac.in"}

	for i := 0; i < 3; i++ {
		rec, _ := s.do(t, http.MethodPost, "/api/v1/auth/send-otp", "", req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body := s.do(t, http.MethodPost, "/api/v1/auth/send-otp", "", req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/send-magic-link", "", req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestVerifyOTP(t *testing.T) {
	s := newTestServer(t)
	email := "vera@vce.ac.in"

	rec, _ := s.do(t, http.MethodPost, "/api/auth/send-otp", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := s.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"email": email, "otp": "000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "OTP_MISMATCH", body["code"])
	assert.EqualValues(t, 2, body["details"].(map[string]any)["remainingAttempts"])

	rec, body = s.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"email": email, "otp": "12ab56"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	rec, body = s.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"email": email, "otp": testCode})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, email, data["user"].(map[string]any)["email"])

	rec, body = s.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"email": email, "otp": testCode})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "OTP_NOT_FOUND", body["code"])
}

func TestProtectedAuthRoutes(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.signIn(t, "paul@vce.ac.in")

	rec, body := s.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", body["code"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/auth/verify-token", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, body["data"].(map[string]any)["userId"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paul@vce.ac.in", body["data"].(map[string]any)["email"])

	rec, body = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := body["data"].(map[string]any)["token"].(string)
	assert.NotEqual(t, token, refreshed)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", refreshed, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", refreshed, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGoogleSignInDisabled(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/v1/auth/google", "", map[string]string{"idToken": "abc"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestVerifyMagicLinkRejectsGarbage(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/v1/auth/verify-magic-link", "", map[string]string{"token": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", body["code"])
}
