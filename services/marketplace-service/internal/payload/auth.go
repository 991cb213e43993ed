package payload

import "github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"

type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type SendOTPResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Institution string `json:"institution"`
	ExpiresIn   int    `json:"expiresIn"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp"   validate:"required,len=6,numeric"`
}

type SendMagicLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type SendMagicLinkResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Institution string `json:"institution"`
	ExpiresIn   int    `json:"expiresIn"`
}

type VerifyMagicLinkRequest struct {
	Token string `json:"token" validate:"required"`
}

type GoogleSignInRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// SessionData is the data block of every successful sign-in.
type SessionData struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expiresAt"`
	User      *model.User `json:"user"`
}

type TokenClaimsData struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	Institution string `json:"institution"`
	ExpiresAt   string `json:"expiresAt"`
}
