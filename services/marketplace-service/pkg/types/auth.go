package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A token is only accepted by the flow it was issued for.
const (
	PurposeSession   = "session"
	PurposeMagicLink = "magic_link"
)

// UserClaims is the payload of a session token.
type UserClaims struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Institution string    `json:"institution"`
	Domain      string    `json:"domain"`
	KarmaScore  int       `json:"karma_score"`
	VerifiedAt  time.Time `json:"verified_at"`
	Purpose     string    `json:"purpose"`
	jwt.RegisteredClaims
}

// MagicLinkClaims is the payload of the token embedded in a sign-in link.
type MagicLinkClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

