package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// OTP is a one-time sign-in code. Only the argon2 hash of the code is stored.
// There is at most one live OTP per email.
type OTP struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Email       string        `bson:"email"`
	CodeHash    string        `bson:"code_hash"`
	Attempts    int           `bson:"attempts"`
	Verified    bool          `bson:"verified"`
	Institution string        `bson:"institution"`
	Domain      string        `bson:"domain"`
	IPAddress   string        `bson:"ip_address"`
	UserAgent   string        `bson:"user_agent"`
	ExpiresAt   time.Time     `bson:"expires_at"`
	CreatedAt   time.Time     `bson:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at"`
}

// IsExpired reports whether the code can no longer be used at now.
func (o *OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// OTPRequestWindow counts sign-in emails sent to one address within a fixed window.
type OTPRequestWindow struct {
	ID              bson.ObjectID `bson:"_id,omitempty"`
	Email           string        `bson:"email"`
	Count           int           `bson:"count"`
	WindowStartedAt time.Time     `bson:"window_started_at"`
	ExpiresAt       time.Time     `bson:"expires_at"`
}

// MagicLink is a single-use sign-in link identified by the jti of its token.
type MagicLink struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	JTI       string        `bson:"jti"`
	Email     string        `bson:"email"`
	Used      bool          `bson:"used"`
	IPAddress string        `bson:"ip_address"`
	UserAgent string        `bson:"user_agent"`
	ExpiresAt time.Time     `bson:"expires_at"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

// RevokedToken blocks a session token until it would have expired anyway.
type RevokedToken struct {
	JTI       string    `bson:"jti"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}
