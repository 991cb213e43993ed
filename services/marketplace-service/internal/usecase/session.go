package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository"
	authtypes "github.com/skilllance/skilllance-api/services/marketplace-service/pkg/types"
	"github.com/skilllance/skilllance-api/shared/auth"
	"github.com/skilllance/skilllance-api/shared/metrics"
)

// Sign-in methods, used as metric labels.
const (
	MethodOTP       = "otp"
	MethodMagicLink = "magic_link"
	MethodGoogle    = "google"
	MethodRefresh   = "refresh"
)

// Session is what a successful sign-in returns to the client.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// Clock returns the current time. Tests replace it to move across expiry boundaries.
type Clock func() time.Time

// CodeGenerator produces a one-time code.
type CodeGenerator func() (string, error)

// GenerateOTP returns a uniformly random six-digit code in [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// sessionIssuer signs, verifies and revokes session tokens. The OTP, magic-link and
// Google flows all end in signIn.
type sessionIssuer struct {
	userRepo    repository.UserRepository
	revokedRepo repository.RevokedTokenRepository
	jwtAuth     auth.JWTAuthenticator
	secret      string
	ttl         time.Duration
	metrics     *metrics.Metrics
	now         Clock
}

func (s *sessionIssuer) signIn(ctx context.Context, email, institution, domain, method string) (*Session, error) {
	user, err := s.userRepo.UpsertOnLogin(ctx, repository.LoginParams{
		Email:       email,
		Institution: institution,
		Domain:      domain,
		Now:         s.now(),
	})
	if err != nil {
		return nil, err
	}

	return s.issue(user, method)
}

func (s *sessionIssuer) issue(user *model.User, method string) (*Session, error) {
	now := s.now()
	claims := authtypes.UserClaims{
		UserID:           user.ID.Hex(),
		Email:            user.Email,
		Institution:      user.Institution,
		Domain:           user.Domain,
		KarmaScore:       user.KarmaScore,
		VerifiedAt:       user.VerifiedAt,
		Purpose:          authtypes.PurposeSession,
		RegisteredClaims: s.jwtAuth.RegisteredClaims(user.ID.Hex(), uuid.NewString(), now, s.ttl),
	}

	token, err := s.jwtAuth.GenerateToken(claims, s.secret)
	if err != nil {
		return nil, err
	}

	s.metrics.SessionIssued(method)

	return &Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

func (s *sessionIssuer) verify(ctx context.Context, token string) (*authtypes.UserClaims, error) {
	claims := &authtypes.UserClaims{}
	if _, err := s.jwtAuth.ValidateTokenWithClaims(token, s.secret, claims); err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}

	if claims.Purpose != authtypes.PurposeSession || claims.ID == "" || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := s.revokedRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// revoke denies the token's jti and reports whether this call revoked it.
func (s *sessionIssuer) revoke(ctx context.Context, claims *authtypes.UserClaims) (bool, error) {
	expiresAt := s.now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.revokedRepo.Revoke(ctx, claims.ID, expiresAt)
}

// userFromClaims rebuilds a user from a token when the account row is gone.
func userFromClaims(claims *authtypes.UserClaims) *model.User {
	id, _ := bson.ObjectIDFromHex(claims.UserID)
	return &model.User{
		ID:          id,
		Email:       claims.Email,
		Institution: claims.Institution,
		Domain:      claims.Domain,
		KarmaScore:  claims.KarmaScore,
		VerifiedAt:  claims.VerifiedAt,
		Skills:      []model.Skill{},
	}
}

// sendLimiter caps how many sign-in emails one address receives per window.
type sendLimiter struct {
	repo    repository.OTPRequestRepository
	limit   int
	window  time.Duration
	metrics *metrics.Metrics
	now     Clock
}

func (l *sendLimiter) check(ctx context.Context, email, flow string) (*repository.RateWindow, error) {
	now := l.now()
	window, err := l.repo.Hit(ctx, email, l.limit, l.window, now)
	if err != nil {
		return nil, err
	}

	if !window.Allowed {
		l.metrics.RateLimited(flow)
		retryAfter := int(math.Ceil(window.ResetAt.Sub(now).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		return window, ErrRateLimited.WithDetail("retryAfter", retryAfter)
	}

	return window, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
