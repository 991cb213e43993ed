package usecase

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/college"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/config"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository"
	authtypes "github.com/skilllance/skilllance-api/services/marketplace-service/pkg/types"
	"github.com/skilllance/skilllance-api/shared/auth"
	"github.com/skilllance/skilllance-api/shared/mailer"
	"github.com/skilllance/skilllance-api/shared/metrics"
)

// MagicLinkUsecase defines the business logic for passwordless sign-in links.
type MagicLinkUsecase interface {
	// SendMagicLink emails a single-use sign-in link to a college address.
	SendMagicLink(ctx context.Context, params SendCodeParams) (*MagicLinkDispatch, error)

	// VerifyMagicLink consumes the link token and signs the user in.
	VerifyMagicLink(ctx context.Context, token string) (*Session, error)
}

// MagicLinkDispatch describes a link that was just sent.
type MagicLinkDispatch struct {
	Email       string
	Institution string
	ExpiresIn   int
}

// MagicLinkUsecaseParams wires the magic-link usecase.
type MagicLinkUsecaseParams struct {
	UserRepo         repository.UserRepository
	MagicLinkRepo    repository.MagicLinkRepository
	OTPRequestRepo   repository.OTPRequestRepository
	RevokedTokenRepo repository.RevokedTokenRepository
	Directory        *college.Directory
	JWTAuth          auth.JWTAuthenticator
	Mailer           mailer.Sender
	Metrics          *metrics.Metrics
	Config           *config.Config
	Logger           *zerolog.Logger
	Clock            Clock
}

type magicLinkUsecase struct {
	linkRepo  repository.MagicLinkRepository
	directory *college.Directory
	jwtAuth   auth.JWTAuthenticator
	mailer    mailer.Sender
	metrics   *metrics.Metrics
	cfg       *config.Config
	logger    zerolog.Logger
	now       Clock
	sessions  *sessionIssuer
	limiter   *sendLimiter
}

// NewMagicLinkUsecase creates a new instance of MagicLinkUsecase.
func NewMagicLinkUsecase(params MagicLinkUsecaseParams) MagicLinkUsecase {
	now := params.Clock
	if now == nil {
		now = time.Now
	}

	return &magicLinkUsecase{
		linkRepo:  params.MagicLinkRepo,
		directory: params.Directory,
		jwtAuth:   params.JWTAuth,
		mailer:    params.Mailer,
		metrics:   params.Metrics,
		cfg:       params.Config,
		logger:    params.Logger.With().Str("component", "magic-link").Logger(),
		now:       now,
		sessions: &sessionIssuer{
			userRepo:    params.UserRepo,
			revokedRepo: params.RevokedTokenRepo,
			jwtAuth:     params.JWTAuth,
			secret:      params.Config.Token.Secret,
			ttl:         params.Config.Token.ExpiresIn,
			metrics:     params.Metrics,
			now:         now,
		},
		limiter: &sendLimiter{
			repo:    params.OTPRequestRepo,
			limit:   params.Config.OTP.RateLimit,
			window:  params.Config.OTP.RateWindow,
			metrics: params.Metrics,
			now:     now,
		},
	}
}

func (u *magicLinkUsecase) SendMagicLink(ctx context.Context, params SendCodeParams) (*MagicLinkDispatch, error) {
	result, err := checkCollegeEmail(u.directory, params.Email)
	if err != nil {
		return nil, err
	}

	if _, err := u.limiter.check(ctx, result.Email, MethodMagicLink); err != nil {
		return nil, err
	}

	tokenStr, jti, err := u.generateMagicLinkToken(result.Email)
	if err != nil {
		return nil, err
	}

	link := &model.MagicLink{
		JTI:       jti,
		Email:     result.Email,
		IPAddress: params.IPAddress,
		UserAgent: params.UserAgent,
		ExpiresAt: u.now().Add(u.cfg.MagicLink.TTL),
	}
	if _, err := u.linkRepo.ReplaceForEmail(ctx, link); err != nil {
		return nil, err
	}

	signInURL, err := magicLinkURL(u.cfg.MagicLink.URL, tokenStr)
	if err != nil {
		return nil, err
	}

	if !u.cfg.IsProduction() {
		u.logger.Debug().Str("email", result.Email).Str("url", signInURL).Msg("development magic link")
	}

	if err := u.mailer.Send(magicLinkEmail(result, signInURL, u.cfg.MagicLink.TTL)); err != nil {
		u.metrics.EmailFailed()
		u.logger.Warn().Err(err).Str("email", result.Email).Msg("failed to send magic link email")
	}

	return &MagicLinkDispatch{
		Email:       result.Email,
		Institution: result.Institution,
		ExpiresIn:   int(u.cfg.MagicLink.TTL.Seconds()),
	}, nil
}

func (u *magicLinkUsecase) VerifyMagicLink(ctx context.Context, token string) (*Session, error) {
	claims := &authtypes.MagicLinkClaims{}
	if _, err := u.jwtAuth.ValidateTokenWithClaims(token, u.cfg.Token.Secret, claims); err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}

	if claims.Purpose != authtypes.PurposeMagicLink || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	link, err := u.linkRepo.GetByJTI(ctx, claims.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if link.Used {
		return nil, ErrMagicLinkUsed
	}

	if !u.now().Before(link.ExpiresAt) {
		return nil, ErrMagicLinkExpired
	}

	won, err := u.linkRepo.MarkUsed(ctx, link.JTI)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrMagicLinkUsed
	}

	// The allow-list may have changed since the link was sent.
	result, err := checkCollegeEmail(u.directory, link.Email)
	if err != nil {
		return nil, err
	}

	return u.sessions.signIn(ctx, result.Email, result.Institution, result.Domain, MethodMagicLink)
}

// generateMagicLinkToken creates a short-lived link JWT with a unique JTI.
func (u *magicLinkUsecase) generateMagicLinkToken(email string) (string, string, error) {
	jti := uuid.NewString()

	claims := authtypes.MagicLinkClaims{
		Email:            email,
		Purpose:          authtypes.PurposeMagicLink,
		RegisteredClaims: u.jwtAuth.RegisteredClaims(email, jti, u.now(), u.cfg.MagicLink.TTL),
	}

	tokenStr, err := u.jwtAuth.GenerateToken(claims, u.cfg.Token.Secret)
	if err != nil {
		return "", "", err
	}

	return tokenStr, jti, nil
}

func magicLinkURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid MAGIC_LINK_URL: %w", err)
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func magicLinkEmail(result college.Result, link string, ttl time.Duration) mailer.Email {
	minutes := int(ttl.Minutes())
	return mailer.Email{
		To:      []string{result.Email},
		Subject: "Your SkillLance sign-in link",
		Body: fmt.Sprintf(
			"Sign in to SkillLance: %s\nThe link expires in %d minutes and works once.",
			link, minutes,
		),
		HTMLBody: fmt.Sprintf(`
		<p>Hi,</p>
		<p>Click the link below to sign in to SkillLance with your %s account:</p>

		<p><a href="%s">Sign in to SkillLance</a></p>

		<p>This link expires in %d minutes and can be used once.</p>
		<p>If you did not request this link, you can safely ignore this email.</p>

		<p>Thank you,</p>
		<p>SkillLance Team</p>
	`, result.Institution, link, minutes),
	}
}
