package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/college"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/config"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository"
	authtypes "github.com/skilllance/skilllance-api/services/marketplace-service/pkg/types"
	"github.com/skilllance/skilllance-api/shared/auth"
	"github.com/skilllance/skilllance-api/shared/mailer"
	"github.com/skilllance/skilllance-api/shared/metrics"
	"github.com/skilllance/skilllance-api/shared/provider"
	"github.com/skilllance/skilllance-api/shared/security"
)

// AuthUsecase defines the interface for authentication-related use cases.
type AuthUsecase interface {
	// ValidateCollegeEmail checks an address against the college allow-list.
	ValidateCollegeEmail(email string) college.Result

	// CheckRateLimit counts one sign-in email for the address and fails with a
	// RateLimited error once the window is exhausted.
	CheckRateLimit(ctx context.Context, email string) (*repository.RateWindow, error)

	// SendOTP issues a new one-time code and emails it.
	SendOTP(ctx context.Context, params SendCodeParams) (*OTPDispatch, error)

	// VerifyOTP consumes a one-time code and signs the user in.
	VerifyOTP(ctx context.Context, params VerifyOTPParams) (*Session, error)

	// SignInWithGoogle signs in with a Google ID token for a college address.
	SignInWithGoogle(ctx context.Context, idToken string) (*Session, error)

	// VerifyToken validates a session token and returns its claims.
	VerifyToken(ctx context.Context, token string) (*authtypes.UserClaims, error)

	// RefreshToken exchanges a valid session token for a new one.
	RefreshToken(ctx context.Context, token string) (*Session, error)

	// Logout revokes the session the claims belong to.
	Logout(ctx context.Context, claims *authtypes.UserClaims) error

	// Me loads the account behind the claims.
	Me(ctx context.Context, claims *authtypes.UserClaims) (*model.User, error)
}

// SendCodeParams defines the parameters for requesting a sign-in email.
type SendCodeParams struct {
	Email     string
	IPAddress string
	UserAgent string
}

// VerifyOTPParams defines the parameters for verifying a one-time code.
type VerifyOTPParams struct {
	Email     string
	Code      string
	IPAddress string
	UserAgent string
}

// OTPDispatch describes a code that was just sent.
type OTPDispatch struct {
	Email       string
	Institution string
	ExpiresIn   int
}

// GoogleVerifier validates Google ID tokens.
type GoogleVerifier interface {
	ValidateIDToken(ctx context.Context, idToken string) (*provider.GoogleIdentity, error)
}

// AuthUsecaseParams wires the auth usecase. Google may be nil, which disables
// Google sign-in. Clock and GenerateCode default to the real implementations.
type AuthUsecaseParams struct {
	UserRepo         repository.UserRepository
	OTPRepo          repository.OTPRepository
	OTPRequestRepo   repository.OTPRequestRepository
	RevokedTokenRepo repository.RevokedTokenRepository
	Directory        *college.Directory
	JWTAuth          auth.JWTAuthenticator
	Hasher           *security.Hasher
	Mailer           mailer.Sender
	Google           GoogleVerifier
	Metrics          *metrics.Metrics
	Config           *config.Config
	Logger           *zerolog.Logger
	Clock            Clock
	GenerateCode     CodeGenerator
}

type authUsecase struct {
	otpRepo      repository.OTPRepository
	directory    *college.Directory
	hasher       *security.Hasher
	mailer       mailer.Sender
	google       GoogleVerifier
	metrics      *metrics.Metrics
	cfg          *config.Config
	logger       zerolog.Logger
	now          Clock
	generateCode CodeGenerator
	sessions     *sessionIssuer
	limiter      *sendLimiter
}

func NewAuthUsecase(params AuthUsecaseParams) AuthUsecase {
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	generateCode := params.GenerateCode
	if generateCode == nil {
		generateCode = GenerateOTP
	}

	return &authUsecase{
		otpRepo:      params.OTPRepo,
		directory:    params.Directory,
		hasher:       params.Hasher,
		mailer:       params.Mailer,
		google:       params.Google,
		metrics:      params.Metrics,
		cfg:          params.Config,
		logger:       params.Logger.With().Str("component", "auth").Logger(),
		now:          now,
		generateCode: generateCode,
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

func (u *authUsecase) ValidateCollegeEmail(email string) college.Result {
	return u.directory.ValidateCollegeEmail(email)
}

func (u *authUsecase) CheckRateLimit(ctx context.Context, email string) (*repository.RateWindow, error) {
	return u.limiter.check(ctx, normalizeEmail(email), MethodOTP)
}

// checkCollegeEmail turns an allow-list rejection into a classified error.
func checkCollegeEmail(directory *college.Directory, email string) (college.Result, error) {
	result := directory.ValidateCollegeEmail(email)
	if result.Valid {
		return result, nil
	}

	if result.Reason == college.ReasonInvalidFormat {
		return result, ErrInvalidEmail
	}
	return result, ErrUnsupportedDomain.WithDetail("domain", result.Domain)
}

func (u *authUsecase) SendOTP(ctx context.Context, params SendCodeParams) (*OTPDispatch, error) {
	result, err := checkCollegeEmail(u.directory, params.Email)
	if err != nil {
		return nil, err
	}

	if _, err := u.limiter.check(ctx, result.Email, MethodOTP); err != nil {
		return nil, err
	}

	code, err := u.generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	codeHash, err := u.hasher.Hash(code)
	if err != nil {
		return nil, fmt.Errorf("failed to hash otp: %w", err)
	}

	otp := &model.OTP{
		Email:       result.Email,
		CodeHash:    codeHash,
		Institution: result.Institution,
		Domain:      result.Domain,
		IPAddress:   params.IPAddress,
		UserAgent:   params.UserAgent,
		ExpiresAt:   u.now().Add(u.cfg.OTP.TTL),
	}
	if _, err := u.otpRepo.ReplaceForEmail(ctx, otp); err != nil {
		return nil, err
	}

	u.metrics.OTPSent()

	if !u.cfg.IsProduction() {
		u.logger.Debug().Str("email", result.Email).Str("otp", code).Msg("development otp")
	}

	if err := u.mailer.Send(otpEmail(result, code, u.cfg.OTP.TTL)); err != nil {
		u.metrics.EmailFailed()
		u.logger.Warn().Err(err).Str("email", result.Email).Msg("failed to send otp email")
	}

	return &OTPDispatch{
		Email:       result.Email,
		Institution: result.Institution,
		ExpiresIn:   int(u.cfg.OTP.TTL.Seconds()),
	}, nil
}

func (u *authUsecase) VerifyOTP(ctx context.Context, params VerifyOTPParams) (*Session, error) {
	email := normalizeEmail(params.Email)

	otp, err := u.otpRepo.GetLatestUnverified(ctx, email)
	if err != nil {
		if isNotFound(err) {
			u.metrics.OTPVerification("not_found")
			return nil, ErrOtpNotFound
		}
		return nil, err
	}

	if otp.IsExpired(u.now()) {
		if err := u.otpRepo.Delete(ctx, otp.ID); err != nil {
			return nil, err
		}
		u.metrics.OTPVerification("expired")
		return nil, ErrOtpExpired
	}

	maxAttempts := u.cfg.OTP.MaxAttempts
	if otp.Attempts >= maxAttempts {
		if err := u.otpRepo.Delete(ctx, otp.ID); err != nil {
			return nil, err
		}
		u.metrics.OTPVerification("exhausted")
		return nil, ErrOtpExhausted
	}

	ok, err := u.hasher.Verify(params.Code, otp.CodeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify otp: %w", err)
	}

	if !ok {
		attempts, err := u.otpRepo.IncrementAttempts(ctx, otp.ID)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrOtpNotFound
			}
			return nil, err
		}

		remaining := maxAttempts - attempts
		if remaining <= 0 {
			if err := u.otpRepo.Delete(ctx, otp.ID); err != nil {
				return nil, err
			}
			u.metrics.OTPVerification("exhausted")
			return nil, ErrOtpExhausted
		}

		u.metrics.OTPVerification("mismatch")
		return nil, ErrOtpMismatch.WithDetail("remainingAttempts", remaining)
	}

	won, err := u.otpRepo.MarkVerified(ctx, otp.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		u.metrics.OTPVerification("not_found")
		return nil, ErrOtpNotFound
	}

	u.metrics.OTPVerification("success")

	session, err := u.sessions.signIn(ctx, otp.Email, otp.Institution, otp.Domain, MethodOTP)
	if err != nil {
		return nil, err
	}

	u.logger.Info().
		Str("user_id", session.User.ID.Hex()).
		Str("ip", params.IPAddress).
		Msg("user signed in with otp")

	return session, nil
}

func (u *authUsecase) SignInWithGoogle(ctx context.Context, idToken string) (*Session, error) {
	if u.google == nil {
		return nil, ErrGoogleDisabled
	}

	identity, err := u.google.ValidateIDToken(ctx, idToken)
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}

	result, err := checkCollegeEmail(u.directory, identity.Email)
	if err != nil {
		return nil, err
	}

	return u.sessions.signIn(ctx, result.Email, result.Institution, result.Domain, MethodGoogle)
}

func (u *authUsecase) VerifyToken(ctx context.Context, token string) (*authtypes.UserClaims, error) {
	return u.sessions.verify(ctx, token)
}

func (u *authUsecase) RefreshToken(ctx context.Context, token string) (*Session, error) {
	claims, err := u.sessions.verify(ctx, token)
	if err != nil {
		return nil, err
	}

	// The old token is revoked first; only the request that revokes it gets a new one.
	revoked, err := u.sessions.revoke(ctx, claims)
	if err != nil {
		return nil, err
	}
	if !revoked {
		return nil, ErrInvalidToken
	}

	user, err := u.sessions.userRepo.GetUser(ctx, claims.UserID)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		user = userFromClaims(claims)
	}

	return u.sessions.issue(user, MethodRefresh)
}

func (u *authUsecase) Logout(ctx context.Context, claims *authtypes.UserClaims) error {
	if claims == nil || claims.ID == "" {
		return ErrInvalidToken
	}
	_, err := u.sessions.revoke(ctx, claims)
	return err
}

func (u *authUsecase) Me(ctx context.Context, claims *authtypes.UserClaims) (*model.User, error) {
	user, err := u.sessions.userRepo.GetUser(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func otpEmail(result college.Result, code string, ttl time.Duration) mailer.Email {
	minutes := int(ttl.Minutes())
	return mailer.Email{
		To:      []string{result.Email},
		Subject: "Your SkillLance verification code",
		Body: fmt.Sprintf(
			"Your SkillLance verification code is %s. It expires in %d minutes.\n"+
				"If you did not request this code, you can ignore this email.",
			code, minutes,
		),
		HTMLBody: fmt.Sprintf(`
		<p>Hi,</p>
		<p>Use the code below to sign in to SkillLance with your %s account.</p>

		<p style="font-size:28px;letter-spacing:6px;"><strong>%s</strong></p>

		<p>This code expires in %d minutes.</p>
		<p>If you did not request this code, you can safely ignore this email.</p>

		<p>Thank you,</p>
		<p>SkillLance Team</p>
	`, result.Institution, code, minutes),
	}
}
