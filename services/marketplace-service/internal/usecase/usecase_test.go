package usecase

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/college"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/config"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/model"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository/memory"
	"github.com/skilllance/skilllance-api/shared/auth"
	"github.com/skilllance/skilllance-api/shared/mailer"
	"github.com/skilllance/skilllance-api/shared/provider"
	"github.com/skilllance/skilllance-api/shared/security"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
	err  error
}

func (m *captureMailer) Send(email mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, email)
	return m.err
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *captureMailer) last() mailer.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

var linkTokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_\-.]+)`)

func (m *captureMailer) lastLinkToken(t *testing.T) string {
	t.Helper()
	match := linkTokenPattern.FindStringSubmatch(m.last().Body)
	require.Len(t, match, 2)
	return match[1]
}

// testClock starts at the real time so issued tokens validate against the JWT
// library's own clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubGoogle struct {
	identity *provider.GoogleIdentity
	err      error
}

func (s stubGoogle) ValidateIDToken(context.Context, string) (*provider.GoogleIdentity, error) {
	return s.identity, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Env: config.EnvTest,
		Token: config.TokenConfig{
			Secret:    "test-secret",
			ExpiresIn: time.Hour,
			Issuer:    "skilllance",
			Audience:  "skilllance-web",
		},
		OTP: config.OTPConfig{
			TTL:         10 * time.Minute,
			MaxAttempts: 3,
			RateLimit:   3,
			RateWindow:  time.Hour,
		},
		MagicLink: config.MagicLinkConfig{
			TTL: 15 * time.Minute,
			URL: "http://localhost:5173/auth/magic",
		},
	}
}

func testDirectory() *college.Directory {
	return college.New(
		[]string{"vce.ac.in", "iitb.ac.in"},
		map[string]string{"vce.ac.in": "Vasavi College of Engineering"},
	)
}

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

type fixture struct {
	auth    AuthUsecase
	links   MagicLinkUsecase
	tasks   TaskUsecase
	reviews ReviewUsecase
	users   UserUsecase

	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
	mail     *captureMailer
	clock    *testClock
	codes    []string
}

type fixtureOption func(*AuthUsecaseParams)

func withGoogle(g GoogleVerifier) fixtureOption {
	return func(p *AuthUsecaseParams) { p.Google = g }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		userRepo: memory.NewUserRepository(),
		taskRepo: memory.NewTaskRepository(),
		mail:     &captureMailer{},
		clock:    newTestClock(),
	}

	cfg := testConfig()
	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Audience, cfg.Token.Issuer)
	otpRequests := memory.NewOTPRequestRepository()
	revoked := memory.NewRevokedTokenRepository()
	reviewRepo := memory.NewReviewRepository()

	var codesMu sync.Mutex
	params := AuthUsecaseParams{
		UserRepo:         f.userRepo,
		OTPRepo:          memory.NewOTPRepository(),
		OTPRequestRepo:   otpRequests,
		RevokedTokenRepo: revoked,
		Directory:        testDirectory(),
		JWTAuth:          jwtAuth,
		Hasher:           security.NewHasher(),
		Mailer:           f.mail,
		Config:           cfg,
		Logger:           testLogger(),
		Clock:            f.clock.Now,
		GenerateCode: func() (string, error) {
			codesMu.Lock()
			defer codesMu.Unlock()
			if len(f.codes) == 0 {
				return "123456", nil
			}
			code := f.codes[0]
			f.codes = f.codes[1:]
			return code, nil
		},
	}
	for _, opt := range opts {
		opt(&params)
	}

	f.auth = NewAuthUsecase(params)
	f.links = NewMagicLinkUsecase(MagicLinkUsecaseParams{
		UserRepo:         f.userRepo,
		MagicLinkRepo:    memory.NewMagicLinkRepository(),
		OTPRequestRepo:   otpRequests,
		RevokedTokenRepo: revoked,
		Directory:        testDirectory(),
		JWTAuth:          jwtAuth,
		Mailer:           f.mail,
		Config:           cfg,
		Logger:           testLogger(),
		Clock:            f.clock.Now,
	})
	f.tasks = NewTaskUsecase(f.taskRepo, f.userRepo, testLogger(), f.clock.Now)
	f.reviews = NewReviewUsecase(reviewRepo, f.taskRepo, f.userRepo, testLogger(), f.clock.Now)
	f.users = NewUserUsecase(f.userRepo)

	return f
}

// signIn creates an account through the OTP flow and returns it.
func (f *fixture) signIn(t *testing.T, email string) *Session {
	t.Helper()
	ctx := context.Background()

	f.codes = append(f.codes, "654321")
	_, err := f.auth.SendOTP(ctx, SendCodeParams{Email: email})
	require.NoError(t, err)

	session, err := f.auth.VerifyOTP(ctx, VerifyOTPParams{Email: email, Code: "654321"})
	require.NoError(t, err)
	return session
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
}

func detail(t *testing.T, err error, key string) any {
	t.Helper()
	var ue *Error
	require.True(t, errors.As(err, &ue))
	return ue.Details[key]
}

func userIDOf(s *Session) string {
	return s.User.ID.Hex()
}

func newTaskParams(deadline time.Time) CreateTaskParams {
	return CreateTaskParams{
		Title:          "Design a club poster",
		Description:    "A3 poster for the coding club fest",
		Category:       "design",
		SkillsRequired: []string{"figma"},
		Budget:         model.Budget{Amount: 1500},
		Deadline:       deadline,
	}
}
