package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/college"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/config"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/repository/memory"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/usecase"
	"github.com/skilllance/skilllance-api/shared/auth"
	"github.com/skilllance/skilllance-api/shared/mailer"
	"github.com/skilllance/skilllance-api/shared/security"
	"github.com/skilllance/skilllance-api/shared/validation"
)

const testCode = "123456"

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (m *captureMailer) Send(email mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	return nil
}

type testServer struct {
	router http.Handler
	mail   *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Env: config.EnvTest,
		Token: config.TokenConfig{
			Secret:    "handler-test-secret",
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

	logger := zerolog.Nop()
	directory := college.New(
		[]string{"vce.ac.in", "iitb.ac.in"},
		map[string]string{"vce.ac.in": "Vasavi College of Engineering"},
	)
	mail := &captureMailer{}
	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Audience, cfg.Token.Issuer)

	userRepo := memory.NewUserRepository()
	taskRepo := memory.NewTaskRepository()
	otpRequests := memory.NewOTPRequestRepository()
	revoked := memory.NewRevokedTokenRepository()

	authUsecase := usecase.NewAuthUsecase(usecase.AuthUsecaseParams{
		UserRepo:         userRepo,
		OTPRepo:          memory.NewOTPRepository(),
		OTPRequestRepo:   otpRequests,
		RevokedTokenRepo: revoked,
		Directory:        directory,
		JWTAuth:          jwtAuth,
		Hasher:           security.NewHasher(),
		Mailer:           mail,
		Config:           cfg,
		Logger:           &logger,
		GenerateCode:     func() (string, error) { return testCode, nil },
	})
	magicLinkUsecase := usecase.NewMagicLinkUsecase(usecase.MagicLinkUsecaseParams{
		UserRepo:         userRepo,
		MagicLinkRepo:    memory.NewMagicLinkRepository(),
		OTPRequestRepo:   otpRequests,
		RevokedTokenRepo: revoked,
		Directory:        directory,
		JWTAuth:          jwtAuth,
		Mailer:           mail,
		Config:           cfg,
		Logger:           &logger,
	})
	taskUsecase := usecase.NewTaskUsecase(taskRepo, userRepo, &logger, nil)
	reviewUsecase := usecase.NewReviewUsecase(memory.NewReviewRepository(), taskRepo, userRepo, &logger, nil)
	userUsecase := usecase.NewUserUsecase(userRepo)

	validator := validation.New()
	authenticate := NewAuthenticator(authUsecase)
	authHandler := NewAuthHandler(authUsecase, magicLinkUsecase, validator)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())
		NewTaskHandler(taskUsecase, authenticate, validator).RegisterRoutes(r)
		NewReviewHandler(reviewUsecase, authenticate, validator).RegisterRoutes(r)
		NewUserHandler(userUsecase, authenticate, validator).RegisterRoutes(r)
	})
	r.Mount("/api/auth", authHandler.Routes())

	return &testServer{router: r, mail: mail}
}

// do sends body as JSON and decodes the JSON reply.
func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

// signIn runs the OTP flow and returns the session token and user id.
func (s *testServer) signIn(t *testing.T, email string) (string, string) {
	t.Helper()

	rec, _ := s.do(t, http.MethodPost, "/api/v1/auth/send-otp", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body := s.do(t, http.MethodPost, "/api/v1/auth/verify-otp", "", map[string]string{
		"email": email,
		"otp":   testCode,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)
	return data["token"].(string), user["id"].(string)
}
