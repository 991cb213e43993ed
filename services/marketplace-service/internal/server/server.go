// Package server wires configuration, storage, usecases and handlers into the
// running HTTP service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/college"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/config"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/handler"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/usecase"
	"github.com/skilllance/skilllance-api/shared/auth"
	"github.com/skilllance/skilllance-api/shared/discovery"
	"github.com/skilllance/skilllance-api/shared/mailer"
	"github.com/skilllance/skilllance-api/shared/metrics"
	"github.com/skilllance/skilllance-api/shared/provider"
	"github.com/skilllance/skilllance-api/shared/security"
	"github.com/skilllance/skilllance-api/shared/utilities"
	"github.com/skilllance/skilllance-api/shared/validation"
)

const (
	ServiceName     = "skilllance-api"
	shutdownTimeout = 30 * time.Second
)

type Server struct {
	cfg        *config.Config
	logger     *zerolog.Logger
	mongo      *mongo.Client
	httpServer *http.Server
	grpcHealth *utilities.HealthServer
	registrar  *discovery.ConsulRegistrar
}

// New connects to the database (unless SKIP_DB is set) and builds the full
// handler graph. Nothing listens until Run is called.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, directory *college.Directory) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	if cfg.UsesDevSecret() {
		logger.Warn().Msg("JWT_SECRET is not set, using the development secret")
	}

	var (
		repos repositories
		ping  handler.Pinger
	)
	if cfg.SkipDB {
		logger.Warn().Msg("SKIP_DB is set, data is kept in memory and lost on restart")
		repos = newMemoryRepositories()
	} else {
		client, err := connectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		s.mongo = client
		logger.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

		repos = newMongoRepositories(ctx, logger, client.Database(cfg.Mongo.Database))
		ping = func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		}
	}

	if cfg.GRPCHealthPort > 0 {
		grpcHealth, err := utilities.NewHealthServer(cfg.GRPCHealthPort)
		if err != nil {
			return nil, fmt.Errorf("failed to listen for grpc health checks: %w", err)
		}
		s.grpcHealth = grpcHealth
	}

	if cfg.ConsulAddr != "" {
		registrar, err := discovery.NewConsulRegistrar(logger, cfg.ConsulAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to create consul client: %w", err)
		}
		s.registrar = registrar
	}

	m := metrics.New("skilllance")
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.buildRouter(repos, directory, ping, m),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

func (s *Server) buildRouter(
	repos repositories,
	directory *college.Directory,
	ping handler.Pinger,
	m *metrics.Metrics,
) http.Handler {
	cfg := s.cfg
	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Audience, cfg.Token.Issuer)
	sender := mailer.New(s.logger, cfg.Mailer)

	var google usecase.GoogleVerifier
	if cfg.GoogleClientID != "" {
		google = provider.NewGoogleOAuthProvider(cfg.GoogleClientID)
	}

	authUsecase := usecase.NewAuthUsecase(usecase.AuthUsecaseParams{
		UserRepo:         repos.users,
		OTPRepo:          repos.otps,
		OTPRequestRepo:   repos.otpRequests,
		RevokedTokenRepo: repos.revoked,
		Directory:        directory,
		JWTAuth:          jwtAuth,
		Hasher:           security.NewHasher(),
		Mailer:           sender,
		Google:           google,
		Metrics:          m,
		Config:           cfg,
		Logger:           s.logger,
	})
	magicLinkUsecase := usecase.NewMagicLinkUsecase(usecase.MagicLinkUsecaseParams{
		UserRepo:         repos.users,
		MagicLinkRepo:    repos.magicLinks,
		OTPRequestRepo:   repos.otpRequests,
		RevokedTokenRepo: repos.revoked,
		Directory:        directory,
		JWTAuth:          jwtAuth,
		Mailer:           sender,
		Metrics:          m,
		Config:           cfg,
		Logger:           s.logger,
	})
	taskUsecase := usecase.NewTaskUsecase(repos.tasks, repos.users, s.logger, nil)
	reviewUsecase := usecase.NewReviewUsecase(repos.reviews, repos.tasks, repos.users, s.logger, nil)
	userUsecase := usecase.NewUserUsecase(repos.users)

	validator := validation.New()
	authenticate := handler.NewAuthenticator(authUsecase)

	var onHealthChange func(bool)
	if s.grpcHealth != nil {
		onHealthChange = s.grpcHealth.SetServing
	}

	return newRouter(routerParams{
		cfg:     cfg,
		logger:  s.logger,
		metrics: m,
		auth:    handler.NewAuthHandler(authUsecase, magicLinkUsecase, validator),
		tasks:   handler.NewTaskHandler(taskUsecase, authenticate, validator),
		reviews: handler.NewReviewHandler(reviewUsecase, authenticate, validator),
		users:   handler.NewUserHandler(userUsecase, authenticate, validator),
		health:  handler.NewHealthHandler(ping, time.Now(), onHealthChange),
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled or a listener fails, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if s.grpcHealth != nil {
		go func() {
			s.logger.Info().Str("addr", s.grpcHealth.Addr().String()).Msg("grpc health server listening")
			if err := s.grpcHealth.Serve(); err != nil {
				errCh <- fmt.Errorf("grpc health server: %w", err)
			}
		}()
	}

	if s.registrar != nil {
		err := s.registrar.Register(discovery.Registration{
			Name:       ServiceName,
			Address:    s.cfg.ServiceAddress,
			Port:       s.cfg.Port,
			Tags:       []string{"http", s.cfg.Env},
			HealthPath: "/health",
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to register with consul")
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down")
	case runErr = <-errCh:
		s.logger.Error().Err(runErr).Msg("server failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(runErr, s.Shutdown(shutdownCtx))
}

// Shutdown deregisters the service, stops the listeners and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.registrar != nil {
		if err := s.registrar.Deregister(); err != nil {
			errs = append(errs, fmt.Errorf("consul deregister: %w", err))
		}
	}

	if s.grpcHealth != nil {
		s.grpcHealth.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	if s.mongo != nil {
		if err := s.mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongo disconnect: %w", err))
		}
	}

	return errors.Join(errs...)
}

func connectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI).SetConnectTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, nil
}
