package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/config"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/handler"
	"github.com/skilllance/skilllance-api/shared/metrics"
	"github.com/skilllance/skilllance-api/shared/middleware"
	"github.com/skilllance/skilllance-api/shared/response"
)

type routerParams struct {
	cfg     *config.Config
	logger  *zerolog.Logger
	metrics *metrics.Metrics

	auth    *handler.AuthHandler
	tasks   *handler.TaskHandler
	reviews *handler.ReviewHandler
	users   *handler.UserHandler
	health  *handler.HealthHandler
}

func newRouter(p routerParams) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(p.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Instrument(p.metrics))
	r.Use(middleware.SecurityHeaders(p.cfg.IsProduction()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   p.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", p.health.Health)
	r.Method(http.MethodGet, "/metrics", p.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", p.auth.Routes())
		p.tasks.RegisterRoutes(r)
		p.reviews.RegisterRoutes(r)
		p.users.RegisterRoutes(r)
	})

	// Older clients still call the unversioned auth prefix.
	r.Mount("/api/auth", p.auth.Routes())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}
