package handler

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/skilllance/skilllance-api/shared/response"
)

const healthPingTimeout = 2 * time.Second

// Database states reported by /health.
const (
	DatabaseConnected    = "connected"
	DatabaseDisconnected = "disconnected"
	DatabaseSkipped      = "skipped"
)

// Pinger checks that the database is reachable.
type Pinger func(ctx context.Context) error

type HealthResponse struct {
	Success   bool    `json:"success"`
	Status    string  `json:"status"`
	Database  string  `json:"database"`
	Uptime    float64 `json:"uptime"`
	Timestamp string  `json:"timestamp"`
}

type HealthHandler struct {
	ping      Pinger
	startedAt time.Time
	onChange  func(serving bool)
}

// NewHealthHandler reports the database as skipped when ping is nil. onChange, if
// set, is told the serving state after every check.
func NewHealthHandler(ping Pinger, startedAt time.Time, onChange func(serving bool)) *HealthHandler {
	return &HealthHandler{ping: ping, startedAt: startedAt, onChange: onChange}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	database := DatabaseSkipped
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		database = DatabaseConnected
		if err := h.ping(ctx); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("database ping failed")
			database = DatabaseDisconnected
		}
	}

	serving := database != DatabaseDisconnected
	if h.onChange != nil {
		h.onChange(serving)
	}

	status, code := "ok", http.StatusOK
	if !serving {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	now := time.Now()
	response.JSON(w, code, HealthResponse{
		Success:   serving,
		Status:    status,
		Database:  database,
		Uptime:    math.Round(now.Sub(h.startedAt).Seconds()),
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}
