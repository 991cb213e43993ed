package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	failing := func(context.Context) error { return errors.New("connection refused") }
	healthy := func(context.Context) error { return nil }

	tests := []struct {
		name     string
		ping     Pinger
		status   int
		database string
		serving  bool
	}{
		{"no database", nil, http.StatusOK, DatabaseSkipped, true},
		{"connected", healthy, http.StatusOK, DatabaseConnected, true},
		{"unreachable", failing, http.StatusServiceUnavailable, DatabaseDisconnected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reported *bool
			h := NewHealthHandler(tt.ping, time.Now().Add(-time.Minute), func(serving bool) {
				reported = &serving
			})

			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.status, rec.Code)

			var body HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.database, body.Database)
			assert.Equal(t, tt.serving, body.Success)
			assert.InDelta(t, 60, body.Uptime, 2)

			require.NotNil(t, reported)
			assert.Equal(t, tt.serving, *reported)
		})
	}
}
