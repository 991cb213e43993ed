package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the JSON shape every endpoint answers with.
type Envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Code    string         `json:"code,omitempty"`
	Data    any            `json:"data,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success writes a successful envelope.
func Success(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error writes a failed envelope.
func Error(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	JSON(w, status, Envelope{
		Success: false,
		Code:    code,
		Message: message,
		Details: details,
	})
}
