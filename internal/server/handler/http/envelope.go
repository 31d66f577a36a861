// Package http provides HTTP handlers for entry synchronization and the
// admin edge endpoints (feedback triage, crash ingestion, cleanup).
//
// Every response uses the fixed JSON envelope {success, error?, requestId}
// with standard CORS headers; payloads ride in the data field.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// Envelope is the fixed response shape shared by all endpoints.
type Envelope struct {
	// Success reports whether the request was handled.
	Success bool `json:"success"`
	// Error is the failure code when Success is false.
	Error string `json:"error,omitempty"`
	// RequestID correlates the response with server logs.
	RequestID string `json:"requestId"`
	// Data carries the endpoint-specific payload, if any.
	Data any `json:"data,omitempty"`
}

// setCORS applies the standard CORS headers every endpoint responds with.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Device-ID")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	if env.RequestID == "" {
		env.RequestID = uuid.NewString()
	}
	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// writeSuccess responds 200 with the payload in the envelope's data field.
func writeSuccess(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// writeError responds with a structured error code at the given status.
func writeError(w http.ResponseWriter, status int, code string) {
	writeEnvelope(w, status, Envelope{Success: false, Error: code})
}
