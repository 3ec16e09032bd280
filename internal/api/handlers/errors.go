package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"Tally/internal/backend"
)

// WriteData writes a success envelope around data
func WriteData(w http.ResponseWriter, statusCode int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to encode response data", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to encode response", nil)
		return
	}
	writeEnvelope(w, statusCode, backend.Envelope{Success: true, Data: raw})
}

// WriteError writes a standardized failure envelope. fields may be nil.
func WriteError(w http.ResponseWriter, statusCode int, message string, fields map[string][]string) {
	env := backend.Envelope{Success: false, Message: message}
	if len(fields) > 0 {
		raw, err := json.Marshal(fields)
		if err == nil {
			env.Errors = raw
		}
	}
	writeEnvelope(w, statusCode, env)
}

func writeEnvelope(w http.ResponseWriter, statusCode int, env backend.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
