// Package api serves the remote progress store over HTTP.
package api

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/services"
)

type Server struct {
	ProgressService services.ProgressService
	StatsService    services.StatsService
	DB              *sql.DB
}

// envelope is the body of every /api response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.FromContext(r.Context()).Warn("failed to encode response: %v", err)
	}
}

func writeData(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, r, http.StatusOK, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, r *http.Request, message string) {
	writeJSON(w, r, http.StatusOK, envelope{Success: true, Message: message})
}
