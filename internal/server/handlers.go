package server

import (
	"encoding/json"
	"net/http"

	"github.com/woozymasta/biketrack/internal/vars"
)

// handleHealth reports liveness with the running build version.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		vars.BuildInfo
	}{
		Status:    "ok",
		BuildInfo: vars.Ver(),
	})
}

// respondJSON writes v as a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
