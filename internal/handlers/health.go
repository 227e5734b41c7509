// internal/handlers/health.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/netrisk/netrisk-service/internal/lobby"
	"github.com/netrisk/netrisk-service/internal/models"
)

// HealthResponse is the /health payload: a liveness flag plus the current
// lobby snapshot.
type HealthResponse struct {
	Status string           `json:"status"`
	Lobby  models.GameState `json:"lobby"`
}

// HealthHandler reports service health along with the current snapshot,
// exercising the same fallback path as the realtime channel.
func HealthHandler(coord *lobby.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		resp := HealthResponse{
			Status: "ok",
			Lobby:  coord.GetSnapshot(r.Context()),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

// SummaryHandler returns the listing projection of the current session.
func SummaryHandler(coord *lobby.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		summary := coord.GetSnapshot(r.Context()).Summary()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(summary); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}
