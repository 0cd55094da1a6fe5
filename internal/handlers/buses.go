package handlers

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/safiridev/bus-tracking/internal/db"
	"github.com/safiridev/bus-tracking/internal/models"
)

// BusHandler serves the read-only bus snapshot endpoint.
type BusHandler struct {
	store db.BusStore
}

// NewBusHandler creates a bus snapshot handler.
func NewBusHandler(store db.BusStore) *BusHandler {
	return &BusHandler{store: store}
}

// List returns all active buses as JSON.
func (h *BusHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	buses, err := h.store.FindActive(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to fetch active buses")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if buses == nil {
		buses = []models.Bus{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(buses); err != nil {
		log.WithError(err).Error("Failed to encode bus list")
	}
}

// Health reports service liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// WithCORS allows browser clients on any origin, matching the map frontend's
// expectations.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
