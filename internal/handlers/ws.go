package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/safiridev/bus-tracking/internal/db"
	"github.com/safiridev/bus-tracking/internal/hub"
	"github.com/safiridev/bus-tracking/internal/models"
)

// WSHandler upgrades observer connections and attaches them to the hub.
type WSHandler struct {
	store    db.BusStore
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler creates the realtime channel handler.
func NewWSHandler(store db.BusStore, h *hub.Hub) *WSHandler {
	return &WSHandler{
		store: store,
		hub:   h,
		upgrader: websocket.Upgrader{
			// The map frontend is served from another origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the connection, queues the active-bus snapshot as the first
// frame and then streams incremental updates until the observer disconnects.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.snapshot(r)
	if err != nil {
		log.WithError(err).Error("Failed to build snapshot for new observer")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	log.WithField("remote", conn.RemoteAddr().String()).Info("Observer connected")

	sub := h.hub.Subscribe(conn, snapshot)

	// Observers never send data; the read loop only detects disconnects.
	go func() {
		defer sub.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				log.WithField("remote", conn.RemoteAddr().String()).Info("Observer disconnected")
				return
			}
		}
	}()
}

func (h *WSHandler) snapshot(r *http.Request) ([]byte, error) {
	buses, err := h.store.FindActive(r.Context())
	if err != nil {
		return nil, err
	}
	updates := make([]models.BusUpdate, 0, len(buses))
	for _, b := range buses {
		updates = append(updates, models.UpdateFromBus(b))
	}
	return json.Marshal(updates)
}
