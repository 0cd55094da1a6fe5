package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/safiridev/bus-tracking/internal/hub"
	"github.com/safiridev/bus-tracking/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestServe_SnapshotThenEvents(t *testing.T) {
	bus := models.Bus{
		ID:        primitive.NewObjectID(),
		Number:    "Juja-42",
		Status:    models.StatusActive,
		Current:   models.GeoPoint{Lat: -1.1278, Lng: 36.9707},
		StepIndex: 3,
	}
	store := &stubStore{buses: []models.Bus{bus}}
	h := hub.New()
	handler := NewWSHandler(store, h)

	srv := httptest.NewServer(http.HandlerFunc(handler.Serve))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// First frame is the snapshot of all active buses.
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	var snapshot []models.BusUpdate
	require.NoError(t, json.Unmarshal(frame, &snapshot))
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Juja-42", snapshot[0].Number)
	assert.Equal(t, 3, snapshot[0].StepIndex)

	// Subsequent frames are incremental updates.
	h.Publish(models.BusUpdate{
		ID:         bus.ID.Hex(),
		Number:     "Juja-42",
		CurrentLat: -1.2,
		CurrentLng: 36.9,
		StepIndex:  4,
		Status:     models.StatusActive,
	})

	_, frame, err = conn.ReadMessage()
	require.NoError(t, err)
	var ev models.BusUpdate
	require.NoError(t, json.Unmarshal(frame, &ev))
	assert.Equal(t, 4, ev.StepIndex)
	assert.Equal(t, models.StatusActive, ev.Status)
}

func TestServe_StoreFailureRejectsConnection(t *testing.T) {
	store := &stubStore{err: errors.New("down")}
	handler := NewWSHandler(store, hub.New())

	srv := httptest.NewServer(http.HandlerFunc(handler.Serve))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
	assert.Nil(t, conn)
	if resp != nil {
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	}
}
