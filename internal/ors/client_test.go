package ors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/safiridev/bus-tracking/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	c := NewClient("test-key", 2*time.Second)
	c.BaseURL = url
	return c
}

func TestFetch_DecodesGeoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))

		var req directionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Coordinates, 2)
		// lng comes first on the wire
		assert.Equal(t, 36.9707, req.Coordinates[0][0])
		assert.Equal(t, -1.1278, req.Coordinates[0][1])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[[36.9707,-1.1278],[36.9,-1.2],[36.817223,-1.286389]]}}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	pts, err := client.Fetch(context.Background(),
		models.GeoPoint{Lat: -1.1278, Lng: 36.9707},
		models.GeoPoint{Lat: -1.286389, Lng: 36.817223},
	)
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, models.GeoPoint{Lat: -1.1278, Lng: 36.9707}, pts[0])
	assert.Equal(t, models.GeoPoint{Lat: -1.286389, Lng: 36.817223}, pts[2])
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	pts, err := client.Fetch(context.Background(), models.GeoPoint{}, models.GeoPoint{})
	assert.Error(t, err)
	assert.Nil(t, pts)
}

func TestFetch_NoFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	pts, err := client.Fetch(context.Background(), models.GeoPoint{}, models.GeoPoint{})
	assert.Error(t, err)
	assert.Nil(t, pts)
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(srv.URL)
	_, err := client.Fetch(ctx, models.GeoPoint{}, models.GeoPoint{})
	assert.Error(t, err)
}
