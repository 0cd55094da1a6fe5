package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/safiridev/bus-tracking/internal/models"
)

// DefaultBaseURL is the OpenRouteService driving directions endpoint.
const DefaultBaseURL = "https://api.openrouteservice.org/v2/directions/driving-car/geojson"

// RouteProvider resolves a start/end pair to an ordered waypoint sequence.
// An error or empty result means "no route right now"; callers retry later.
type RouteProvider interface {
	Fetch(ctx context.Context, start, end models.GeoPoint) ([]models.GeoPoint, error)
}

// Client is an OpenRouteService route provider.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates an ORS client with a bounded request timeout so a stalled
// fetch cannot starve the tick loop.
func NewClient(apiKey string, timeout time.Duration) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Fetch requests the driving route between start and end. ORS speaks GeoJSON,
// so coordinates are [lng, lat] on the wire in both directions.
func (c *Client) Fetch(ctx context.Context, start, end models.GeoPoint) ([]models.GeoPoint, error) {
	payload := directionsRequest{
		Coordinates: [][]float64{
			{start.Lng, start.Lat},
			{end.Lng, end.Lat},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal directions request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ors request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ors status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var obj directionsResponse
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode ors response: %w", err)
	}
	if len(obj.Features) == 0 {
		return nil, fmt.Errorf("ors returned no route")
	}

	coords := obj.Features[0].Geometry.Coordinates
	pts := make([]models.GeoPoint, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		pts = append(pts, models.GeoPoint{Lat: c[1], Lng: c[0]})
	}
	return pts, nil
}
