package openroute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mytransittn/transitfare/internal/core/domain"
)

// Client implements ports.DistanceProvider against an OpenRouteService
// compatible directions API. Every request is bounded by the configured
// timeout; callers treat any error as a signal to fall back locally.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New creates a Client. timeout bounds each request end to end.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type directionsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"` // meters
		} `json:"summary"`
	} `json:"routes"`
}

// RoadDistanceKm asks the API for the driving distance between two points.
func (c *Client) RoadDistanceKm(ctx context.Context, a, b domain.GeoPoint) (float64, error) {
	// ORS expects [lon, lat] pairs.
	body, err := json.Marshal(directionsRequest{
		Coordinates: [][2]float64{{a.Lon, a.Lat}, {b.Lon, b.Lat}},
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/directions/driving-car", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("directions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("directions request: status %d", resp.StatusCode)
	}

	var out directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode directions response: %w", err)
	}
	if len(out.Routes) == 0 {
		return 0, fmt.Errorf("no route in directions response")
	}

	return out.Routes[0].Summary.Distance / 1000.0, nil
}
