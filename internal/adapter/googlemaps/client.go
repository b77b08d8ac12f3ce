// Package googlemaps implements domain.Geocoder using the Google Maps
// Geocoding API.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/geofinch/disaster-monitor/internal/domain"
	"github.com/geofinch/disaster-monitor/internal/observability"
)

// Client reverse-geocodes coordinates into place details.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Google Maps geocoding client.
func NewClient(apiKey string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://maps.googleapis.com/maps/api/geocode/json",
		logger:  logger,
		metrics: metrics,
	}
}

// ReverseGeocode converts coordinates to a formatted address and country code.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Place, error) {
	params := url.Values{
		"latlng":      {fmt.Sprintf("%.6f,%.6f", lat, lon)},
		"key":         {c.apiKey},
		"result_type": {"country|administrative_area_level_1|locality"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Place{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return domain.Place{}, fmt.Errorf("maps API error: status %d: %s", resp.StatusCode, body)
	}

	var geocodeResp response
	if err := json.NewDecoder(resp.Body).Decode(&geocodeResp); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Place{}, fmt.Errorf("decode response: %w", err)
	}

	// ZERO_RESULTS is a valid empty answer, not an API failure.
	if geocodeResp.Status != "OK" && geocodeResp.Status != "ZERO_RESULTS" {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Place{}, fmt.Errorf("maps API status %s: %s", geocodeResp.Status, geocodeResp.ErrorMessage)
	}
	if len(geocodeResp.Results) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		return domain.Place{}, nil
	}

	r := geocodeResp.Results[0]
	place := domain.Place{FormattedAddress: r.FormattedAddress}
	for _, comp := range r.AddressComponents {
		for _, t := range comp.Types {
			if t == "country" {
				place.CountryCode = comp.ShortName
			}
		}
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return place, nil
}

// Google Maps API response types.

type response struct {
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message"`
	Results      []result `json:"results"`
}

type result struct {
	FormattedAddress  string      `json:"formatted_address"`
	AddressComponents []component `json:"address_components"`
}

type component struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}
