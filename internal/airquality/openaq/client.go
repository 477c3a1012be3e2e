// Package openaq provides a client for the OpenAQ v3 API.
package openaq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/envlake/envlake/internal/airquality"
	"github.com/envlake/envlake/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the OpenAQ API.
	DefaultBaseURL = "https://api.openaq.org/v3"

	// ProviderName identifies this provider.
	ProviderName = "openaq"
)

// ErrMissingAPIKey is returned before any network call when the client
// has no credential configured. OpenAQ rejects anonymous requests, so
// the whole run fails fast instead of burning the rate budget.
var ErrMissingAPIKey = errors.New("openaq api key not configured")

// ClientConfig holds configuration for the OpenAQ client.
type ClientConfig struct {
	// APIKey is the OpenAQ API key (required).
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default throttle-aware client is created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 30s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an OpenAQ API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new OpenAQ client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout != 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// API response types (from the OpenAQ API).

type metaInfo struct {
	Found int `json:"found"`
	Limit int `json:"limit"`
	Page  int `json:"page"`
}

type locationsResponse struct {
	Meta    metaInfo       `json:"meta"`
	Results []locationData `json:"results"`
}

type locationData struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Locality string `json:"locality"`
}

type sensorsResponse struct {
	Results []sensorData `json:"results"`
}

type sensorData struct {
	ID        int           `json:"id"`
	Parameter parameterData `json:"parameter"`
}

type parameterData struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type measurementsResponse struct {
	Meta    metaInfo                       `json:"meta"`
	Results []airquality.MeasurementRecord `json:"results"`
}

// Locations fetches one page of the station directory for a country.
func (c *Client) Locations(ctx context.Context, iso string, limit, page int) (*airquality.StationPage, error) {
	query := url.Values{}
	query.Set("iso", iso)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("page", strconv.Itoa(page))

	body, err := c.get(ctx, fmt.Sprintf("%s/locations?%s", c.baseURL, query.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetch locations for %s: %w", iso, err)
	}

	var result locationsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode locations response: %w", err)
	}

	stations := make([]airquality.Station, 0, len(result.Results))
	for _, loc := range result.Results {
		stations = append(stations, airquality.Station{
			ID:       loc.ID,
			Name:     loc.Name,
			Locality: loc.Locality,
		})
	}

	return &airquality.StationPage{
		Stations: stations,
		Found:    result.Meta.Found,
		Limit:    result.Meta.Limit,
	}, nil
}

// Sensors fetches the sensors attached to a station. A single page at
// the given limit is assumed sufficient; stations carry at most a few
// dozen sensors.
func (c *Client) Sensors(ctx context.Context, stationID, limit int) ([]airquality.Sensor, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("page", "1")

	body, err := c.get(ctx, fmt.Sprintf("%s/locations/%d/sensors?%s", c.baseURL, stationID, query.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetch sensors for station %d: %w", stationID, err)
	}

	var result sensorsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode sensors response: %w", err)
	}

	sensors := make([]airquality.Sensor, 0, len(result.Results))
	for _, s := range result.Results {
		sensors = append(sensors, airquality.Sensor{
			ID:        s.ID,
			StationID: stationID,
			Pollutant: airquality.Pollutant{ID: s.Parameter.ID, Name: s.Parameter.Name},
		})
	}

	return sensors, nil
}

// Measurements fetches one page of hourly measurements for a sensor over
// a date range. The raw body is retained on the returned page for the
// bronze write.
func (c *Client) Measurements(ctx context.Context, sensorID int, dateFrom, dateTo string, limit, page int) (*airquality.MeasurementPage, error) {
	query := url.Values{}
	query.Set("datetime_from", dateFrom)
	query.Set("datetime_to", dateTo)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("page", strconv.Itoa(page))

	body, err := c.get(ctx, fmt.Sprintf("%s/sensors/%d/measurements/hourly?%s", c.baseURL, sensorID, query.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetch measurements for sensor %d page %d: %w", sensorID, page, err)
	}

	var result measurementsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode measurements response: %w", err)
	}

	return &airquality.MeasurementPage{
		Page:    page,
		Limit:   result.Meta.Limit,
		Found:   result.Meta.Found,
		Records: result.Results,
		Raw:     body,
	}, nil
}

// get executes an authenticated GET and returns the response body.
// Fails with ErrMissingAPIKey before any network I/O when no credential
// is configured.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}
