// Package ecdc lands the ECDC national COVID-19 cases/deaths dataset in
// the bronze layer. Single-shot: one fetch, one object per run.
package ecdc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/envlake/envlake/internal/provider/resilience"
	"github.com/envlake/envlake/internal/run"
	"github.com/envlake/envlake/internal/storage"
)

const (
	// DefaultBaseURL is the ECDC national cases & deaths JSON endpoint.
	DefaultBaseURL = "https://opendata.ecdc.europa.eu/covid19/nationalcasedeath/json/"

	// ProviderName identifies this provider.
	ProviderName = "ecdc"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// JobConfig holds configuration for the ECDC ingestion job.
type JobConfig struct {
	// BaseURL is the dataset URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer

	// Store is the bronze object store (required).
	Store storage.Store

	// Prefix is the bronze key prefix (default "bronze/ecdc/").
	Prefix string

	// Logger for job operations.
	Logger zerolog.Logger
}

// Job fetches the ECDC dataset and stores the raw response.
type Job struct {
	baseURL    string
	httpClient HTTPDoer
	store      storage.Store
	prefix     string
	logger     zerolog.Logger
}

// NewJob creates a new ECDC ingestion job.
func NewJob(cfg JobConfig) *Job {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "bronze/ecdc/"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = 60 * time.Second
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Job{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/",
		httpClient: httpClient,
		store:      cfg.Store,
		prefix:     prefix,
		logger:     cfg.Logger,
	}
}

// Run fetches the dataset and writes it to the bronze layer.
func (j *Job) Run(ctx context.Context, runID string) *run.Result {
	started := time.Now().UTC()

	body, err := j.fetch(ctx)
	if err != nil {
		j.logger.Error().Err(err).Msg("ecdc fetch failed")
		return run.Failed(err.Error())
	}

	key := fmt.Sprintf("%secdc_covid_%s.json", j.prefix, runID)
	if err := j.store.Put(ctx, key, body); err != nil {
		j.logger.Error().Err(err).Str("key", key).Msg("ecdc store failed")
		return run.Failed(err.Error())
	}

	j.logger.Info().Str("key", key).Msg("stored ECDC dataset")

	return &run.Result{
		StatusCode:  200,
		Message:     "ECDC COVID-19 data successfully fetched and stored in bronze",
		RunID:       runID,
		StoredFiles: map[string]string{"ecdc_covid": key},
		StartedAt:   started,
		FinishedAt:  time.Now().UTC(),
	}
}

func (j *Job) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.baseURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ecdc dataset: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ecdc response: %w", err)
	}
	return body, nil
}
