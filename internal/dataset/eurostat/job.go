// Package eurostat lands a fixed set of Eurostat dissemination datasets
// in the bronze layer, one object per dataset code per run.
package eurostat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/envlake/envlake/internal/provider/resilience"
	"github.com/envlake/envlake/internal/run"
	"github.com/envlake/envlake/internal/storage"
)

const (
	// DefaultBaseURL is the Eurostat dissemination API base URL.
	DefaultBaseURL = "https://ec.europa.eu/eurostat/api/dissemination/statistics/1.0/data"

	// ProviderName identifies this provider.
	ProviderName = "eurostat"
)

// DefaultDatasets maps the dataset codes of interest to a description.
// Health/environment first, socio-economic after.
var DefaultDatasets = map[string]string{
	"hlth_cd_aro":     "Deaths from respiratory diseases",
	"hlth_cd_asdr2":   "Standardised death rate by cause",
	"env_air_emis":    "Air pollutant emissions by source sector",
	"env_ac_ainah_r2": "Air emissions accounts by NACE Rev.2 activity",
	"env_air_gge":     "Greenhouse gas emissions",
	"nama_10_pc":      "GDP per capita (PPS)",
	"ilc_di12":        "Gini coefficient of income inequality",
	"ilc_li02":        "At-risk-of-poverty rate",
	"edat_lfse_03":    "Educational attainment (ISCED levels)",
	"hlth_silc_08":    "Unmet need for medical examination",
	"ilc_lvho05a":     "Overcrowding rate",
	"ilc_mdho06a":     "Severe housing deprivation rate",
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// JobConfig holds configuration for the Eurostat ingestion job.
type JobConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// Datasets overrides the dataset-code map (defaults to DefaultDatasets).
	Datasets map[string]string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer

	// Store is the bronze object store (required).
	Store storage.Store

	// Prefix is the bronze key prefix (default "bronze/eurostat/").
	Prefix string

	// Logger for job operations.
	Logger zerolog.Logger
}

// Job fetches the configured Eurostat datasets and stores the raw
// JSON-stat responses.
type Job struct {
	baseURL    string
	datasets   map[string]string
	httpClient HTTPDoer
	store      storage.Store
	prefix     string
	logger     zerolog.Logger
}

// NewJob creates a new Eurostat ingestion job.
func NewJob(cfg JobConfig) *Job {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	datasets := cfg.Datasets
	if datasets == nil {
		datasets = DefaultDatasets
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "bronze/eurostat/"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = 60 * time.Second
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Job{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		datasets:   datasets,
		httpClient: httpClient,
		store:      cfg.Store,
		prefix:     prefix,
		logger:     cfg.Logger,
	}
}

// Run fetches every configured dataset in code order and writes each raw
// response to the bronze layer. A failing dataset is recorded in the
// ledger and does not stop the remaining ones.
func (j *Job) Run(ctx context.Context, runID string) *run.Result {
	started := time.Now().UTC()
	ledger := run.Ledger{}

	codes := make([]string, 0, len(j.datasets))
	for code := range j.datasets {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		key, err := j.ingestDataset(ctx, code, runID)
		if err != nil {
			j.logger.Error().Err(err).Str("dataset", code).Msg("eurostat dataset failed")
			ledger.Set(code, run.Error("%s", err))
			continue
		}
		ledger.Set(code, run.OK("%s", key))
	}

	return &run.Result{
		StatusCode:  200,
		Message:     "Eurostat datasets successfully fetched and stored in bronze",
		RunID:       runID,
		StoredFiles: ledger.Render(),
		StartedAt:   started,
		FinishedAt:  time.Now().UTC(),
	}
}

func (j *Job) ingestDataset(ctx context.Context, code, runID string) (string, error) {
	url := fmt.Sprintf("%s/%s?lang=EN&geo=EU27_2020", j.baseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch dataset %s: %w", code, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read dataset %s: %w", code, err)
	}

	key := fmt.Sprintf("%s%s_%s.json", j.prefix, code, runID)
	if err := j.store.Put(ctx, key, body); err != nil {
		return "", err
	}

	j.logger.Info().Str("dataset", code).Str("key", key).Msg("stored Eurostat dataset")
	return key, nil
}
