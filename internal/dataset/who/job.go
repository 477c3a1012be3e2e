// Package who lands selected WHO Global Health Observatory indicators in
// the bronze layer, filtered to yearly EU27 records, one object per
// indicator per run.
package who

import (
	"context"
	"encoding/json"
	"fmt"
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
	// DefaultBaseURL is the WHO GHO OData API base URL.
	DefaultBaseURL = "https://ghoapi.azureedge.net/api"

	// ProviderName identifies this provider.
	ProviderName = "who"
)

// DefaultIndicators maps the GHO indicator codes of interest to a
// description. Air pollution burden first, broader environment after.
var DefaultIndicators = map[string]string{
	"AIR_10":    "Ambient air pollution attributable DALYs per 100k children under 5",
	"AIR_12":    "Household air pollution attributable deaths in children under 5",
	"AIR_15":    "Household air pollution attributable DALYs",
	"AIR_16":    "Household air pollution attributable DALYs in children under 5",
	"AIR_35":    "Joint effects of air pollution attributable deaths",
	"AIR_42":    "Ambient air pollution attributable death rate (per 100k, age-standardized)",
	"AIR_46":    "YLLs attributable to ambient air pollution (age-standardized)",
	"AIR_6":     "Ambient air pollution attributable deaths per 100k children under 5",
	"AIR_60":    "Household and ambient air pollution attributable DALYs",
	"AIR_62":    "Household and ambient air pollution attributable DALYs (per 100k, age-standardized)",
	"MORT_500":  "Number of deaths",
	"MORT_700":  "Projection of deaths per 100k population",
	"TOTENV_3":  "DALYs attributable to the environment",
	"TOTENV_90": "Total environment attributable DALYs in children under 5",
}

// EU27ISO3 is the EU27 membership in the ISO3 coding WHO uses for its
// spatial dimension.
var EU27ISO3 = map[string]bool{
	"AUT": true, "BEL": true, "BGR": true, "HRV": true, "CYP": true,
	"CZE": true, "DNK": true, "EST": true, "FIN": true, "FRA": true,
	"DEU": true, "GRC": true, "HUN": true, "IRL": true, "ITA": true,
	"LVA": true, "LTU": true, "LUX": true, "MLT": true, "NLD": true,
	"POL": true, "PRT": true, "ROU": true, "SVK": true, "SVN": true,
	"ESP": true, "SWE": true,
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// JobConfig holds configuration for the WHO ingestion job.
type JobConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// Indicators overrides the indicator map (defaults to DefaultIndicators).
	Indicators map[string]string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer

	// Store is the bronze object store (required).
	Store storage.Store

	// Prefix is the bronze key prefix (default "bronze/who/").
	Prefix string

	// Logger for job operations.
	Logger zerolog.Logger
}

// Job fetches the configured WHO indicators, filters records to yearly
// EU27 observations, and stores the filtered payloads.
type Job struct {
	baseURL    string
	indicators map[string]string
	httpClient HTTPDoer
	store      storage.Store
	prefix     string
	logger     zerolog.Logger
}

// NewJob creates a new WHO ingestion job.
func NewJob(cfg JobConfig) *Job {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	indicators := cfg.Indicators
	if indicators == nil {
		indicators = DefaultIndicators
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "bronze/who/"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = 60 * time.Second
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Job{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		indicators: indicators,
		httpClient: httpClient,
		store:      cfg.Store,
		prefix:     prefix,
		logger:     cfg.Logger,
	}
}

// indicatorResponse is the GHO OData envelope. Records are kept as raw
// JSON apart from the two dimensions the filter needs.
type indicatorResponse struct {
	Value []indicatorRecord `json:"value"`
}

type indicatorRecord struct {
	SpatialDim  string `json:"SpatialDim"`
	TimeDimType string `json:"TimeDimType"`

	raw json.RawMessage
}

func (r *indicatorRecord) UnmarshalJSON(data []byte) error {
	type alias indicatorRecord
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = indicatorRecord(a)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

// filteredIndicator is the stored payload shape.
type filteredIndicator struct {
	Indicator string            `json:"indicator"`
	Records   []json.RawMessage `json:"records"`
}

// Run fetches every configured indicator in code order, filters each to
// yearly EU27 records, and writes one object per indicator. A failing
// indicator is recorded in the ledger and does not stop the rest.
func (j *Job) Run(ctx context.Context, runID string) *run.Result {
	started := time.Now().UTC()
	ledger := run.Ledger{}

	codes := make([]string, 0, len(j.indicators))
	for code := range j.indicators {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		key, err := j.ingestIndicator(ctx, code, runID)
		if err != nil {
			j.logger.Error().Err(err).Str("indicator", code).Msg("who indicator failed")
			ledger.Set(code, run.Error("%s", err))
			continue
		}
		ledger.Set(code, run.OK("%s", key))
	}

	return &run.Result{
		StatusCode:  200,
		Message:     "WHO indicators successfully fetched and stored in bronze",
		RunID:       runID,
		StoredFiles: ledger.Render(),
		StartedAt:   started,
		FinishedAt:  time.Now().UTC(),
	}
}

func (j *Job) ingestIndicator(ctx context.Context, code, runID string) (string, error) {
	url := fmt.Sprintf("%s/%s", j.baseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch indicator %s: %w", code, err)
	}
	defer resp.Body.Close()

	var decoded indicatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode indicator %s: %w", code, err)
	}

	filtered := filteredIndicator{Indicator: code, Records: []json.RawMessage{}}
	for _, rec := range decoded.Value {
		if EU27ISO3[rec.SpatialDim] && rec.TimeDimType == "YEAR" {
			filtered.Records = append(filtered.Records, rec.raw)
		}
	}

	body, err := json.Marshal(filtered)
	if err != nil {
		return "", fmt.Errorf("marshal indicator %s: %w", code, err)
	}

	key := fmt.Sprintf("%s%s_%s.json", j.prefix, code, runID)
	if err := j.store.Put(ctx, key, body); err != nil {
		return "", err
	}

	j.logger.Info().
		Str("indicator", code).
		Str("key", key).
		Int("records", len(filtered.Records)).
		Msg("stored WHO indicator")
	return key, nil
}
