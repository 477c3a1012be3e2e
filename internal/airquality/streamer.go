package airquality

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/envlake/envlake/internal/run"
	"github.com/envlake/envlake/internal/storage"
	"github.com/envlake/envlake/pkg/normalize"
)

// measurementPageLimit is the page size for measurement streaming.
const measurementPageLimit = 1000

// timestampLayout is the wall-clock component of page object keys.
const timestampLayout = "20060102T150405Z"

// StreamWriter drives the page-by-page measurement fetch for a chosen
// sensor, landing every page in the bronze layer as it arrives, and
// writes the per-city manifest.
type StreamWriter struct {
	source Source
	store  storage.Store
	prefix string
	logger zerolog.Logger
	now    func() time.Time
}

// StreamWriterConfig holds configuration for a StreamWriter.
type StreamWriterConfig struct {
	Source Source
	Store  storage.Store

	// Prefix is the bronze key prefix, e.g. "bronze/openaq/".
	Prefix string

	Logger zerolog.Logger

	// Now overrides the clock, used by tests. Defaults to time.Now.
	Now func() time.Time
}

// NewStreamWriter creates a StreamWriter.
func NewStreamWriter(cfg StreamWriterConfig) *StreamWriter {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &StreamWriter{
		source: cfg.Source,
		store:  cfg.Store,
		prefix: cfg.Prefix,
		logger: cfg.Logger,
		now:    now,
	}
}

// Stream fetches hourly measurements for sensor over [dateFrom, dateTo]
// page by page, writing each raw page immediately, and returns the
// total record count the server reported on the first page. Termination
// follows page*limit >= found; found == 0 on the first page writes
// nothing and returns zero.
func (w *StreamWriter) Stream(ctx context.Context, sensor Sensor, country, city, pollutant, dateFrom, dateTo, runID string) (int, error) {
	found := 0
	limit := measurementPageLimit

	page := 1
	for {
		mp, err := w.source.Measurements(ctx, sensor.ID, dateFrom, dateTo, measurementPageLimit, page)
		if err != nil {
			return 0, err
		}

		if page == 1 {
			// The server-reported total is assumed stable across pages
			// for one query; later pages do not update it.
			found = mp.Found
			if mp.Limit > 0 {
				limit = mp.Limit
			}
			if found == 0 {
				return 0, nil
			}
		}

		key := w.pageKey(country, city, pollutant, sensor.ID, page, runID)
		if err := w.store.Put(ctx, key, mp.Raw); err != nil {
			return 0, err
		}

		w.logger.Debug().
			Str("key", key).
			Int("page", page).
			Int("found", found).
			Msg("stored measurement page")

		if page*limit >= found {
			break
		}
		page++
	}

	return found, nil
}

// WriteManifest writes the per-city summary of chosen sensors exactly
// once, after all pollutants for the city are resolved or skipped.
func (w *StreamWriter) WriteManifest(ctx context.Context, country, city, dateFrom, dateTo string, chosen map[string]run.ChosenSensor, runID string) error {
	manifest := Manifest{
		Country:  country,
		City:     city,
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Chosen:   chosen,
	}

	body, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest for %s/%s: %w", country, city, err)
	}

	key := fmt.Sprintf("%s%s/%s/_manifest_%s.json", w.prefix, country, normalize.Slug(city), runID)
	if err := w.store.Put(ctx, key, body); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	w.logger.Info().Str("key", key).Int("chosen", len(chosen)).Msg("wrote city manifest")
	return nil
}

// pageKey builds the bronze object key for one measurement page. Keys
// embed the run id and a wall-clock timestamp so repeated runs never
// collide.
func (w *StreamWriter) pageKey(country, city, pollutant string, sensorID, page int, runID string) string {
	return fmt.Sprintf("%s%s/%s/%s/sensor=%d/page=%d_%s_%s.json",
		w.prefix, country, normalize.Slug(city), pollutant, sensorID, page,
		runID, w.now().UTC().Format(timestampLayout))
}
