package airquality

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/envlake/envlake/internal/run"
	"github.com/envlake/envlake/internal/storage"
	"github.com/envlake/envlake/pkg/normalize"
)

// ServiceConfig holds configuration for the acquisition service.
type ServiceConfig struct {
	// Source is the OpenAQ API access (required).
	Source Source

	// Store is the bronze object store (required).
	Store storage.Store

	// Prefix is the bronze key prefix (default "bronze/openaq/").
	Prefix string

	// Countries limits the run to the given ISO2 codes.
	// Default: EU27Countries.
	Countries []string

	// Targets overrides the city targets per country, keyed by ISO2
	// code. Default: DefaultCityTargets per country.
	Targets map[string][]CityTarget

	// Pollutants to acquire per city. Default: DefaultPollutants.
	Pollutants []Pollutant

	// DateFrom / DateTo bound the acquisition window (wire format
	// YYYY-MM-DD). Defaults: DefaultDateFrom and today UTC.
	DateFrom string
	DateTo   string

	// Logger for service operations.
	Logger zerolog.Logger

	// Tracer for per-city spans. Defaults to a no-op tracer.
	Tracer trace.Tracer

	// Now overrides the clock, used by tests.
	Now func() time.Time
}

// Service orchestrates the acquisition: countries, then cities, then
// pollutants, then pages, strictly sequential. Serial execution is
// deliberate; OpenAQ enforces per-key rate limits and parallel fan-out
// would trade throughput for 429 churn.
type Service struct {
	resolver *LocationResolver
	catalog  *SensorCatalog
	scorer   *CoverageScorer
	streamer *StreamWriter

	countries  []string
	targets    map[string][]CityTarget
	pollutants []Pollutant
	dateFrom   string
	dateTo     string

	logger zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewService creates the acquisition service and its pipeline stages.
func NewService(cfg ServiceConfig) *Service {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "bronze/openaq/"
	}
	countries := cfg.Countries
	if len(countries) == 0 {
		countries = EU27Countries
	}
	pollutants := cfg.Pollutants
	if len(pollutants) == 0 {
		pollutants = DefaultPollutants
	}
	dateFrom := cfg.DateFrom
	if dateFrom == "" {
		dateFrom = DefaultDateFrom
	}
	dateTo := cfg.DateTo
	if dateTo == "" {
		dateTo = DefaultDateTo()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("airquality")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		resolver: NewLocationResolver(cfg.Source, nil, cfg.Logger),
		catalog:  NewSensorCatalog(cfg.Source, cfg.Logger),
		scorer:   NewCoverageScorer(cfg.Source, cfg.Logger),
		streamer: NewStreamWriter(StreamWriterConfig{
			Source: cfg.Source,
			Store:  cfg.Store,
			Prefix: prefix,
			Logger: cfg.Logger,
			Now:    cfg.Now,
		}),
		countries:  countries,
		targets:    cfg.Targets,
		pollutants: pollutants,
		dateFrom:   dateFrom,
		dateTo:     dateTo,
		logger:     cfg.Logger,
		tracer:     tracer,
		now:        now,
	}
}

// Run executes the acquisition for all configured countries and cities
// and returns the run ledger and summary. Failures are isolated per
// city: an error inside one city's unit of work is recorded in the
// ledger and the run continues.
func (s *Service) Run(ctx context.Context, runID string) *run.Result {
	started := s.now().UTC()
	ledger := run.Ledger{}
	var summary []run.CitySummary

	s.logger.Info().
		Str("run_id", runID).
		Int("countries", len(s.countries)).
		Str("date_from", s.dateFrom).
		Str("date_to", s.dateTo).
		Msg("starting air quality acquisition")

	for _, country := range s.countries {
		for _, target := range s.targetsFor(country) {
			cityCtx, span := s.tracer.Start(ctx, "airquality.city",
				trace.WithAttributes(
					attribute.String("country", target.Country),
					attribute.String("city", target.City),
				))
			if cs, ok := s.processCity(cityCtx, target, runID, ledger); ok {
				summary = append(summary, cs)
			}
			span.End()
		}
	}

	finished := s.now().UTC()
	s.logger.Info().
		Str("run_id", runID).
		Int("ledger_entries", len(ledger)).
		Int("cities_completed", len(summary)).
		Dur("duration", finished.Sub(started)).
		Msg("air quality acquisition completed")

	return &run.Result{
		StatusCode:  200,
		Message:     "OpenAQ data successfully fetched and stored in bronze",
		RunID:       runID,
		StoredFiles: ledger.Render(),
		Summary:     summary,
		StartedAt:   started,
		FinishedAt:  finished,
	}
}

func (s *Service) targetsFor(country string) []CityTarget {
	if s.targets != nil {
		return s.targets[country]
	}
	return DefaultCityTargets(country)
}

// processCity runs the full pipeline for one city target. The boolean
// reports whether the city completed through its manifest; any failure
// is recorded as a terminal ERROR for the city and processing of the
// remaining cities continues.
func (s *Service) processCity(ctx context.Context, target CityTarget, runID string, ledger run.Ledger) (run.CitySummary, bool) {
	country, city := target.Country, target.City
	cityKey := run.CityKey(country, city)

	log := s.logger.With().
		Str("country", country).
		Str("city", city).
		Str("slug", normalize.Slug(city)).
		Logger()

	stations, err := s.resolver.Resolve(ctx, country, city)
	if err != nil {
		log.Error().Err(err).Msg("location resolution failed")
		ledger.Set(cityKey, run.Error("%s", err))
		return run.CitySummary{}, false
	}
	if len(stations) == 0 {
		log.Warn().Msg("no locations found in OpenAQ")
		ledger.Set(cityKey, run.Warn("no locations found in OpenAQ"))
		return run.CitySummary{}, false
	}

	sensors, err := s.catalog.SensorsFor(ctx, stations)
	if err != nil {
		log.Error().Err(err).Msg("sensor listing failed")
		ledger.Set(cityKey, run.Error("%s", err))
		return run.CitySummary{}, false
	}

	chosen := make(map[string]run.ChosenSensor)
	for _, pollutant := range s.pollutants {
		key := run.PollutantKey(country, city, pollutant.Name)

		sensor, observed, ok := s.scorer.BestSensor(ctx, sensors, pollutant, s.dateFrom, s.dateTo)
		if !ok {
			ledger.Set(key, run.Warn("no sensor for parameter"))
			continue
		}

		records, err := s.streamer.Stream(ctx, sensor, country, city, pollutant.Name, s.dateFrom, s.dateTo, runID)
		if err != nil {
			log.Error().Err(err).Str("pollutant", pollutant.Name).Msg("measurement streaming failed")
			ledger.Set(cityKey, run.Error("%s", err))
			return run.CitySummary{}, false
		}

		ledger.Set(key, run.OK("sensor %d, records=%d", sensor.ID, records))
		chosen[pollutant.Name] = run.ChosenSensor{SensorID: sensor.ID, ObservedHours: observed}
	}

	if err := s.streamer.WriteManifest(ctx, country, city, s.dateFrom, s.dateTo, chosen, runID); err != nil {
		log.Error().Err(err).Msg("manifest write failed")
		ledger.Set(cityKey, run.Error("%s", err))
		return run.CitySummary{}, false
	}

	return run.CitySummary{Country: country, City: city, Chosen: chosen}, true
}
