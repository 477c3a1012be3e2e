package airquality

import (
	"context"

	"github.com/rs/zerolog"
)

// CoverageScorer selects, per pollutant, the sensor with the best
// data coverage over the acquisition window.
type CoverageScorer struct {
	source Source
	logger zerolog.Logger
}

// NewCoverageScorer creates a CoverageScorer.
func NewCoverageScorer(source Source, logger zerolog.Logger) *CoverageScorer {
	return &CoverageScorer{source: source, logger: logger}
}

// BestSensor returns the candidate sensor measuring pollutant with the
// highest observed-hour count over [dateFrom, dateTo], its count, and
// whether any candidate qualified. Ties keep the first candidate in
// iteration order. A failed or empty coverage query scores the sensor
// as zero and evaluation continues with the remaining candidates.
//
// Coverage is read from a limit=1 query: the first record's
// observedCount stands in for full-range coverage. That mirrors the
// upstream summary semantics this pipeline was built against.
func (s *CoverageScorer) BestSensor(ctx context.Context, sensors []Sensor, pollutant Pollutant, dateFrom, dateTo string) (Sensor, int, bool) {
	var best Sensor
	bestCount := -1
	found := false

	for _, sensor := range sensors {
		if sensor.Pollutant.ID != pollutant.ID {
			continue
		}

		count := s.coverage(ctx, sensor, pollutant, dateFrom, dateTo)
		if !found || count > bestCount {
			best = sensor
			bestCount = count
			found = true
		}
	}

	if !found {
		return Sensor{}, -1, false
	}

	s.logger.Debug().
		Str("pollutant", pollutant.Name).
		Int("sensor_id", best.ID).
		Int("observed_count", bestCount).
		Msg("selected sensor")

	return best, bestCount, true
}

// coverage returns the observed-hour count for one candidate. Failures
// fall back to zero so a single broken sensor cannot sink the whole
// pollutant; the fallback is logged so it stays observable.
func (s *CoverageScorer) coverage(ctx context.Context, sensor Sensor, pollutant Pollutant, dateFrom, dateTo string) int {
	page, err := s.source.Measurements(ctx, sensor.ID, dateFrom, dateTo, 1, 1)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("sensor_id", sensor.ID).
			Str("pollutant", pollutant.Name).
			Msg("coverage query failed, scoring sensor as zero")
		return 0
	}
	if len(page.Records) == 0 {
		return 0
	}
	return page.Records[0].Coverage.ObservedCount
}
