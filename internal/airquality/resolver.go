package airquality

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/envlake/envlake/pkg/normalize"
)

// Source is the slice of the OpenAQ API the acquisition pipeline
// consumes. Implemented by the openaq client; tests substitute fakes.
type Source interface {
	// Locations fetches one page of the station directory for a country.
	Locations(ctx context.Context, iso string, limit, page int) (*StationPage, error)

	// Sensors fetches the sensors attached to a station.
	Sensors(ctx context.Context, stationID, limit int) ([]Sensor, error)

	// Measurements fetches one page of hourly measurements for a sensor.
	Measurements(ctx context.Context, sensorID int, dateFrom, dateTo string, limit, page int) (*MeasurementPage, error)
}

// directoryPageLimit is the page size requested from the station
// directory. The server reports the effective limit back in meta.
const directoryPageLimit = 1000

// LocationResolver finds the monitoring stations of a city by paging the
// country's station directory and matching localities against the
// configured city name.
type LocationResolver struct {
	source  Source
	matcher *normalize.Matcher
	logger  zerolog.Logger
}

// NewLocationResolver creates a LocationResolver. A nil matcher uses the
// built-in EU alias table.
func NewLocationResolver(source Source, matcher *normalize.Matcher, logger zerolog.Logger) *LocationResolver {
	if matcher == nil {
		matcher = normalize.DefaultMatcher
	}
	return &LocationResolver{source: source, matcher: matcher, logger: logger}
}

// Resolve returns the stations of country whose locality (or name)
// matches city. An empty result is not an error; the caller records it
// as a warning. Termination follows the server-reported metadata:
// page*limit >= found, re-evaluated after every page, with found == 0 on
// the first page yielding an empty result immediately.
func (r *LocationResolver) Resolve(ctx context.Context, country, city string) ([]Station, error) {
	var matched []Station

	page := 1
	for {
		dir, err := r.source.Locations(ctx, country, directoryPageLimit, page)
		if err != nil {
			return nil, err
		}

		for _, station := range dir.Stations {
			if r.matcher.Matches(station.PlaceName(), city) {
				matched = append(matched, station)
			}
		}

		limit := dir.Limit
		if limit <= 0 {
			limit = directoryPageLimit
		}
		if dir.Found == 0 || page*limit >= dir.Found {
			break
		}
		page++
	}

	r.logger.Debug().
		Str("country", country).
		Str("city", city).
		Int("stations", len(matched)).
		Msg("resolved locations")

	return matched, nil
}
