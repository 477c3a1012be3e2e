package airquality

import (
	"context"

	"github.com/rs/zerolog"
)

// sensorPageLimit is the page size for the sensors listing. A single
// page at this limit is assumed sufficient; stations carry at most a few
// dozen sensors.
const sensorPageLimit = 1000

// SensorCatalog retrieves the sensors attached to a set of stations.
type SensorCatalog struct {
	source Source
	logger zerolog.Logger
}

// NewSensorCatalog creates a SensorCatalog.
func NewSensorCatalog(source Source, logger zerolog.Logger) *SensorCatalog {
	return &SensorCatalog{source: source, logger: logger}
}

// SensorsFor returns the sensors of all given stations, concatenated in
// station iteration order. A station with zero sensors contributes
// nothing.
func (c *SensorCatalog) SensorsFor(ctx context.Context, stations []Station) ([]Sensor, error) {
	var all []Sensor
	for _, station := range stations {
		sensors, err := c.source.Sensors(ctx, station.ID, sensorPageLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, sensors...)
	}

	c.logger.Debug().Int("stations", len(stations)).Int("sensors", len(all)).Msg("listed sensors")
	return all, nil
}
