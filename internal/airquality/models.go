// Package airquality implements the OpenAQ bronze acquisition pipeline:
// station discovery per city, sensor discovery per station, coverage-based
// sensor selection per pollutant, and paged measurement streaming into
// object storage.
package airquality

import (
	"github.com/envlake/envlake/internal/run"
)

// Station is a monitoring station as listed by the OpenAQ locations
// directory. Stations are transient: they only exist to derive sensors.
type Station struct {
	ID       int
	Name     string
	Locality string
}

// PlaceName returns the locality if present, falling back to the
// station name. Some national networks report only one of the two.
func (s Station) PlaceName() string {
	if s.Locality != "" {
		return s.Locality
	}
	return s.Name
}

// StationPage is one page of the station directory for a country, with
// the server-reported pagination metadata.
type StationPage struct {
	Stations []Station
	Found    int
	Limit    int
}

// Pollutant is a measured parameter with its OpenAQ parameter id.
type Pollutant struct {
	ID   int
	Name string
}

// Sensor is a physical sensor attached to a station, measuring exactly
// one pollutant.
type Sensor struct {
	ID        int
	StationID int
	Pollutant Pollutant
}

// CoverageScore ranks a sensor by observed-hour count over the query
// window. Transient ranking artifact; exactly one winner (or none) per
// pollutant per city.
type CoverageScore struct {
	Sensor        Sensor
	ObservedCount int
}

// MeasurementPage is one page of hourly measurements for a sensor,
// together with the server-reported pagination metadata. The raw body is
// retained verbatim for the bronze write.
type MeasurementPage struct {
	Page    int
	Limit   int
	Found   int
	Records []MeasurementRecord
	Raw     []byte
}

// MeasurementRecord carries the per-record coverage summary; payload
// fields are intentionally not modeled, the bronze layer stores pages
// untouched.
type MeasurementRecord struct {
	Coverage Coverage `json:"coverage"`
}

// Coverage is the observation-count summary attached to a measurement
// record.
type Coverage struct {
	ObservedCount int `json:"observedCount"`
}

// Manifest summarizes one city's acquisition: the chosen sensor per
// pollutant and the covered date range. Written exactly once per city
// after all pollutants are resolved (or skipped).
type Manifest struct {
	Country  string                      `json:"country"`
	City     string                      `json:"city"`
	DateFrom string                      `json:"date_from"`
	DateTo   string                      `json:"date_to"`
	Chosen   map[string]run.ChosenSensor `json:"chosen"`
}
