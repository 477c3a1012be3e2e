// Package run defines the shared outcome model for ingestion runs: the
// per-item status ledger and the structured run result every dataset job
// returns.
package run

import (
	"fmt"
	"time"
)

// Level classifies a ledger entry.
type Level int

const (
	LevelOK Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelOK:
		return "OK"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Status is one outcome in the run ledger. The level stays structured
// until rendering so tests can branch on it without string matching.
type Status struct {
	Level   Level
	Message string
}

// OK builds a success status.
func OK(format string, args ...any) Status {
	return Status{Level: LevelOK, Message: fmt.Sprintf(format, args...)}
}

// Warn builds a warning status.
func Warn(format string, args ...any) Status {
	return Status{Level: LevelWarn, Message: fmt.Sprintf(format, args...)}
}

// Error builds a failure status.
func Error(format string, args ...any) Status {
	return Status{Level: LevelError, Message: fmt.Sprintf(format, args...)}
}

// String renders the ledger wire format, e.g. "OK: sensor 42, records=97".
func (s Status) String() string {
	return s.Level.String() + ": " + s.Message
}

// Ledger accumulates per-item statuses across a run, keyed
// "{country}:{city}" or "{country}:{city}_{pollutant}" for the
// air-quality pipeline and by dataset code for the single-shot jobs.
type Ledger map[string]Status

// Set records the status for a composite key.
func (l Ledger) Set(key string, status Status) {
	l[key] = status
}

// CityKey builds the ledger key for a city-level entry.
func CityKey(country, city string) string {
	return country + ":" + city
}

// PollutantKey builds the ledger key for a per-pollutant entry.
func PollutantKey(country, city, pollutant string) string {
	return country + ":" + city + "_" + pollutant
}

// Render flattens the ledger to its string form for the run result.
func (l Ledger) Render() map[string]string {
	out := make(map[string]string, len(l))
	for k, s := range l {
		out[k] = s.String()
	}
	return out
}

// ChosenSensor records the winning sensor for one pollutant in a city.
type ChosenSensor struct {
	SensorID      int `json:"sensor_id"`
	ObservedHours int `json:"observed_hours"`
}

// CitySummary is the per-city entry of the air-quality run summary.
type CitySummary struct {
	Country string                  `json:"country"`
	City    string                  `json:"city"`
	Chosen  map[string]ChosenSensor `json:"chosen"`
}

// Result is the structured outcome of one ingestion run.
type Result struct {
	StatusCode  int               `json:"statusCode"`
	Message     string            `json:"message"`
	RunID       string            `json:"run_id,omitempty"`
	StoredFiles map[string]string `json:"stored_files,omitempty"`
	Summary     []CitySummary     `json:"summary,omitempty"`
	StartedAt   time.Time         `json:"started_at,omitempty"`
	FinishedAt  time.Time         `json:"finished_at,omitempty"`
}

// Failed builds a 500 result with the given message. Used for the fatal
// configuration cases where no processing is attempted.
func Failed(message string) *Result {
	return &Result{StatusCode: 500, Message: message}
}
