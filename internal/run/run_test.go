package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusString(t *testing.T) {
	assert.Equal(t, "OK: sensor 42, records=97", OK("sensor %d, records=%d", 42, 97).String())
	assert.Equal(t, "WARN: no locations found in OpenAQ", Warn("no locations found in OpenAQ").String())
	assert.Equal(t, "ERROR: boom", Error("boom").String())
}

func TestLedgerKeys(t *testing.T) {
	assert.Equal(t, "DE:Berlin", CityKey("DE", "Berlin"))
	assert.Equal(t, "DE:Berlin_pm25", PollutantKey("DE", "Berlin", "pm25"))
}

func TestLedgerRender(t *testing.T) {
	l := Ledger{}
	l.Set(CityKey("PL", "Łódź"), Warn("no locations found in OpenAQ"))
	l.Set(PollutantKey("DE", "Berlin", "no2"), OK("sensor 7, records=10"))

	assert.Equal(t, map[string]string{
		"PL:Łódź":       "WARN: no locations found in OpenAQ",
		"DE:Berlin_no2": "OK: sensor 7, records=10",
	}, l.Render())
}

func TestFailed(t *testing.T) {
	result := Failed("S3_BUCKET is not configured")
	assert.Equal(t, 500, result.StatusCode)
	assert.Equal(t, "S3_BUCKET is not configured", result.Message)
	assert.Empty(t, result.StoredFiles)
}
