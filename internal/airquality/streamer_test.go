package airquality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envlake/envlake/internal/run"
	"github.com/envlake/envlake/internal/storage"
)

func fixedClock() time.Time {
	return time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)
}

func newTestStreamer(src Source, store storage.Store) *StreamWriter {
	return NewStreamWriter(StreamWriterConfig{
		Source: src,
		Store:  store,
		Prefix: "bronze/openaq/",
		Logger: zerolog.Nop(),
		Now:    fixedClock,
	})
}

func TestStreamWritesEveryPage(t *testing.T) {
	// 2500 records at limit 1000 means exactly three pages.
	src := &fakeSource{
		measurementsFn: func(sensorID int, dateFrom, dateTo string, limit, page int) (*MeasurementPage, error) {
			return &MeasurementPage{
				Page:  page,
				Limit: 1000,
				Found: 2500,
				Raw:   []byte(fmt.Sprintf(`{"page":%d}`, page)),
			}, nil
		},
	}
	store := storage.NewMemoryStore()
	streamer := newTestStreamer(src, store)

	records, err := streamer.Stream(context.Background(), Sensor{ID: 42}, "DE", "Berlin", "pm25", "2014-01-01", "2026-08-28", "run-1")
	require.NoError(t, err)

	assert.Equal(t, 2500, records)
	assert.Equal(t, 3, src.measurementCalls)
	require.Equal(t, 3, store.Len())

	for page := 1; page <= 3; page++ {
		key := fmt.Sprintf("bronze/openaq/DE/berlin/pm25/sensor=42/page=%d_run-1_20260828T060000Z.json", page)
		body, ok := store.Get(key)
		require.True(t, ok, "missing %s", key)
		assert.JSONEq(t, fmt.Sprintf(`{"page":%d}`, page), string(body))
	}
}

func TestStreamEmptyWindowWritesNothing(t *testing.T) {
	src := &fakeSource{
		measurementsFn: func(sensorID int, dateFrom, dateTo string, limit, page int) (*MeasurementPage, error) {
			return &MeasurementPage{Found: 0, Limit: 1000}, nil
		},
	}
	store := storage.NewMemoryStore()
	streamer := newTestStreamer(src, store)

	records, err := streamer.Stream(context.Background(), Sensor{ID: 7}, "LU", "Luxembourg", "o3", "2014-01-01", "2026-08-28", "run-1")
	require.NoError(t, err)
	assert.Equal(t, 0, records)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 1, src.measurementCalls)
}

func TestStreamSlugsCityInKeys(t *testing.T) {
	src := &fakeSource{
		measurementsFn: func(sensorID int, dateFrom, dateTo string, limit, page int) (*MeasurementPage, error) {
			return &MeasurementPage{Found: 1, Limit: 1000, Raw: []byte(`{}`)}, nil
		},
	}
	store := storage.NewMemoryStore()
	streamer := newTestStreamer(src, store)

	_, err := streamer.Stream(context.Background(), Sensor{ID: 9}, "PL", "Łódź", "no2", "2014-01-01", "2026-08-28", "run-1")
	require.NoError(t, err)

	keys := store.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "bronze/openaq/PL/lodz/no2/sensor=9/page=1_run-1_20260828T060000Z.json", keys[0])
}

func TestStreamPropagatesFetchError(t *testing.T) {
	boom := errors.New("upstream 500")
	src := &fakeSource{
		measurementsFn: func(sensorID int, dateFrom, dateTo string, limit, page int) (*MeasurementPage, error) {
			return nil, boom
		},
	}
	store := storage.NewMemoryStore()
	streamer := newTestStreamer(src, store)

	_, err := streamer.Stream(context.Background(), Sensor{ID: 1}, "DE", "Berlin", "pm25", "2014-01-01", "2026-08-28", "run-1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())
}

func TestWriteManifest(t *testing.T) {
	store := storage.NewMemoryStore()
	streamer := newTestStreamer(&fakeSource{}, store)

	chosen := map[string]run.ChosenSensor{
		"pm25": {SensorID: 42, ObservedHours: 97},
		"no2":  {SensorID: 43, ObservedHours: 12},
	}
	err := streamer.WriteManifest(context.Background(), "DE", "Köln", "2014-01-01", "2026-08-28", chosen, "run-1")
	require.NoError(t, err)

	body, ok := store.Get("bronze/openaq/DE/koln/_manifest_run-1.json")
	require.True(t, ok)

	var manifest Manifest
	require.NoError(t, json.Unmarshal(body, &manifest))
	assert.Equal(t, "DE", manifest.Country)
	assert.Equal(t, "Köln", manifest.City)
	assert.Equal(t, "2014-01-01", manifest.DateFrom)
	assert.Equal(t, chosen, manifest.Chosen)
}
