package airquality

import (
	"context"
)

// fakeSource is a scriptable Source shared by the pipeline tests. Each
// hook receives the request parameters; call counters record how often
// the pipeline touched each endpoint.
type fakeSource struct {
	locationsFn    func(iso string, limit, page int) (*StationPage, error)
	sensorsFn      func(stationID, limit int) ([]Sensor, error)
	measurementsFn func(sensorID int, dateFrom, dateTo string, limit, page int) (*MeasurementPage, error)

	locationCalls    int
	sensorCalls      int
	measurementCalls int
}

func (f *fakeSource) Locations(_ context.Context, iso string, limit, page int) (*StationPage, error) {
	f.locationCalls++
	return f.locationsFn(iso, limit, page)
}

func (f *fakeSource) Sensors(_ context.Context, stationID, limit int) ([]Sensor, error) {
	f.sensorCalls++
	if f.sensorsFn == nil {
		return nil, nil
	}
	return f.sensorsFn(stationID, limit)
}

func (f *fakeSource) Measurements(_ context.Context, sensorID int, dateFrom, dateTo string, limit, page int) (*MeasurementPage, error) {
	f.measurementCalls++
	return f.measurementsFn(sensorID, dateFrom, dateTo, limit, page)
}
