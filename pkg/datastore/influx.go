package datastore

import (
	"context"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// WriteMeasurement is the measurement name of client write points.
const WriteMeasurement = "sensor_write"

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxStore records client writes as InfluxDB points. It holds no
// sensor rows.
type InfluxStore struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxStore creates a sink using the blocking write API.
func NewInfluxStore(cfg InfluxConfig) *InfluxStore {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxStore{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

// NewInfluxStoreWithAPI wraps an existing write API.
func NewInfluxStoreWithAPI(writeAPI api.WriteAPIBlocking) *InfluxStore {
	return &InfluxStore{writeAPI: writeAPI}
}

// LoadSensors returns no rows.
func (s *InfluxStore) LoadSensors(context.Context) ([]SensorRow, error) {
	return nil, nil
}

// RecordWrite writes one sensor_write point.
func (s *InfluxStore) RecordWrite(ctx context.Context, rec WriteRecord) error {
	p := influxdb2.NewPoint(
		WriteMeasurement,
		map[string]string{
			"module": strconv.Itoa(int(rec.Module)),
			"sensor": strconv.Itoa(int(rec.Sensor)),
			"name":   rec.Name,
		},
		map[string]interface{}{
			"value": rec.Value,
		},
		rec.At,
	)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxStore) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
