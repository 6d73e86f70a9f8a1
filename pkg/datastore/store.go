package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/adsim-project/adsim-go/pkg/waveform"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("datastore closed")

// SensorRow is one sensor as persisted in an external store.
type SensorRow struct {
	Module       uint16
	Sensor       uint16
	ModuleName   string
	ModuleStatus string
	Name         string
	Type         string
	Unit         string
	Min          *float64
	Max          *float64
	Kind         waveform.Kind
	Config       waveform.Config
	Value        float64
}

// WriteRecord describes one client write.
type WriteRecord struct {
	Module uint16
	Sensor uint16
	Name   string
	Value  float64
	At     time.Time
}

// Store is the capability interface of an external datastore.
type Store interface {
	// LoadSensors returns the current sensor rows. An empty result means
	// the store holds no topology and the configured one should be used.
	LoadSensors(ctx context.Context) ([]SensorRow, error)

	// RecordWrite persists a client write.
	RecordWrite(ctx context.Context, rec WriteRecord) error

	// Close releases the store's resources.
	Close() error
}

// Noop is the store used when no external datastore is configured.
type Noop struct{}

// LoadSensors returns no rows.
func (Noop) LoadSensors(context.Context) ([]SensorRow, error) { return nil, nil }

// RecordWrite discards the record.
func (Noop) RecordWrite(context.Context, WriteRecord) error { return nil }

// Close does nothing.
func (Noop) Close() error { return nil }

// Multi fans operations out to several stores.
type Multi struct {
	stores []Store
}

// NewMulti creates a store that delegates to all given stores in order.
func NewMulti(stores ...Store) *Multi {
	return &Multi{stores: stores}
}

// LoadSensors returns the rows of the first store that has any.
func (m *Multi) LoadSensors(ctx context.Context) ([]SensorRow, error) {
	var errs []error
	for _, s := range m.stores {
		rows, err := s.LoadSensors(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, errors.Join(errs...)
}

// RecordWrite writes to every store, even when earlier ones fail.
func (m *Multi) RecordWrite(ctx context.Context, rec WriteRecord) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.RecordWrite(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every store.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of delegated stores.
func (m *Multi) Len() int {
	return len(m.stores)
}
