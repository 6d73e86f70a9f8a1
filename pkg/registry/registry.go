// Package registry holds the addressable sensor state of the simulator.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adsim-project/adsim-go/pkg/datastore"
	"github.com/adsim-project/adsim-go/pkg/topology"
	"github.com/adsim-project/adsim-go/pkg/waveform"
)

// ErrAddressNotFound is returned for addresses outside the configured grid.
var ErrAddressNotFound = errors.New("address not found")

// ErrIncompleteRows is returned when datastore rows do not form a dense grid.
var ErrIncompleteRows = errors.New("incomplete sensor rows")

// Address identifies a sensor: module 1..N, sensor 1..3.
type Address struct {
	Module uint16
	Sensor uint16
}

func (a Address) String() string {
	return fmt.Sprintf("%d/%d", a.Module, a.Sensor)
}

// Snapshot is a copy of one sensor's state.
type Snapshot struct {
	Address     Address
	Name        string
	Type        string
	Unit        string
	Kind        waveform.Kind
	Config      waveform.Config
	Min         *float64
	Max         *float64
	Value       float64
	LastUpdated time.Time
}

// Module describes one module of the registry.
type Module struct {
	Index  uint16
	Name   string
	Status string
}

type module struct {
	name    string
	status  string
	sensors [topology.SensorsPerModule]Snapshot
}

// Registry is a dense module × sensor array guarded by one RWMutex.
type Registry struct {
	mu      sync.RWMutex
	modules []module
}

// Build creates a registry from a topology and seeds every value with one
// waveform evaluation at now.
func Build(topo *topology.Topology, now time.Time, rng waveform.Rand) *Registry {
	r := &Registry{modules: make([]module, topo.ModuleCount)}
	t := waveform.Millis(now.UnixNano())

	for i := 1; i <= topo.ModuleCount; i++ {
		tmpl := topo.TemplateFor(i)
		m := &r.modules[i-1]
		m.name = topology.ExpandName(tmpl.NamePattern, i)
		m.status = tmpl.Status

		for j, st := range tmpl.Sensors {
			if j == topology.SensorsPerModule {
				break
			}
			kind := st.Kind()
			cfg := st.Config()
			m.sensors[j] = Snapshot{
				Address:     Address{Module: uint16(i), Sensor: uint16(j + 1)},
				Name:        topology.ExpandName(st.Name, i),
				Type:        st.Type,
				Unit:        st.Unit,
				Kind:        kind,
				Config:      cfg,
				Min:         copyFloat(st.MinValue),
				Max:         copyFloat(st.MaxValue),
				Value:       waveform.Generate(kind, cfg, t, st.MinValue, st.MaxValue, rng),
				LastUpdated: now,
			}
		}
	}

	return r
}

// FromRows creates a registry from datastore rows. The rows must cover
// modules 1..N with sensors 1..3 each; order does not matter.
func FromRows(rows []datastore.SensorRow, now time.Time) (*Registry, error) {
	if len(rows) == 0 || len(rows)%topology.SensorsPerModule != 0 {
		return nil, fmt.Errorf("%w: %d rows", ErrIncompleteRows, len(rows))
	}

	n := len(rows) / topology.SensorsPerModule
	r := &Registry{modules: make([]module, n)}
	seen := make([]bool, len(rows))

	for _, row := range rows {
		if row.Module < 1 || int(row.Module) > n || row.Sensor < 1 || row.Sensor > topology.SensorsPerModule {
			return nil, fmt.Errorf("%w: address %d/%d outside %d modules", ErrIncompleteRows, row.Module, row.Sensor, n)
		}
		idx := (int(row.Module)-1)*topology.SensorsPerModule + int(row.Sensor) - 1
		if seen[idx] {
			return nil, fmt.Errorf("%w: duplicate address %d/%d", ErrIncompleteRows, row.Module, row.Sensor)
		}
		seen[idx] = true

		m := &r.modules[row.Module-1]
		m.name = row.ModuleName
		m.status = row.ModuleStatus
		m.sensors[row.Sensor-1] = Snapshot{
			Address:     Address{Module: row.Module, Sensor: row.Sensor},
			Name:        row.Name,
			Type:        row.Type,
			Unit:        row.Unit,
			Kind:        row.Kind,
			Config:      row.Config,
			Min:         copyFloat(row.Min),
			Max:         copyFloat(row.Max),
			Value:       row.Value,
			LastUpdated: now,
		}
	}

	return r, nil
}

// BuildFromRows uses the datastore rows when they form a complete grid and
// falls back to the topology otherwise. It reports which source was used.
func BuildFromRows(rows []datastore.SensorRow, fallback *topology.Topology, now time.Time, rng waveform.Rand) (*Registry, bool) {
	if len(rows) > 0 {
		if r, err := FromRows(rows, now); err == nil {
			return r, true
		}
	}
	return Build(fallback, now, rng), false
}

// Lookup returns a copy of the sensor at addr.
func (r *Registry) Lookup(addr Address) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.slot(addr)
	if s == nil {
		return Snapshot{}, false
	}
	return s.copy(), true
}

// Write overwrites a sensor value. The value is not clamped.
func (r *Registry) Write(addr Address, value float64, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.slot(addr)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrAddressNotFound, addr)
	}
	s.Value = value
	s.LastUpdated = now
	return nil
}

// Refresh recomputes every sensor value at now.
func (r *Registry) Refresh(now time.Time, rng waveform.Rand) {
	t := waveform.Millis(now.UnixNano())

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.modules {
		for j := range r.modules[i].sensors {
			s := &r.modules[i].sensors[j]
			s.Value = waveform.Generate(s.Kind, s.Config, t, s.Min, s.Max, rng)
			s.LastUpdated = now
		}
	}
}

// Addresses returns every address in module-major order.
func (r *Registry) Addresses() []Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addrs := make([]Address, 0, len(r.modules)*topology.SensorsPerModule)
	for i := range r.modules {
		for j := range r.modules[i].sensors {
			addrs = append(addrs, Address{Module: uint16(i + 1), Sensor: uint16(j + 1)})
		}
	}
	return addrs
}

// Len returns the number of sensors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules) * topology.SensorsPerModule
}

// ModuleCount returns the number of modules.
func (r *Registry) ModuleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// Modules returns the module names and statuses.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mods := make([]Module, len(r.modules))
	for i, m := range r.modules {
		mods[i] = Module{Index: uint16(i + 1), Name: m.name, Status: m.status}
	}
	return mods
}

// Snapshots returns copies of all sensors in module-major order.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.modules)*topology.SensorsPerModule)
	for i := range r.modules {
		for j := range r.modules[i].sensors {
			out = append(out, r.modules[i].sensors[j].copy())
		}
	}
	return out
}

// Rows converts the registry into datastore rows, e.g. for seeding.
func (r *Registry) Rows() []datastore.SensorRow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]datastore.SensorRow, 0, len(r.modules)*topology.SensorsPerModule)
	for _, m := range r.modules {
		for _, s := range m.sensors {
			rows = append(rows, datastore.SensorRow{
				Module:       s.Address.Module,
				Sensor:       s.Address.Sensor,
				ModuleName:   m.name,
				ModuleStatus: m.status,
				Name:         s.Name,
				Type:         s.Type,
				Unit:         s.Unit,
				Min:          copyFloat(s.Min),
				Max:          copyFloat(s.Max),
				Kind:         s.Kind,
				Config:       s.Config,
				Value:        s.Value,
			})
		}
	}
	return rows
}

// slot returns the sensor at addr or nil. Callers hold the lock.
func (r *Registry) slot(addr Address) *Snapshot {
	if addr.Module < 1 || int(addr.Module) > len(r.modules) {
		return nil
	}
	if addr.Sensor < 1 || addr.Sensor > topology.SensorsPerModule {
		return nil
	}
	return &r.modules[addr.Module-1].sensors[addr.Sensor-1]
}

func (s *Snapshot) copy() Snapshot {
	c := *s
	c.Min = copyFloat(s.Min)
	c.Max = copyFloat(s.Max)
	return c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
