package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/adsim-project/adsim-go/pkg/datastore"
	"github.com/adsim-project/adsim-go/pkg/log"
	"github.com/adsim-project/adsim-go/pkg/retry"
	"github.com/adsim-project/adsim-go/pkg/simulation"
	"github.com/adsim-project/adsim-go/pkg/subscription"
	"github.com/adsim-project/adsim-go/pkg/version"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultPorts are the candidate ports, in priority order.
var DefaultPorts = []int{48898, 48899, 8851}

// DefaultHost is the default bind host.
const DefaultHost = "127.0.0.1"

// DefaultWriteTimeout bounds one frame write to a client.
const DefaultWriteTimeout = time.Second

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateStarting - service is starting up.
	StateStarting

	// StateRunning - service is running normally.
	StateRunning

	// StateStopping - service is shutting down.
	StateStopping

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// DeviceConfig configures a DeviceService.
type DeviceConfig struct {
	// TopologyPath is the YAML or JSON topology file. Empty selects the
	// built-in default topology.
	TopologyPath string

	// Host is the bind host.
	Host string `validate:"required"`

	// Ports are tried in order; 0 binds an ephemeral port.
	Ports []int `validate:"min=1,dive,gte=0,lte=65535"`

	// BindRetry bounds the bind attempts over Ports.
	BindRetry retry.Policy

	// NotificationInterval is the scheduler tick (default: 100ms).
	NotificationInterval time.Duration `validate:"gte=0"`

	// WriteTimeout bounds a frame write to one client. A client that stops
	// reading is disconnected once a write exceeds it. 0 disables the
	// deadline.
	WriteTimeout time.Duration `validate:"gte=0"`

	// DeviceName is reported by ReadDeviceInfo and mDNS.
	DeviceName string `validate:"required,max=50"`

	// SQLitePath enables the SQLite datastore.
	SQLitePath string

	// Influx enables the InfluxDB write sink when URL is set.
	Influx datastore.InfluxConfig

	// Stores are additional datastores, consulted after SQLite and InfluxDB.
	Stores []datastore.Store

	// Advertise enables mDNS advertisement on AdvertiseInterface
	// (empty for all interfaces).
	Advertise          bool
	AdvertiseInterface string

	// MetricsAddress enables the /metrics endpoint (e.g. ":9090").
	MetricsAddress string

	// Seed seeds the noise source; 0 picks a time-based seed.
	Seed int64

	// Clock defaults to simulation.SystemClock.
	Clock simulation.Clock

	// Logger is the optional logger for operational output.
	Logger *slog.Logger

	// ProtocolLogger captures protocol events (optional).
	ProtocolLogger log.Logger
}

// DefaultDeviceConfig returns a DeviceConfig with the standard ports and
// retry budget.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Host:                 DefaultHost,
		Ports:                append([]int(nil), DefaultPorts...),
		BindRetry:            retry.DefaultPolicy(),
		NotificationInterval: subscription.DefaultTickInterval,
		WriteTimeout:         DefaultWriteTimeout,
		DeviceName:           version.DeviceName,
	}
}

var configValidator = validator.New()

// Validate checks if the device config is valid.
func (c *DeviceConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// EventType identifies a service event.
type EventType uint8

const (
	// EventConnected - client connection established.
	EventConnected EventType = iota

	// EventDisconnected - client connection closed.
	EventDisconnected
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventConnected:
		return "CONNECTED"
	case EventDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Event represents a service event.
type Event struct {
	Type EventType

	// ConnectionID identifies the client connection.
	ConnectionID string

	// RemoteAddr is the client address.
	RemoteAddr string

	// Subscriptions is the number of subscriptions removed on disconnect.
	Subscriptions int
}

// EventHandler handles service events.
type EventHandler func(Event)
