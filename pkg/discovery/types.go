package discovery

import (
	"errors"
	"time"
)

// Service constants.
const (
	// ServiceType is the DNS-SD service type of a device.
	ServiceType = "_adsim._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultTTL is the DNS record TTL.
	DefaultTTL = 120 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyModules = "modules"
	TXTKeySensors = "sensors"
	TXTKeyName    = "name"
	TXTKeyVersion = "ver"
)

// Errors.
var (
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record")
	ErrInstanceNameTooLong = errors.New("instance name too long")
)

// DeviceInfo is what a device advertises about itself.
type DeviceInfo struct {
	// DeviceName is the name reported by ReadDeviceInfo.
	DeviceName string

	// Version is the "major.minor.build" version string.
	Version string

	// Port is the TCP port the device listens on.
	Port uint16

	// ModuleCount is the number of simulated modules.
	ModuleCount int

	// SensorsPerModule is the number of sensors in each module.
	SensorsPerModule int
}

// DeviceService is a device found while browsing.
type DeviceService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string
	Info         DeviceInfo
}
