package main

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adsim-project/adsim-go/pkg/datastore"
	"github.com/adsim-project/adsim-go/pkg/service"
)

// options holds the command-line configuration. Defaults come from the
// ADSIM_* environment variables where one exists.
type options struct {
	Topology       string
	Host           string
	Ports          []int
	Name           string
	LogLevel       string
	ProtocolLog    string
	MetricsAddr    string
	Advertise      bool
	Interface      string
	SQLitePath     string
	InfluxURL      string
	InfluxToken    string
	InfluxOrg      string
	InfluxBucket   string
	Seed           int64
	NotifyInterval time.Duration
	WriteTimeout   time.Duration
}

func defaultOptions() *options {
	return &options{
		Topology:     os.Getenv("ADSIM_TOPOLOGY"),
		Host:         envOr("ADSIM_HOST", service.DefaultHost),
		Ports:        envPorts("ADSIM_PORTS", service.DefaultPorts),
		LogLevel:     envOr("ADSIM_LOG_LEVEL", "info"),
		MetricsAddr:  os.Getenv("ADSIM_METRICS_ADDR"),
		SQLitePath:   os.Getenv("ADSIM_SQLITE"),
		InfluxURL:    os.Getenv("ADSIM_INFLUX_URL"),
		InfluxToken:  os.Getenv("ADSIM_INFLUX_TOKEN"),
		InfluxOrg:    os.Getenv("ADSIM_INFLUX_ORG"),
		InfluxBucket: envOr("ADSIM_INFLUX_BUCKET", "adsim"),
		WriteTimeout: service.DefaultWriteTimeout,
	}
}

func (o *options) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&o.Topology, "topology", o.Topology, "Topology file (YAML or JSON); empty uses the built-in default")
	pf.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level: debug, info, warn, error")

	f := cmd.Flags()
	f.StringVar(&o.Host, "host", o.Host, "Bind host")
	f.IntSliceVar(&o.Ports, "port", o.Ports, "Candidate port, repeatable, in priority order")
	f.StringVar(&o.Name, "name", "", "Device name reported by ReadDeviceInfo")
	f.StringVar(&o.ProtocolLog, "protocol-log", "", "Write protocol events to this file (.alog)")
	f.StringVar(&o.MetricsAddr, "metrics-addr", o.MetricsAddr, "Serve Prometheus metrics on this address (e.g. :9090)")
	f.BoolVar(&o.Advertise, "advertise", false, "Advertise the device via mDNS")
	f.StringVar(&o.Interface, "interface", "", "Network interface for mDNS (default all)")
	f.StringVar(&o.SQLitePath, "sqlite", o.SQLitePath, "SQLite database for sensor rows and write history")
	f.StringVar(&o.InfluxURL, "influx-url", o.InfluxURL, "InfluxDB URL for the write history")
	f.StringVar(&o.InfluxToken, "influx-token", o.InfluxToken, "InfluxDB token")
	f.StringVar(&o.InfluxOrg, "influx-org", o.InfluxOrg, "InfluxDB organization")
	f.StringVar(&o.InfluxBucket, "influx-bucket", o.InfluxBucket, "InfluxDB bucket")
	f.Int64Var(&o.Seed, "seed", 0, "Noise seed; 0 picks a time-based seed")
	f.DurationVar(&o.NotifyInterval, "notify-interval", 0, "Notification scheduler tick (default 100ms)")
	f.DurationVar(&o.WriteTimeout, "write-timeout", o.WriteTimeout, "Disconnect a client whose frame write exceeds this; 0 disables")
}

// deviceConfig converts the options into a validated service config.
func (o *options) deviceConfig(logger *slog.Logger) (service.DeviceConfig, error) {
	config := service.DefaultDeviceConfig()
	config.TopologyPath = o.Topology
	config.Host = o.Host
	config.Ports = append([]int(nil), o.Ports...)
	if o.Name != "" {
		config.DeviceName = o.Name
	}
	if o.NotifyInterval > 0 {
		config.NotificationInterval = o.NotifyInterval
	}
	config.WriteTimeout = o.WriteTimeout
	config.SQLitePath = o.SQLitePath
	if o.InfluxURL != "" {
		config.Influx = datastore.InfluxConfig{
			URL:    o.InfluxURL,
			Token:  o.InfluxToken,
			Org:    o.InfluxOrg,
			Bucket: o.InfluxBucket,
		}
	}
	config.Advertise = o.Advertise
	config.AdvertiseInterface = o.Interface
	config.MetricsAddress = o.MetricsAddr
	config.Seed = o.Seed
	config.Logger = logger

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// newLogger builds the text handler used by every binary.
func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// envPorts parses a comma-separated port list, falling back to def when
// the variable is unset or malformed.
func envPorts(key string, def []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return append([]int(nil), def...)
	}
	var ports []int
	for _, field := range strings.Split(v, ",") {
		p, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return append([]int(nil), def...)
		}
		ports = append(ports, p)
	}
	return ports
}
