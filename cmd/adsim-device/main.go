// Command adsim-device runs the simulated ADS device.
//
// The device loads a sensor topology, refreshes the simulated values in the
// background and answers read, write and notification requests over TCP.
//
// Usage:
//
//	adsim-device [flags]
//	adsim-device topology [--topology file]
//
// Examples:
//
//	# Start with the built-in topology on the default ports
//	adsim-device
//
//	# Load a topology, persist sensor values and expose metrics
//	adsim-device --topology plant.yaml --sqlite adsim.db --metrics-addr :9090
//
//	# Bind a single port on all interfaces and advertise via mDNS
//	adsim-device --host 0.0.0.0 --port 48898 --advertise
//
//	# Capture protocol traffic for adsim-log
//	adsim-device --protocol-log device.alog --log-level debug
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adsim-project/adsim-go/pkg/log"
	"github.com/adsim-project/adsim-go/pkg/retry"
	"github.com/adsim-project/adsim-go/pkg/service"
	"github.com/adsim-project/adsim-go/pkg/topology"
	"github.com/adsim-project/adsim-go/pkg/version"
)

// exitBindFailed is the exit status when no candidate port could be bound.
const exitBindFailed = 2

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd(defaultOptions())
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "adsim-device: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, retry.ErrExhausted):
		return exitBindFailed
	default:
		return 1
	}
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "adsim-device",
		Short:         "Simulated ADS automation controller",
		Version:       version.Current,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	opts.register(root)
	root.AddCommand(newTopologyCmd(opts))
	return root
}

func newTopologyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "topology",
		Short: "Print the resolved topology as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), opts.LogLevel)
			topo := topology.NewStore(opts.Topology, logger).Load()
			return topology.Write(cmd.OutOrStdout(), topo)
		},
	}
}

// serve runs the device until SIGINT/SIGTERM or until ctx is done.
func serve(parent context.Context, opts *options) error {
	logger := newLogger(os.Stderr, opts.LogLevel)

	config, err := opts.deviceConfig(logger)
	if err != nil {
		return err
	}

	protocolLogger, err := openProtocolLog(opts.ProtocolLog, logger)
	if err != nil {
		return err
	}
	if protocolLogger != nil {
		defer protocolLogger.Close()
		config.ProtocolLogger = protocolLogger
	}

	svc, err := service.NewDeviceService(config)
	if err != nil {
		return err
	}
	svc.OnEvent(func(e service.Event) {
		switch e.Type {
		case service.EventConnected:
			logger.Info("client connected", "conn", e.ConnectionID, "remote", e.RemoteAddr)
		case service.EventDisconnected:
			logger.Info("client disconnected", "conn", e.ConnectionID, "remote", e.RemoteAddr,
				"subscriptions", e.Subscriptions)
		}
	})

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		return err
	}

	logRunning(logger, svc, config.DeviceName)
	if addr := svc.MetricsAddr(); addr != nil {
		logger.Info("metrics endpoint", "addr", addr.String())
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return svc.Stop()
}

// logRunning reports the served layout, which comes from the registry
// since datastore rows may override the topology.
func logRunning(logger *slog.Logger, svc *service.DeviceService, name string) {
	reg := svc.Registry()
	logger.Info("device running",
		"addr", svc.Addr().String(),
		"name", name,
		"version", version.Current,
		"modules", reg.ModuleCount(),
		"sensors", reg.Len())
}

// openProtocolLog returns nil when path is empty. At debug level the events
// are mirrored to the operational log.
func openProtocolLog(path string, logger *slog.Logger) (*log.MultiLogger, error) {
	if path == "" {
		return nil, nil
	}
	file, err := log.NewFileLogger(path)
	if err != nil {
		return nil, fmt.Errorf("protocol log: %w", err)
	}
	logger.Info("protocol logging enabled", "path", path)
	return log.NewMultiLogger(file, log.NewSlogAdapter(logger)), nil
}
