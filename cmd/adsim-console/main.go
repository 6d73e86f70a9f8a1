// Command adsim-console is an interactive client for adsim-device.
//
// Usage:
//
//	adsim-console [--addr host:port | --discover]
//	adsim-console discover [--wait 3s]
//
// Examples:
//
//	# Connect to a local device on the default port
//	adsim-console
//
//	# Connect to the first device found via mDNS
//	adsim-console --discover
//
//	# List advertised devices
//	adsim-console discover
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adsim-project/adsim-go/pkg/discovery"
	"github.com/adsim-project/adsim-go/pkg/interaction"
	"github.com/adsim-project/adsim-go/pkg/service"
	"github.com/adsim-project/adsim-go/pkg/transport"
)

// errNoDevice is returned when browsing ends without finding a device.
var errNoDevice = errors.New("no device found")

type options struct {
	Addr      string
	Discover  bool
	Interface string
	Wait      time.Duration
	Timeout   time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "adsim-console: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{
		Addr:    net.JoinHostPort(service.DefaultHost, strconv.Itoa(service.DefaultPorts[0])),
		Wait:    3 * time.Second,
		Timeout: 5 * time.Second,
	}

	root := &cobra.Command{
		Use:           "adsim-console",
		Short:         "Interactive client for the ADS simulator",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runConsole(ctx, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.Interface, "interface", "", "Network interface for mDNS (default all)")
	pf.DurationVar(&opts.Wait, "wait", opts.Wait, "How long to browse for devices")

	f := root.Flags()
	f.StringVar(&opts.Addr, "addr", opts.Addr, "Device address (host:port)")
	f.BoolVar(&opts.Discover, "discover", false, "Connect to the first device found via mDNS")
	f.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "Request timeout")

	root.AddCommand(newDiscoverCmd(opts))
	return root
}

func newDiscoverCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "List devices advertised via mDNS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Wait)
			defer cancel()
			return listDevices(ctx, opts.Interface, cmd.OutOrStdout())
		},
	}
}

func runConsole(ctx context.Context, opts *options) error {
	addr := opts.Addr
	if opts.Discover {
		browseCtx, cancel := context.WithTimeout(ctx, opts.Wait)
		svc, err := firstDevice(browseCtx, opts.Interface)
		cancel()
		if err != nil {
			return err
		}
		addr = dialAddress(svc)
		fmt.Printf("Found %s (%s) at %s\n", svc.Info.DeviceName, svc.InstanceName, addr)
	}

	conn, err := transport.NewClient(transport.ClientConfig{ConnectTimeout: opts.Timeout}).Connect(ctx, addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	client := interaction.NewClient(conn)
	client.SetTimeout(opts.Timeout)
	defer client.Close()

	fmt.Printf("Connected to %s\n", conn.RemoteAddr())
	return NewConsole(client, os.Stdout).Run(ctx)
}

func firstDevice(ctx context.Context, iface string) (*discovery.DeviceService, error) {
	found, err := discovery.Browse(ctx, iface)
	if err != nil {
		return nil, err
	}
	svc, ok := <-found
	if !ok {
		return nil, errNoDevice
	}
	return svc, nil
}

func listDevices(ctx context.Context, iface string, w io.Writer) error {
	found, err := discovery.Browse(ctx, iface)
	if err != nil {
		return err
	}
	n := 0
	for svc := range found {
		n++
		printDevice(w, svc)
	}
	if n == 0 {
		return errNoDevice
	}
	return nil
}

func printDevice(w io.Writer, svc *discovery.DeviceService) {
	fmt.Fprintf(w, "%s\n", svc.InstanceName)
	fmt.Fprintf(w, "  Name:    %s %s\n", svc.Info.DeviceName, svc.Info.Version)
	fmt.Fprintf(w, "  Address: %s\n", dialAddress(svc))
	fmt.Fprintf(w, "  Modules: %d x %d sensors\n", svc.Info.ModuleCount, svc.Info.SensorsPerModule)
}

// dialAddress prefers the first resolved address over the host name.
func dialAddress(svc *discovery.DeviceService) string {
	host := svc.Host
	if len(svc.Addresses) > 0 {
		host = svc.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(svc.Port)))
}
