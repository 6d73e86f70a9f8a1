package discovery

import (
	"context"
	"net"

	"github.com/enbility/zeroconf/v3"
)

// Browse searches for devices until ctx is done. Services are aggregated by
// instance name: each instance is sent once, when first seen. The returned
// channel is closed when browsing ends.
func Browse(ctx context.Context, iface string) (<-chan *DeviceService, error) {
	out := make(chan *DeviceService)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	var opts []zeroconf.ClientOption
	if ifaces := interfaces(iface); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}

	go func() {
		defer close(out)
		seen := make(map[string]bool)
		removedCh := (<-chan *zeroconf.ServiceEntry)(removed)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if seen[entry.Instance] {
					continue
				}
				svc := entryToDevice(entry.Instance, entry.HostName, entry.Port, entry.Text, entry.AddrIPv4, entry.AddrIPv6)
				if svc == nil {
					continue
				}
				seen[entry.Instance] = true
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removedCh:
				if !ok {
					removedCh = nil
					continue
				}
				delete(seen, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// entryToDevice converts a resolved entry, returning nil when its TXT
// records do not describe a device.
func entryToDevice(instance, host string, port int, text []string, v4, v6 []net.IP) *DeviceService {
	info, err := DecodeDeviceTXT(StringsToTXTRecords(text))
	if err != nil {
		return nil
	}
	info.Port = uint16(port)

	addrs := make([]string, 0, len(v4)+len(v6))
	for _, ip := range v4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range v6 {
		addrs = append(addrs, ip.String())
	}

	return &DeviceService{
		InstanceName: instance,
		Host:         host,
		Port:         uint16(port),
		Addresses:    addrs,
		Info:         *info,
	}
}
