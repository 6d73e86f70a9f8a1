// Package service assembles a running simulated device.
//
// DeviceService wires the topology, the external datastore, the sensor
// registry, the value refresher, the notification scheduler and the TCP
// transport together. Start brings the pieces up in dependency order:
//
//  1. load the topology (a missing or invalid file falls back to the default)
//  2. open the configured datastores
//  3. build the registry, from datastore rows when they form a complete
//     address space, otherwise from the topology
//  4. seed an empty SQLite sensor table from the registry
//  5. start the refresher and scheduler loops
//  6. bind the first free candidate port, retrying the whole list
//  7. advertise over mDNS and serve metrics when configured
//
// A failed bind after all retries is returned from Start; everything
// else that can fail at startup is logged and skipped.
package service
