// Package datastore connects the simulator to optional external storage.
//
// A Store can supply the initial sensor rows the registry is built from
// and receives every value written by a client. Presence is decided once
// at startup: when nothing is configured the Noop store is used and the
// rest of the system never checks for nil.
//
// Implementations:
//
//   - Noop: no rows, writes discarded
//   - SQLiteStore: current sensor rows plus an append-only write log
//   - InfluxStore: write-only time series sink
//   - Multi: fans writes out to several stores
package datastore
