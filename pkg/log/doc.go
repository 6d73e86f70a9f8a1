// Package log provides structured protocol logging for ADSim.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events. It is separate from operational logging (slog):
// protocol capture is a complete machine-readable trace of every request,
// response and notification, useful for replaying what a client did.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/adsim/device.alog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with the .alog extension.
// The adsim-log tool views and summarizes them.
package log
