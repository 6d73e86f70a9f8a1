// Package simulation advances the simulated sensor values over time.
//
// The Refresher is the only component that changes values on its own: on
// every tick it re-evaluates each sensor's waveform at the current time.
// A client Write is therefore visible only until the next tick.
//
// Time comes from a Clock so tests can step it explicitly.
package simulation
