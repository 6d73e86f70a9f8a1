// Package dispatch answers protocol requests against the sensor registry.
//
// HandleRequest produces exactly one response per request and never
// returns an error or panics: address failures map to SYMBOL_NOT_FOUND,
// unknown handles to INVALID_NOTIFICATION_HANDLE, and unknown commands as
// well as recovered handler panics to SERVICE_NOT_SUPPORTED.
//
// Writes are stored unclamped and are visible until the next refresh.
// Each write is also handed to the external datastore in the background;
// datastore failures are logged and never change the response.
package dispatch
