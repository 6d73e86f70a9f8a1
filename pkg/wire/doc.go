// Package wire defines the CBOR wire format of the ADSim protocol.
//
// Messages use CBOR (RFC 8949) with integer keys and travel in
// length-prefixed frames (see package transport).
//
// # Message Types
//
//   - Request: client to device, one of the command kinds
//   - Response: device to client, carries the request's message id
//   - Notification: device to client, pushed for a subscription handle
//
// Notifications always carry message id 0, which requests never use.
//
// # Values
//
// Sensor values travel as 4-byte little-endian IEEE-754 float32 in the
// Data fields. Shorter payloads are zero-padded on decode; longer ones are
// truncated to their first four bytes.
package wire
