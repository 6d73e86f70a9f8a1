// Package transport carries protocol messages over TCP.
//
// Each message is a CBOR document prefixed by its length:
//
//	┌────────────────────────────────┐
//	│      CBOR Messages             │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// The length prefix is big-endian and payloads are limited to 64 KiB.
//
// Server accepts connections and runs one read loop per connection.
// ServerConn doubles as a notification target: the scheduler pushes
// notifications through Deliver, which shares the connection's write lock
// with responses so frames never interleave.
package transport
