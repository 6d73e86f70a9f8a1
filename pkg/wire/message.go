package wire

import (
	"fmt"
	"time"
)

// MessageID 0 is reserved to indicate a notification message.
const NotificationMessageID uint32 = 0

// Request represents a request from a client to the device.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32, never 0
//	  2: command,      // uint16
//	  3: module,       // uint16, 1-based
//	  4: sensor,       // uint16, 1-based
//	  5: length,       // uint32: requested read length
//	  6: data,         // bytes: write payload / control payload
//	  7: cycleTimeMs,  // uint32: AddNotification cycle time
//	  8: handle        // uint32: DeleteNotification handle
//	}
type Request struct {
	MessageID   uint32  `cbor:"1,keyasint"`
	Command     Command `cbor:"2,keyasint"`
	Module      uint16  `cbor:"3,keyasint,omitempty"`
	Sensor      uint16  `cbor:"4,keyasint,omitempty"`
	Length      uint32  `cbor:"5,keyasint,omitempty"`
	Data        []byte  `cbor:"6,keyasint,omitempty"`
	CycleTimeMs uint32  `cbor:"7,keyasint,omitempty"`
	Handle      uint32  `cbor:"8,keyasint,omitempty"`
}

// Validate checks if the request can be answered. Unknown commands are
// accepted here so the device can reply with a status.
func (r *Request) Validate() error {
	if r.MessageID == NotificationMessageID {
		return fmt.Errorf("messageId 0 is reserved for notifications")
	}
	return nil
}

// Response represents the device's answer to a request.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32: matches request
//	  2: status,       // uint16
//	  3: command,      // uint16: echoes the request
//	  4: data,         // bytes: Read/ReadWrite value
//	  5: handle,       // uint32: AddNotification result
//	  6: deviceInfo,   // ReadDeviceInfo result
//	  7: state         // ReadState result
//	}
type Response struct {
	MessageID  uint32       `cbor:"1,keyasint"`
	Status     Status       `cbor:"2,keyasint"`
	Command    Command      `cbor:"3,keyasint,omitempty"`
	Data       []byte       `cbor:"4,keyasint,omitempty"`
	Handle     uint32       `cbor:"5,keyasint,omitempty"`
	DeviceInfo *DeviceInfo  `cbor:"6,keyasint,omitempty"`
	State      *DeviceState `cbor:"7,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Err returns a *StatusError for non-success responses.
func (r *Response) Err() error {
	if r.Status.IsSuccess() {
		return nil
	}
	return &StatusError{Command: r.Command, Status: r.Status}
}

// Value decodes the response data as a sensor value.
func (r *Response) Value() float64 {
	return DecodeFloat32(r.Data)
}

// Notification is pushed to a subscriber when its cycle elapses.
//
// CBOR encoding:
//
//	{
//	  1: 0,            // messageId 0 = notification
//	  2: handle,       // uint32
//	  3: module,       // uint16
//	  4: sensor,       // uint16
//	  5: data,         // bytes: 4-byte value
//	  6: timestamp     // unix milliseconds
//	}
type Notification struct {
	Handle    uint32
	Module    uint16
	Sensor    uint16
	Data      []byte
	Timestamp time.Time
}

// Value decodes the notification data as a sensor value.
func (n *Notification) Value() float64 {
	return DecodeFloat32(n.Data)
}
