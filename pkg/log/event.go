package log

import (
	"time"

	"github.com/adsim-project/adsim-go/pkg/wire"
)

// Event represents a protocol log event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message     *MessageEvent     `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer.
	LayerTransport Layer = 0
	// LayerWire is the message encoding layer (decoded CBOR).
	LayerWire Layer = 1
	// LayerService is the dispatcher and scheduler layer.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message (request/response/notification).
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MessageEvent captures a decoded protocol message.
type MessageEvent struct {
	// Type distinguishes request/response/notification.
	Type MessageType `cbor:"1,keyasint"`

	// MessageID correlates request/response pairs (0 for notifications).
	MessageID uint32 `cbor:"2,keyasint"`

	// Command of the request being handled.
	Command *wire.Command `cbor:"3,keyasint,omitempty"`

	// Module and Sensor address the sensor, when the command has one.
	Module *uint16 `cbor:"4,keyasint,omitempty"`
	Sensor *uint16 `cbor:"5,keyasint,omitempty"`

	// For responses: the status code.
	Status *wire.Status `cbor:"6,keyasint,omitempty"`

	// Handle is the notification handle (AddNotification result,
	// DeleteNotification argument, notification push).
	Handle *uint32 `cbor:"7,keyasint,omitempty"`

	// Length is the read length requested by the client.
	Length *uint32 `cbor:"8,keyasint,omitempty"`

	// Value is the decoded sensor value carried by the message.
	Value *float64 `cbor:"9,keyasint,omitempty"`

	// ProcessingTime is the duration from request receipt to response (response only).
	// Stored as nanoseconds.
	ProcessingTime *time.Duration `cbor:"10,keyasint,omitempty"`
}

// MessageType distinguishes request/response/notification.
type MessageType uint8

const (
	// MessageTypeRequest indicates a request message.
	MessageTypeRequest MessageType = 0
	// MessageTypeResponse indicates a response message.
	MessageTypeResponse MessageType = 1
	// MessageTypeNotification indicates a notification message.
	MessageTypeNotification MessageType = 2
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case MessageTypeRequest:
		return "REQUEST"
	case MessageTypeResponse:
		return "RESPONSE"
	case MessageTypeNotification:
		return "NOTIFICATION"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures connection and subscription lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntitySubscription indicates a subscription was added or removed.
	StateEntitySubscription StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the error code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}

// RequestEvent builds the wire-layer event for an incoming request.
func RequestEvent(connID string, req *wire.Request) Event {
	cmd := req.Command
	msg := &MessageEvent{
		Type:      MessageTypeRequest,
		MessageID: req.MessageID,
		Command:   &cmd,
	}

	switch req.Command {
	case wire.CmdRead, wire.CmdWrite, wire.CmdReadWrite, wire.CmdAddNotification:
		module, sensor := req.Module, req.Sensor
		msg.Module = &module
		msg.Sensor = &sensor
	case wire.CmdDeleteNotification:
		handle := req.Handle
		msg.Handle = &handle
	}
	if req.Command == wire.CmdRead || req.Command == wire.CmdReadWrite {
		length := req.Length
		msg.Length = &length
	}
	if req.Command == wire.CmdWrite || req.Command == wire.CmdReadWrite {
		v := wire.DecodeFloat32(req.Data)
		msg.Value = &v
	}

	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionIn,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		Message:      msg,
	}
}

// ResponseEvent builds the wire-layer event for an outgoing response.
func ResponseEvent(connID string, resp *wire.Response, processing time.Duration) Event {
	cmd := resp.Command
	status := resp.Status
	msg := &MessageEvent{
		Type:           MessageTypeResponse,
		MessageID:      resp.MessageID,
		Command:        &cmd,
		Status:         &status,
		ProcessingTime: &processing,
	}
	if resp.Handle != 0 {
		handle := resp.Handle
		msg.Handle = &handle
	}
	if len(resp.Data) > 0 {
		v := resp.Value()
		msg.Value = &v
	}

	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionOut,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		Message:      msg,
	}
}

// NotificationEvent builds the wire-layer event for a pushed notification.
func NotificationEvent(connID string, notif *wire.Notification) Event {
	cmd := wire.CmdNotification
	handle := notif.Handle
	module, sensor := notif.Module, notif.Sensor
	v := notif.Value()

	return Event{
		Timestamp:    notif.Timestamp,
		ConnectionID: connID,
		Direction:    DirectionOut,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		Message: &MessageEvent{
			Type:      MessageTypeNotification,
			MessageID: wire.NotificationMessageID,
			Command:   &cmd,
			Module:    &module,
			Sensor:    &sensor,
			Handle:    &handle,
			Value:     &v,
		},
	}
}

// ErrorEvent builds an error event for layer. what names the operation
// that failed.
func ErrorEvent(connID string, layer Layer, err error, what string) Event {
	data := &ErrorEventData{Layer: layer, Context: what}
	if err != nil {
		data.Message = err.Error()
	}
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionIn,
		Layer:        layer,
		Category:     CategoryError,
		Error:        data,
	}
}
