package wire

import "fmt"

// Status represents a response status code. Values follow the usual
// automation controller error numbering.
type Status uint16

const (
	// StatusSuccess indicates the request completed successfully.
	StatusSuccess Status = 0

	// StatusServiceNotSupported indicates the command is not handled.
	StatusServiceNotSupported Status = 0x701

	// StatusSymbolNotFound indicates the address does not exist.
	StatusSymbolNotFound Status = 0x710

	// StatusInvalidNotificationHandle indicates the handle is unknown.
	StatusInvalidNotificationHandle Status = 0x714
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusServiceNotSupported:
		return "SERVICE_NOT_SUPPORTED"
	case StatusSymbolNotFound:
		return "SYMBOL_NOT_FOUND"
	case StatusInvalidNotificationHandle:
		return "INVALID_NOTIFICATION_HANDLE"
	default:
		return fmt.Sprintf("UNKNOWN(0x%x)", uint16(s))
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsError returns true if the status indicates an error.
func (s Status) IsError() bool {
	return s != StatusSuccess
}

// StatusError carries a non-success status as an error.
type StatusError struct {
	Command Command
	Status  Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Command, e.Status)
}
