package wire

// Command identifies the kind of a request.
type Command uint16

const (
	// CmdReadDeviceInfo returns the device name and version.
	CmdReadDeviceInfo Command = 1

	// CmdRead returns a sensor value.
	CmdRead Command = 2

	// CmdWrite overwrites a sensor value.
	CmdWrite Command = 3

	// CmdReadState returns the controller and device state.
	CmdReadState Command = 4

	// CmdWriteControl accepts a state change request.
	CmdWriteControl Command = 5

	// CmdAddNotification subscribes to periodic notifications.
	CmdAddNotification Command = 6

	// CmdDeleteNotification cancels a subscription.
	CmdDeleteNotification Command = 7

	// CmdNotification is the command tag of server pushes.
	CmdNotification Command = 8

	// CmdReadWrite writes request data and returns a sensor value.
	CmdReadWrite Command = 9
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdReadDeviceInfo:
		return "ReadDeviceInfo"
	case CmdRead:
		return "Read"
	case CmdWrite:
		return "Write"
	case CmdReadState:
		return "ReadState"
	case CmdWriteControl:
		return "WriteControl"
	case CmdAddNotification:
		return "AddNotification"
	case CmdDeleteNotification:
		return "DeleteNotification"
	case CmdNotification:
		return "Notification"
	case CmdReadWrite:
		return "ReadWrite"
	default:
		return "Unknown"
	}
}

// IsValid returns true for the eight request commands. Notification is a
// server push and never a valid request.
func (c Command) IsValid() bool {
	switch c {
	case CmdReadDeviceInfo, CmdRead, CmdWrite, CmdReadState, CmdWriteControl,
		CmdAddNotification, CmdDeleteNotification, CmdReadWrite:
		return true
	}
	return false
}

// ParseCommand converts a case-sensitive command name into a Command.
func ParseCommand(name string) (Command, bool) {
	for c := CmdReadDeviceInfo; c <= CmdReadWrite; c++ {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}
