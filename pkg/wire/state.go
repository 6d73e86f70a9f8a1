package wire

// AdsState is the run state reported by ReadState.
type AdsState uint16

const (
	AdsStateInvalid AdsState = 0
	AdsStateIdle    AdsState = 1
	AdsStateReset   AdsState = 2
	AdsStateInit    AdsState = 3
	AdsStateStart   AdsState = 4
	AdsStateRun     AdsState = 5
	AdsStateStop    AdsState = 6
)

// String returns the state name.
func (s AdsState) String() string {
	switch s {
	case AdsStateInvalid:
		return "INVALID"
	case AdsStateIdle:
		return "IDLE"
	case AdsStateReset:
		return "RESET"
	case AdsStateInit:
		return "INIT"
	case AdsStateStart:
		return "START"
	case AdsStateRun:
		return "RUN"
	case AdsStateStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// DeviceInfo is the ReadDeviceInfo payload.
type DeviceInfo struct {
	Name  string `cbor:"1,keyasint"`
	Major uint8  `cbor:"2,keyasint"`
	Minor uint8  `cbor:"3,keyasint"`
	Build uint16 `cbor:"4,keyasint"`
}

// DeviceState is the ReadState payload.
type DeviceState struct {
	AdsState    AdsState `cbor:"1,keyasint"`
	DeviceState uint16   `cbor:"2,keyasint"`
}
