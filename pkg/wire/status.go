package wire

// Status is the hub's verdict on a command, carried in the ack frame.
type Status uint8

const (
	// StatusSuccess indicates the command was accepted.
	StatusSuccess Status = 0

	// StatusUnknownSensor indicates the addressed SUID is not known to
	// the hub.
	StatusUnknownSensor Status = 1

	// StatusBadRequest indicates the command payload failed to decode or
	// failed validation.
	StatusBadRequest Status = 2

	// StatusBusy indicates the hub cannot take the command right now.
	StatusBusy Status = 3

	// StatusUnsupported indicates the sensor does not implement the
	// requested kind.
	StatusUnsupported Status = 4
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusUnknownSensor:
		return "UNKNOWN_SENSOR"
	case StatusBadRequest:
		return "BAD_REQUEST"
	case StatusBusy:
		return "BUSY"
	case StatusUnsupported:
		return "UNSUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates the command was accepted.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}
