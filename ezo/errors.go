package ezo

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCommand indicates a command outside the accepted length of
	// [1, 40] ASCII characters. It is returned before any bus I/O happens.
	ErrInvalidCommand = errors.New("ezo: invalid command")

	// ErrEmptyFrame indicates a response frame without a status byte.
	ErrEmptyFrame = errors.New("ezo: empty response frame")

	// ErrUnrecognizedStatus indicates a status byte outside the closed set of
	// response codes.
	ErrUnrecognizedStatus = errors.New("ezo: unrecognized response status")

	// ErrDeviceRejected indicates that the device answered with a status other
	// than Success. Use errors.As with *RejectedError to obtain the status.
	ErrDeviceRejected = errors.New("ezo: device rejected request")

	// ErrMalformedPayload indicates a successful response whose payload could
	// not be converted to the expected type.
	ErrMalformedPayload = errors.New("ezo: malformed payload")
)

var (
	// ErrTransferMismatch indicates that the calibration rows fetched during an
	// export do not add up to the byte count announced by the device.
	ErrTransferMismatch = errors.New("ezo: calibration transfer mismatch")

	// ErrTransferIncomplete indicates that the export completion sentinel was
	// missing or wrong.
	ErrTransferIncomplete = errors.New("ezo: calibration transfer incomplete")
)

var (
	// ErrUnsupportedOperation indicates an operation that is not valid in the
	// current state, e.g. changing the reading interval in manual mode.
	ErrUnsupportedOperation = errors.New("ezo: unsupported operation")

	// ErrOutOfRange indicates an argument outside its accepted range or set.
	ErrOutOfRange = errors.New("ezo: value out of range")

	// ErrSessionClosed indicates use of a session after Close.
	ErrSessionClosed = errors.New("ezo: session closed")

	// ErrTransportNil indicates that a nil Transport was provided.
	ErrTransportNil = errors.New("ezo: transport is nil")

	// ErrSessionConfigNil indicates that a nil SessionConfig was provided.
	ErrSessionConfigNil = errors.New("ezo: session config is nil")
)

// RejectedError is returned when a device answers with a non-success status.
type RejectedError struct {
	Command string
	Status  ResponseStatus
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("ezo: device rejected %q with status %s", e.Command, e.Status)
}

// Is reports whether target is ErrDeviceRejected.
func (e *RejectedError) Is(target error) bool {
	return target == ErrDeviceRejected
}

// RejectedStatus extracts the device status from a rejection error.
func RejectedStatus(err error) (ResponseStatus, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Status, true
	}

	return StatusUnknown, false
}

func malformed(cmd string, format string, args ...any) error {
	return fmt.Errorf("%w: %q: %s", ErrMalformedPayload, cmd, fmt.Sprintf(format, args...))
}
