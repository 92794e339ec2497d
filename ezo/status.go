package ezo

import "fmt"

// ResponseStatus is the status code carried in byte 0 of every response frame.
type ResponseStatus byte

const (
	// StatusUnknown is the explicit "not set" code.
	StatusUnknown ResponseStatus = 0x00
	// StatusSuccess indicates a successful request.
	StatusSuccess ResponseStatus = 0x01
	// StatusSyntaxError indicates that the device did not understand the command.
	StatusSyntaxError ResponseStatus = 0x02
	// StatusStillProcessing indicates that the device has not finished yet.
	StatusStillProcessing ResponseStatus = 0xFE
	// StatusNoDataToSend indicates that there is no pending response.
	StatusNoDataToSend ResponseStatus = 0xFF
)

// ParseStatus maps a raw status byte to a ResponseStatus.
// Bytes outside the closed set yield ErrUnrecognizedStatus.
func ParseStatus(b byte) (ResponseStatus, error) {
	switch s := ResponseStatus(b); s {
	case StatusUnknown, StatusSuccess, StatusSyntaxError, StatusStillProcessing, StatusNoDataToSend:
		return s, nil
	default:
		return StatusUnknown, fmt.Errorf("%w: 0x%02X", ErrUnrecognizedStatus, b)
	}
}

func (s ResponseStatus) String() string {
	switch s {
	case StatusUnknown:
		return "Unknown"
	case StatusSuccess:
		return "Success"
	case StatusSyntaxError:
		return "SyntaxError"
	case StatusStillProcessing:
		return "StillProcessing"
	case StatusNoDataToSend:
		return "NoDataToSend"
	default:
		return fmt.Sprintf("Status(0x%02X)", byte(s))
	}
}

// ResponseFormat selects how the payload of a response is interpreted.
// It is chosen by the caller per request and never travels on the wire.
type ResponseFormat int

const (
	// FormatUnformatted treats the whole trimmed payload as a single field.
	FormatUnformatted ResponseFormat = iota
	// FormatAck only evaluates the status byte.
	FormatAck
	// FormatData splits the payload on commas.
	FormatData
	// FormatDataWithCommand splits the payload on commas and takes the first
	// segment as the echoed command name.
	FormatDataWithCommand
)

func (f ResponseFormat) String() string {
	switch f {
	case FormatUnformatted:
		return "Unformatted"
	case FormatAck:
		return "Ack"
	case FormatData:
		return "Data"
	case FormatDataWithCommand:
		return "DataWithCommand"
	default:
		return fmt.Sprintf("ResponseFormat(%d)", int(f))
	}
}
