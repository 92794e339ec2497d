package ezo

import (
	"strings"

	"github.com/arloliu/go-ezo/internal/util"
)

// DefaultFrameSize is the length of a response frame, status byte included.
const DefaultFrameSize = 40

// Response is a decoded response frame.
type Response struct {
	// Status is the decoded status byte.
	Status ResponseStatus
	// Command is the echoed command name for FormatDataWithCommand, empty otherwise.
	Command string
	// Data holds the payload fields. It is empty for FormatAck.
	Data []string
	// Payload is the frame without the status byte and without trailing zero bytes.
	Payload []byte
}

// IsSuccess reports whether the device accepted the request.
func (r *Response) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// Field returns the i-th data field.
func (r *Response) Field(i int) (string, bool) {
	if i < 0 || i >= len(r.Data) {
		return "", false
	}

	return r.Data[i], true
}

// DecodeResponse parses a raw response frame.
//
// The first byte must be one of the known status codes. The remainder is the
// payload; it is cut after its last non-zero byte and interpreted according
// to format. An empty payload yields no data fields for FormatData and
// FormatDataWithCommand.
func DecodeResponse(frame []byte, format ResponseFormat) (*Response, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}

	status, err := ParseStatus(frame[0])
	if err != nil {
		return nil, err
	}

	payload := util.CloneSlice(util.TrimTrailingZeros(frame[1:]), 0)

	resp := &Response{Status: status, Payload: payload}

	switch format {
	case FormatAck:
		return resp, nil
	case FormatUnformatted:
		resp.Data = []string{strings.Trim(string(payload), "\x00")}
		return resp, nil
	}

	text := strings.Trim(string(payload), "\x00")
	if text == "" {
		resp.Data = []string{}
		return resp, nil
	}

	segments := strings.Split(text, ",")
	if format == FormatDataWithCommand {
		resp.Command = segments[0]
		segments = segments[1:]
	}
	resp.Data = segments

	return resp, nil
}
