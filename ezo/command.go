package ezo

import "fmt"

const (
	// MinCommandLength is the minimum length of a command.
	MinCommandLength = 1
	// MaxCommandLength is the maximum length of a command.
	MaxCommandLength = 40
)

// EncodeCommand validates cmd and returns its wire representation.
//
// The command must be 1 to 40 ASCII characters. No terminator is appended;
// the frame boundary is defined by the fixed size read on the other side.
func EncodeCommand(cmd string) ([]byte, error) {
	if len(cmd) < MinCommandLength || len(cmd) > MaxCommandLength {
		return nil, fmt.Errorf("%w: length %d out of range [%d, %d]",
			ErrInvalidCommand, len(cmd), MinCommandLength, MaxCommandLength)
	}

	buf := make([]byte, len(cmd))
	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		if c >= 0x80 {
			return nil, fmt.Errorf("%w: non-ASCII byte 0x%02X at offset %d", ErrInvalidCommand, c, i)
		}
		buf[i] = c
	}

	return buf, nil
}
