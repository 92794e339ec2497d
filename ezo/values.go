package ezo

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// ReadAck issues cmd and only checks the status byte.
func ReadAck(ctx context.Context, c Commander, cmd string, delay time.Duration) error {
	_, err := c.Issue(ctx, cmd, delay, FormatAck)
	return err
}

// ReadFields issues cmd and requires at least n data fields in the response.
func ReadFields(ctx context.Context, c Commander, cmd string, delay time.Duration, format ResponseFormat, n int) ([]string, error) {
	resp, err := c.Issue(ctx, cmd, delay, format)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) < n {
		return nil, malformed(cmd, "want %d fields, got %d", n, len(resp.Data))
	}

	return resp.Data, nil
}

// ReadFloat issues cmd and parses the first data field as a decimal number.
// Parsing is locale independent: the decimal separator is always '.'.
func ReadFloat(ctx context.Context, c Commander, cmd string, delay time.Duration, format ResponseFormat) (float64, error) {
	fields, err := ReadFields(ctx, c, cmd, delay, format, 1)
	if err != nil {
		return 0, err
	}

	return ParseFloatField(cmd, fields[0])
}

// ReadInt issues cmd and parses the first data field as an integer.
func ReadInt(ctx context.Context, c Commander, cmd string, delay time.Duration, format ResponseFormat) (int, error) {
	fields, err := ReadFields(ctx, c, cmd, delay, format, 1)
	if err != nil {
		return 0, err
	}

	return ParseIntField(cmd, fields[0])
}

// ReadBool issues cmd and interprets the first data field as a flag.
// "1" is true and "0" is false; anything else is a malformed payload.
//
// This is stricter than the circuit itself, which only compares the field
// with "1" and reads every other value as false.
func ReadBool(ctx context.Context, c Commander, cmd string, delay time.Duration, format ResponseFormat) (bool, error) {
	fields, err := ReadFields(ctx, c, cmd, delay, format, 1)
	if err != nil {
		return false, err
	}

	switch strings.TrimSpace(fields[0]) {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, malformed(cmd, "flag %q is neither 0 nor 1", fields[0])
	}
}

// ParseFloatField parses a decimal field received in response to cmd.
func ParseFloatField(cmd string, field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, malformed(cmd, "%v", err)
	}

	return v, nil
}

// ParseIntField parses an integer field received in response to cmd.
func ParseIntField(cmd string, field string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return 0, malformed(cmd, "%v", err)
	}

	return v, nil
}

// FormatFloat renders v with exactly two decimals and a '.' separator, the
// notation expected by calibration and compensation commands.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
