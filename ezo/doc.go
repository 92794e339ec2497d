// Package ezo implements the command/response protocol spoken by EZO-class
// sensor circuits (pH, ORP, RTD and relatives).
//
// A probe accepts a short ASCII command and, after a command specific
// processing delay, answers with a fixed size frame:
//
//	byte 0      status code (see ResponseStatus)
//	byte 1..N-1 ASCII payload, comma separated, right padded with 0x00
//
// The package provides the pieces needed to talk to such a device over any
// byte transport:
//
//   - EncodeCommand validates and serializes a command.
//   - DecodeResponse parses a frame according to a ResponseFormat.
//   - Session pairs both with a Transport, waits the settle delay between
//     write and read, and serializes access to the device.
//   - CalibrationTransfer exports and imports calibration data.
//   - Device implements the services every EZO circuit shares (info,
//     status, LED, protocol lock, sleep, factory reset, address changes).
//   - CodeTable maps single character wire codes to domain values.
//
// Probe specific operations live in the ph, orp and rtd sub-packages; the
// continuous reading state machine lives in the reading sub-package.
//
// There is no retry logic anywhere in this package. Every failure is returned
// to the caller, who decides whether to re-issue a command (for example after
// a StillProcessing status).
package ezo
