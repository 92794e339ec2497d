package ezo

import "context"

// Transport is the byte level link to exactly one device.
//
// Write sends a complete command. Read fills p completely with the device's
// response frame. Implementations may block; they should honor ctx where the
// underlying bus allows it. A Transport is owned by a single Session and is
// never used concurrently.
type Transport interface {
	Write(ctx context.Context, p []byte) error
	Read(ctx context.Context, p []byte) error
	Close() error
}
