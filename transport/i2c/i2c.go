// Package i2c adapts a tinygo.org/x/drivers I2C bus to ezo.Transport.
//
// Each Write is one I2C write transaction carrying the command bytes, and
// each Read is one read transaction filling the whole frame buffer. The
// transport does not own the bus: Close leaves it untouched, so several
// transports at different addresses may share one bus as long as their
// sessions do not interleave.
package i2c

import (
	"context"
	"fmt"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/logger"
	"tinygo.org/x/drivers"
)

// Transport talks to one device address on an I2C bus.
type Transport struct {
	bus    drivers.I2C
	addr   uint16
	logger logger.Logger
}

var _ ezo.Transport = (*Transport)(nil)

// New creates a transport for the device at addr on bus.
func New(bus drivers.I2C, addr int, l logger.Logger) (*Transport, error) {
	if bus == nil {
		return nil, ezo.ErrTransportNil
	}
	if err := ezo.ValidateAddress(addr); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.GetLogger()
	}

	return &Transport{
		bus:    bus,
		addr:   uint16(addr),
		logger: l.With("bus", "i2c", "address", addr),
	}, nil
}

// Address returns the device address.
func (t *Transport) Address() int {
	return int(t.addr)
}

// Write sends p in a single write transaction.
func (t *Transport) Write(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := t.bus.Tx(t.addr, p, nil); err != nil {
		t.logger.Debug("i2c write failed", "error", err)
		return fmt.Errorf("i2c: write to 0x%02X: %w", t.addr, err)
	}

	return nil
}

// Read fills p in a single read transaction.
func (t *Transport) Read(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := t.bus.Tx(t.addr, nil, p); err != nil {
		t.logger.Debug("i2c read failed", "error", err)
		return fmt.Errorf("i2c: read from 0x%02X: %w", t.addr, err)
	}

	return nil
}

// Close is a no-op; the bus belongs to the caller.
func (t *Transport) Close() error {
	return nil
}
