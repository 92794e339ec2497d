package ezo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Address limits of the I2C bus.
const (
	MinAddress = 1
	MaxAddress = 127
)

// ValidBaudRates lists the UART rates accepted by SetUARTMode.
//
// 960 is listed as published for the circuits; it is not a typo of 9600 in
// this package and is passed through unchanged.
var ValidBaudRates = []int{300, 1200, 2400, 960, 19200, 38400, 57600, 115200}

// ValidateAddress reports whether addr is a usable I2C address.
func ValidateAddress(addr int) error {
	if addr < MinAddress || addr > MaxAddress {
		return fmt.Errorf("%w: I2C address %d not in [%d, %d]", ErrOutOfRange, addr, MinAddress, MaxAddress)
	}

	return nil
}

// ValidateBaudRate reports whether rate is one of ValidBaudRates.
func ValidateBaudRate(rate int) error {
	if !slices.Contains(ValidBaudRates, rate) {
		return fmt.Errorf("%w: baud rate %d not in %v", ErrOutOfRange, rate, ValidBaudRates)
	}

	return nil
}

// DeviceInfo is the identification reported by the "i" command.
type DeviceInfo struct {
	DeviceType      string
	FirmwareVersion string
}

// DeviceStatus is the state reported by the "Status" command.
type DeviceStatus struct {
	RestartReason RestartReason
	VccVoltage    float64
}

// ValueInfo describes the quantity a probe measures.
type ValueInfo struct {
	Name   string
	Unit   string
	Symbol string
}

// Common is the set of operations shared by all EZO circuits.
type Common interface {
	Address() int
	Info(ctx context.Context) (DeviceInfo, error)
	Status(ctx context.Context) (DeviceStatus, error)
	LED(ctx context.Context) (bool, error)
	SetLED(ctx context.Context, on bool) error
	ProtocolLock(ctx context.Context) (bool, error)
	SetProtocolLock(ctx context.Context, locked bool) error
	Find(ctx context.Context) error
	StopFind(ctx context.Context) (bool, error)
	Sleep(ctx context.Context) error
	FactoryReset(ctx context.Context) error
	SetI2CAddress(ctx context.Context, addr int) error
	SetUARTMode(ctx context.Context, rate int) error
	Close() error
}

// Device implements the operations shared by all EZO circuits on top of a
// Session. Probe packages embed it.
type Device struct {
	session *Session
}

var _ Common = (*Device)(nil)

// NewDevice creates a Device that owns session.
func NewDevice(session *Session) (*Device, error) {
	if session == nil {
		return nil, errors.New("ezo: session is nil")
	}

	return &Device{session: session}, nil
}

// Session returns the underlying session.
func (d *Device) Session() *Session {
	return d.session
}

// Address returns the configured I2C address, or 0 when unknown.
func (d *Device) Address() int {
	return d.session.Config().Address()
}

// Info queries the device type and firmware version.
func (d *Device) Info(ctx context.Context) (DeviceInfo, error) {
	fields, err := ReadFields(ctx, d.session, "i", ProcessingDelay, FormatDataWithCommand, 2)
	if err != nil {
		return DeviceInfo{}, err
	}

	return DeviceInfo{DeviceType: fields[0], FirmwareVersion: fields[1]}, nil
}

// Status queries the reason of the last restart and the supply voltage.
func (d *Device) Status(ctx context.Context) (DeviceStatus, error) {
	fields, err := ReadFields(ctx, d.session, "Status", ProcessingDelay, FormatDataWithCommand, 2)
	if err != nil {
		return DeviceStatus{}, err
	}

	vcc, err := ParseFloatField("Status", fields[1])
	if err != nil {
		return DeviceStatus{}, err
	}

	return DeviceStatus{RestartReason: ParseRestartReason(fields[0]), VccVoltage: vcc}, nil
}

// LED reports whether the indicator LED is enabled.
func (d *Device) LED(ctx context.Context) (bool, error) {
	return ReadBool(ctx, d.session, "L,?", ProcessingDelay, FormatDataWithCommand)
}

// SetLED enables or disables the indicator LED.
func (d *Device) SetLED(ctx context.Context, on bool) error {
	return d.session.Send(ctx, "L,"+flag(on), ProcessingDelay)
}

// ProtocolLock reports whether the device is locked to its current protocol.
func (d *Device) ProtocolLock(ctx context.Context) (bool, error) {
	return ReadBool(ctx, d.session, "Plock,?", ProcessingDelay, FormatDataWithCommand)
}

// SetProtocolLock locks or unlocks the current protocol.
func (d *Device) SetProtocolLock(ctx context.Context, locked bool) error {
	return d.session.Send(ctx, "Plock,"+flag(locked), ProcessingDelay)
}

// Find makes the LED blink rapidly until the next command.
func (d *Device) Find(ctx context.Context) error {
	return d.session.Send(ctx, "Find", 0)
}

// StopFind ends Find by issuing a command, and returns the LED state.
func (d *Device) StopFind(ctx context.Context) (bool, error) {
	return d.LED(ctx)
}

// Sleep puts the device into low power mode. Any following command wakes it.
func (d *Device) Sleep(ctx context.Context) error {
	return d.session.Send(ctx, "Sleep", ProcessingDelay)
}

// FactoryReset clears calibration and restores defaults. The device restarts.
func (d *Device) FactoryReset(ctx context.Context) error {
	return d.session.Send(ctx, "Factory", 0)
}

// SetI2CAddress moves the device to addr. The device restarts and no longer
// answers on the address of this session.
func (d *Device) SetI2CAddress(ctx context.Context, addr int) error {
	if err := ValidateAddress(addr); err != nil {
		return err
	}

	return d.session.Send(ctx, "I2C,"+strconv.Itoa(addr), 0)
}

// SetUARTMode switches the device to UART mode at rate. The device restarts.
func (d *Device) SetUARTMode(ctx context.Context, rate int) error {
	if err := ValidateBaudRate(rate); err != nil {
		return err
	}

	return d.session.Send(ctx, "Baud,"+strconv.Itoa(rate), 0)
}

// Close closes the session.
func (d *Device) Close() error {
	return d.session.Close()
}

func flag(on bool) string {
	if on {
		return "1"
	}

	return "0"
}
