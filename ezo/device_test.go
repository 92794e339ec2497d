package ezo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T, opts ...SessionOption) (*Device, *scriptedTransport) {
	t.Helper()

	s, tr, _ := newTestSession(t, opts...)
	d, err := NewDevice(s)
	require.NoError(t, err)

	return d, tr
}

func TestValidateAddress(t *testing.T) {
	require := require.New(t)

	require.ErrorIs(ValidateAddress(0), ErrOutOfRange)
	require.ErrorIs(ValidateAddress(128), ErrOutOfRange)
	require.ErrorIs(ValidateAddress(-1), ErrOutOfRange)
	require.NoError(ValidateAddress(1))
	require.NoError(ValidateAddress(127))
}

func TestValidateBaudRate(t *testing.T) {
	require := require.New(t)

	for _, rate := range []int{300, 1200, 2400, 960, 19200, 38400, 57600, 115200} {
		require.NoError(ValidateBaudRate(rate))
	}
	require.ErrorIs(ValidateBaudRate(9600), ErrOutOfRange)
	require.ErrorIs(ValidateBaudRate(0), ErrOutOfRange)
}

func TestNewDevice(t *testing.T) {
	_, err := NewDevice(nil)
	require.Error(t, err)
}

func TestDevice_Info(t *testing.T) {
	require := require.New(t)

	d, tr := newTestDevice(t, WithAddress(0x63))
	tr.queue(frame(StatusSuccess, "?I,pH,1.98"))

	info, err := d.Info(context.Background())
	require.NoError(err)
	require.Equal(DeviceInfo{DeviceType: "pH", FirmwareVersion: "1.98"}, info)
	require.Equal([]string{"i"}, tr.written())
	require.Equal(0x63, d.Address())
	require.NotNil(d.Session())
}

func TestDevice_Status(t *testing.T) {
	require := require.New(t)

	d, tr := newTestDevice(t)
	tr.queue(
		frame(StatusSuccess, "?Status,b,5.038"),
		frame(StatusSuccess, "?Status,X,3.3"),
		frame(StatusSuccess, "?Status,P,high"),
	)

	st, err := d.Status(context.Background())
	require.NoError(err)
	require.Equal(RestartBrownOut, st.RestartReason)
	require.InDelta(5.038, st.VccVoltage, 1e-9)

	st, err = d.Status(context.Background())
	require.NoError(err)
	require.Equal(RestartUnknown, st.RestartReason)

	_, err = d.Status(context.Background())
	require.ErrorIs(err, ErrMalformedPayload)
}

func TestDevice_LEDAndLock(t *testing.T) {
	require := require.New(t)

	d, tr := newTestDevice(t)
	tr.queue(frame(StatusSuccess, "?L,1"), frame(StatusSuccess, "?Plock,0"), frame(StatusSuccess, "?L,0"))

	on, err := d.LED(context.Background())
	require.NoError(err)
	require.True(on)

	locked, err := d.ProtocolLock(context.Background())
	require.NoError(err)
	require.False(locked)

	require.NoError(d.SetLED(context.Background(), false))
	require.NoError(d.SetProtocolLock(context.Background(), true))
	require.NoError(d.Find(context.Background()))

	on, err = d.StopFind(context.Background())
	require.NoError(err)
	require.False(on)

	require.Equal([]string{"L,?", "Plock,?", "L,0", "Plock,1", "Find", "L,?"}, tr.written())
}

func TestDevice_Commands(t *testing.T) {
	require := require.New(t)

	d, tr := newTestDevice(t)

	require.NoError(d.Sleep(context.Background()))
	require.NoError(d.FactoryReset(context.Background()))
	require.NoError(d.SetI2CAddress(context.Background(), 100))
	require.NoError(d.SetUARTMode(context.Background(), 960))

	require.Equal([]string{"Sleep", "Factory", "I2C,100", "Baud,960"}, tr.written())
}

func TestDevice_RangeChecksBeforeIO(t *testing.T) {
	require := require.New(t)

	d, tr := newTestDevice(t)

	require.ErrorIs(d.SetI2CAddress(context.Background(), 0), ErrOutOfRange)
	require.ErrorIs(d.SetI2CAddress(context.Background(), 128), ErrOutOfRange)
	require.ErrorIs(d.SetUARTMode(context.Background(), 9600), ErrOutOfRange)
	require.Empty(tr.written())
}

func TestDevice_Close(t *testing.T) {
	require := require.New(t)

	d, tr := newTestDevice(t)
	require.NoError(d.Close())
	require.Equal(1, tr.closed)
}
