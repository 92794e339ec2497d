package ph

import (
	"context"
	"testing"
	"time"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/simulator"
	"github.com/stretchr/testify/require"
)

func noWait(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newTestProbe(t *testing.T, opts ...simulator.Option) (*Probe, *simulator.Device) {
	t.Helper()

	dev, err := simulator.New(simulator.KindPH, opts...)
	require.NoError(t, err)
	p, err := New(dev, ezo.WithSleeper(noWait))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	return p, dev
}

func TestCalPoint(t *testing.T) {
	require := require.New(t)

	for _, p := range []CalPoint{Mid, Low, High} {
		back, err := ParseCalPoint(p.String())
		require.NoError(err)
		require.Equal(p, back)
	}

	p, err := ParseCalPoint("HIGH")
	require.NoError(err)
	require.Equal(High, p)

	_, err = ParseCalPoint("top")
	require.ErrorIs(err, ezo.ErrOutOfRange)
	require.Equal("CalPoint(9)", CalPoint(9).String())
}

func TestProbe_Read(t *testing.T) {
	require := require.New(t)

	p, dev := newTestProbe(t, simulator.WithValue(6.84))
	require.Equal(DefaultAddress, p.Address())

	v, err := p.Read(context.Background())
	require.NoError(err)
	require.InDelta(6.84, v, 1e-9)

	v, err = p.ReadCompensated(context.Background(), 19.5)
	require.NoError(err)
	require.InDelta(6.84, v, 1e-9)

	tc, err := p.TemperatureCompensation(context.Background())
	require.NoError(err)
	require.InDelta(19.5, tc, 1e-9)

	require.Equal([]string{"R", "RT,19.50", "T,?"}, dev.History())
}

func TestProbe_TemperatureCompensation(t *testing.T) {
	require := require.New(t)

	p, dev := newTestProbe(t)

	require.NoError(p.SetTemperatureCompensation(context.Background(), 31.256))
	tc, err := p.TemperatureCompensation(context.Background())
	require.NoError(err)
	require.InDelta(31.26, tc, 1e-9)

	require.Equal([]string{"T,31.26", "T,?"}, dev.History())
}

func TestProbe_Slope(t *testing.T) {
	require := require.New(t)

	p, _ := newTestProbe(t)

	slope, err := p.Slope(context.Background())
	require.NoError(err)
	require.Equal(Slope{Acid: 99.7, Base: 100.3}, slope)
}

func TestProbe_Calibration(t *testing.T) {
	require := require.New(t)

	p, dev := newTestProbe(t)
	ctx := context.Background()

	require.NoError(p.Calibrate(ctx, Mid, 7))
	require.NoError(p.Calibrate(ctx, Low, 4))
	require.NoError(p.Calibrate(ctx, High, 10))
	require.ErrorIs(p.Calibrate(ctx, CalPoint(7), 1), ezo.ErrOutOfRange)

	n, err := p.CalibrationPoints(ctx)
	require.NoError(err)
	require.Equal(3, n)

	blob, err := p.ExportCalibration(ctx)
	require.NoError(err)
	require.Equal(3, blob.Len())

	require.NoError(p.ClearCalibration(ctx))
	n, err = p.CalibrationPoints(ctx)
	require.NoError(err)
	require.Zero(n)

	require.NoError(p.ImportCalibration(ctx, blob))
	require.Equal(blob, dev.Calibration())

	require.Contains(dev.History(), "Cal,mid,7.00")
	require.Contains(dev.History(), "Cal,high,10.00")
}

func TestProbe_CommonServices(t *testing.T) {
	require := require.New(t)

	p, _ := newTestProbe(t, simulator.WithFirmware("1.98"))

	info, err := p.Info(context.Background())
	require.NoError(err)
	require.Equal(ezo.DeviceInfo{DeviceType: "pH", FirmwareVersion: "1.98"}, info)

	require.Equal("pH", p.ValueInfo().Name)

	var _ ezo.Common = p
	var _ ezo.Calibratable = p
}
