// Package ph drives EZO pH circuits.
package ph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/go-ezo/ezo"
)

const (
	// DefaultAddress is the factory I2C address of a pH circuit.
	DefaultAddress = 0x63
	// ReadingDelay is the settle delay of a reading.
	ReadingDelay = 900 * time.Millisecond
)

// CalPoint is a pH calibration point.
type CalPoint int

const (
	Mid CalPoint = iota
	Low
	High
)

func (p CalPoint) String() string {
	switch p {
	case Mid:
		return "mid"
	case Low:
		return "low"
	case High:
		return "high"
	default:
		return fmt.Sprintf("CalPoint(%d)", int(p))
	}
}

// ParseCalPoint parses "mid", "low" or "high", ignoring case.
func ParseCalPoint(s string) (CalPoint, error) {
	switch strings.ToLower(s) {
	case "mid":
		return Mid, nil
	case "low":
		return Low, nil
	case "high":
		return High, nil
	default:
		return Mid, fmt.Errorf("%w: calibration point %q", ezo.ErrOutOfRange, s)
	}
}

// Slope is the probe slope in percent of the ideal curve.
type Slope struct {
	Acid float64
	Base float64
}

// Probe is a pH circuit.
type Probe struct {
	*ezo.Device
	*ezo.Calibrator
}

// New creates a Probe talking over t. The session address defaults to
// DefaultAddress; opts override it.
func New(t ezo.Transport, opts ...ezo.SessionOption) (*Probe, error) {
	cfg, err := ezo.NewSessionConfig(append([]ezo.SessionOption{ezo.WithAddress(DefaultAddress)}, opts...)...)
	if err != nil {
		return nil, err
	}

	session, err := ezo.NewSession(t, cfg)
	if err != nil {
		return nil, err
	}

	return FromSession(session)
}

// FromSession creates a Probe on an existing session. The probe takes
// ownership of the session.
func FromSession(session *ezo.Session) (*Probe, error) {
	dev, err := ezo.NewDevice(session)
	if err != nil {
		return nil, err
	}
	cal, err := ezo.NewCalibrator(session)
	if err != nil {
		return nil, err
	}

	return &Probe{Device: dev, Calibrator: cal}, nil
}

// ValueInfo describes the measured quantity.
func (p *Probe) ValueInfo() ezo.ValueInfo {
	return ezo.ValueInfo{Name: "pH", Unit: "pH", Symbol: "pH"}
}

// Read takes a single reading.
func (p *Probe) Read(ctx context.Context) (float64, error) {
	return ezo.ReadFloat(ctx, p.Session(), "R", ReadingDelay, ezo.FormatData)
}

// ReadCompensated takes a single reading compensated for temperature in
// degree Celsius. The circuit keeps temp as its new compensation value.
func (p *Probe) ReadCompensated(ctx context.Context, temp float64) (float64, error) {
	return ezo.ReadFloat(ctx, p.Session(), "RT,"+ezo.FormatFloat(temp), ReadingDelay, ezo.FormatData)
}

// Slope returns how closely the probe matches an ideal probe.
func (p *Probe) Slope(ctx context.Context) (Slope, error) {
	const cmd = "Slope,?"

	fields, err := ezo.ReadFields(ctx, p.Session(), cmd, ezo.ProcessingDelay, ezo.FormatDataWithCommand, 2)
	if err != nil {
		return Slope{}, err
	}

	acid, err := ezo.ParseFloatField(cmd, fields[0])
	if err != nil {
		return Slope{}, err
	}
	base, err := ezo.ParseFloatField(cmd, fields[1])
	if err != nil {
		return Slope{}, err
	}

	return Slope{Acid: acid, Base: base}, nil
}

// TemperatureCompensation returns the compensation temperature in degree
// Celsius.
func (p *Probe) TemperatureCompensation(ctx context.Context) (float64, error) {
	return ezo.ReadFloat(ctx, p.Session(), "T,?", ezo.ProcessingDelay, ezo.FormatDataWithCommand)
}

// SetTemperatureCompensation sets the compensation temperature in degree
// Celsius.
func (p *Probe) SetTemperatureCompensation(ctx context.Context, temp float64) error {
	return p.Session().Send(ctx, "T,"+ezo.FormatFloat(temp), ezo.ProcessingDelay)
}

// Calibrate stores a calibration point. A Mid calibration clears the
// other points and must be done first.
func (p *Probe) Calibrate(ctx context.Context, point CalPoint, value float64) error {
	if point < Mid || point > High {
		return fmt.Errorf("%w: calibration point %v", ezo.ErrOutOfRange, point)
	}

	return ezo.ReadAck(ctx, p.Session(), "Cal,"+point.String()+","+ezo.FormatFloat(value), ezo.CalibrationDelay)
}
