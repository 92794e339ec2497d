// Package orp drives EZO ORP (oxidation/reduction potential) circuits.
package orp

import (
	"context"
	"strconv"
	"time"

	"github.com/arloliu/go-ezo/ezo"
)

const (
	// DefaultAddress is the factory I2C address of an ORP circuit.
	DefaultAddress = 0x62
	// ReadingDelay is the settle delay of a reading.
	ReadingDelay = 900 * time.Millisecond
)

// Probe is an ORP circuit. Readings are in millivolts.
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
//
// ORP circuits confirm the end of an export with "*DONE", which the probe
// requires.
func FromSession(session *ezo.Session) (*Probe, error) {
	dev, err := ezo.NewDevice(session)
	if err != nil {
		return nil, err
	}
	cal, err := ezo.NewCalibrator(session, ezo.WithDoneSentinel(true))
	if err != nil {
		return nil, err
	}

	return &Probe{Device: dev, Calibrator: cal}, nil
}

// ValueInfo describes the measured quantity.
func (p *Probe) ValueInfo() ezo.ValueInfo {
	return ezo.ValueInfo{Name: "ORP", Unit: "millivolt", Symbol: "mV"}
}

// Read takes a single reading in millivolts.
func (p *Probe) Read(ctx context.Context) (float64, error) {
	return ezo.ReadFloat(ctx, p.Session(), "R", ReadingDelay, ezo.FormatData)
}

// Calibrate calibrates the circuit to a known potential in millivolts.
func (p *Probe) Calibrate(ctx context.Context, mv int) error {
	return ezo.ReadAck(ctx, p.Session(), "Cal,"+strconv.Itoa(mv), ezo.CalibrationDelay)
}
