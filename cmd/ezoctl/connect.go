package main

import (
	"context"
	"fmt"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/ezo/orp"
	"github.com/arloliu/go-ezo/ezo/ph"
	"github.com/arloliu/go-ezo/ezo/rtd"
	"github.com/arloliu/go-ezo/simulator"
	"github.com/arloliu/go-ezo/transport/serial"
)

// probe is the part of the pH, ORP and RTD probes used by ezoctl.
type probe interface {
	ezo.Common
	ezo.Calibratable
	Read(ctx context.Context) (float64, error)
	Session() *ezo.Session
}

var (
	_ probe = (*ph.Probe)(nil)
	_ probe = (*orp.Probe)(nil)
	_ probe = (*rtd.Probe)(nil)
)

func (a *app) circuitKind() simulator.Kind {
	// validated by setup
	kind, _ := simulator.ParseKind(a.cfg.Device.Kind)
	return kind
}

func (a *app) openTransport() (ezo.Transport, error) {
	tc := a.cfg.Transport
	if tc.Type == TransportSim {
		opts := []simulator.Option{simulator.WithLogger(a.logger)}
		if tc.SimValue != 0 {
			opts = append(opts, simulator.WithValue(tc.SimValue))
		}
		if a.cfg.Device.Address != 0 {
			opts = append(opts, simulator.WithAddress(a.cfg.Device.Address))
		}
		opts = append(opts, a.simOpts...)

		dev, err := simulator.New(a.circuitKind(), opts...)
		if err != nil {
			return nil, err
		}

		return dev, nil
	}

	t, err := serial.Open(tc.Port, tc.Baud,
		serial.WithResponseTimeout(tc.ResponseTimeout),
		serial.WithResponseCodes(tc.ResponseCodes),
		serial.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// connect opens the transport and creates the probe selected by the
// configuration. rtdOpts are only used for RTD circuits.
func (a *app) connect(rtdOpts ...rtd.Option) (probe, error) {
	t, err := a.openTransport()
	if err != nil {
		return nil, err
	}

	sessionOpts := []ezo.SessionOption{ezo.WithLogger(a.logger)}
	if a.cfg.Device.Address != 0 {
		sessionOpts = append(sessionOpts, ezo.WithAddress(a.cfg.Device.Address))
	}
	sessionOpts = append(sessionOpts, a.sessionOpts...)

	p, err := a.newProbe(t, sessionOpts, rtdOpts)
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("open %s circuit: %w", a.circuitKind(), err)
	}
	a.logger.Debug("circuit connected", "transport", a.cfg.Transport.Type, "address", p.Address())

	return p, nil
}

func (a *app) newProbe(t ezo.Transport, sessionOpts []ezo.SessionOption, rtdOpts []rtd.Option) (probe, error) {
	switch a.circuitKind() {
	case simulator.KindORP:
		p, err := orp.New(t, sessionOpts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case simulator.KindRTD:
		opts := append([]rtd.Option{rtd.WithLogger(a.logger), rtd.WithSessionOptions(sessionOpts...)}, rtdOpts...)
		p, err := rtd.New(t, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		p, err := ph.New(t, sessionOpts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// valueInfo describes the quantity measured by p.
func valueInfo(ctx context.Context, p probe) (ezo.ValueInfo, error) {
	switch p := p.(type) {
	case *ph.Probe:
		return p.ValueInfo(), nil
	case *orp.Probe:
		return p.ValueInfo(), nil
	case *rtd.Probe:
		return p.ValueInfo(ctx)
	default:
		return ezo.ValueInfo{}, fmt.Errorf("%w: unknown probe %T", ezo.ErrUnsupportedOperation, p)
	}
}
