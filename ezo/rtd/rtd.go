// Package rtd drives EZO RTD temperature circuits.
//
// Besides single readings, a Probe can sample on its own schedule: in
// reading.ModeContinuous it takes a reading immediately and then once per
// interval, and delivers each one to the configured Handler.
package rtd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/ezo/reading"
	"github.com/arloliu/go-ezo/logger"
)

const (
	// DefaultAddress is the factory I2C address of an RTD circuit.
	DefaultAddress = 0x66
	// ReadingDelay is the settle delay of a reading.
	ReadingDelay = 600 * time.Millisecond
)

// Reading is a temperature delivered by continuous reading. Err is set when
// the reading failed; Temperature is then meaningless.
type Reading struct {
	Temperature float64
	Time        time.Time
	Err         error
}

// Handler receives continuous readings. It runs on the scheduler goroutine
// and should return quickly.
type Handler func(Reading)

type config struct {
	sessionOpts []ezo.SessionOption
	readingOpts []reading.Option
	handler     Handler
	logger      logger.Logger
}

// Option is a functional option for configuring a Probe.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(c *config) error { return f(c) }

// WithSessionOptions passes options to the underlying session.
func WithSessionOptions(opts ...ezo.SessionOption) Option {
	return optFunc(func(c *config) error {
		c.sessionOpts = append(c.sessionOpts, opts...)
		return nil
	})
}

// WithHandler sets the receiver of continuous readings.
func WithHandler(h Handler) Option {
	return optFunc(func(c *config) error {
		if h == nil {
			return errors.New("rtd: handler must not be nil")
		}
		c.handler = h

		return nil
	})
}

// WithReadingInterval sets the initial continuous reading interval.
func WithReadingInterval(d time.Duration) Option {
	return optFunc(func(c *config) error {
		c.readingOpts = append(c.readingOpts, reading.WithInterval(d))
		return nil
	})
}

// WithReadingMode sets the initial reading mode. The default is
// reading.ModeManual.
func WithReadingMode(m reading.Mode) Option {
	return optFunc(func(c *config) error {
		c.readingOpts = append(c.readingOpts, reading.WithMode(m))
		return nil
	})
}

// WithLogger sets the logger of the probe and its session.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(c *config) error {
		if l == nil {
			return errors.New("rtd: logger must not be nil")
		}
		c.logger = l

		return nil
	})
}

// Probe is an RTD circuit.
type Probe struct {
	*ezo.Device
	*ezo.Calibrator

	scheduler *reading.Scheduler
	handler   Handler
	logger    logger.Logger
}

// New creates a Probe talking over t. The session address defaults to
// DefaultAddress.
func New(t ezo.Transport, opts ...Option) (*Probe, error) {
	c := &config{
		handler: func(Reading) {},
		logger:  logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}

	sessionOpts := append([]ezo.SessionOption{ezo.WithAddress(DefaultAddress), ezo.WithLogger(c.logger)}, c.sessionOpts...)
	cfg, err := ezo.NewSessionConfig(sessionOpts...)
	if err != nil {
		return nil, err
	}
	session, err := ezo.NewSession(t, cfg)
	if err != nil {
		return nil, err
	}

	dev, err := ezo.NewDevice(session)
	if err != nil {
		return nil, err
	}
	cal, err := ezo.NewCalibrator(session)
	if err != nil {
		return nil, err
	}

	p := &Probe{
		Device:     dev,
		Calibrator: cal,
		handler:    c.handler,
		logger:     c.logger,
	}

	readingOpts := append([]reading.Option{reading.WithLogger(c.logger)}, c.readingOpts...)
	p.scheduler, err = reading.NewScheduler(p.onTimer, readingOpts...)
	if err != nil {
		_ = session.Close()
		return nil, err
	}

	return p, nil
}

// ValueInfo describes the measured quantity in the current scale.
func (p *Probe) ValueInfo(ctx context.Context) (ezo.ValueInfo, error) {
	scale, err := p.Scale(ctx)
	if err != nil {
		return ezo.ValueInfo{}, err
	}

	return ezo.ValueInfo{Name: "Temperature", Unit: scale.String(), Symbol: scale.Symbol()}, nil
}

// Read takes a single reading in the current scale.
func (p *Probe) Read(ctx context.Context) (float64, error) {
	return ezo.ReadFloat(ctx, p.Session(), "R", ReadingDelay, ezo.FormatData)
}

// Calibrate calibrates the circuit to a known temperature in the current
// scale.
func (p *Probe) Calibrate(ctx context.Context, value float64) error {
	return ezo.ReadAck(ctx, p.Session(), "Cal,"+ezo.FormatFloat(value), ezo.CalibrationDelay)
}

// Scale returns the temperature scale of readings.
func (p *Probe) Scale(ctx context.Context) (TemperatureScale, error) {
	fields, err := ezo.ReadFields(ctx, p.Session(), "S,?", ezo.ProcessingDelay, ezo.FormatDataWithCommand, 1)
	if err != nil {
		return Celsius, err
	}

	return ParseTemperatureScale(fields[0])
}

// SetScale changes the temperature scale of readings.
func (p *Probe) SetScale(ctx context.Context, scale TemperatureScale) error {
	code, ok := TemperatureScales.CodeOf(scale)
	if !ok {
		return fmt.Errorf("%w: temperature scale %v", ezo.ErrOutOfRange, scale)
	}

	return p.Session().Send(ctx, "S,"+string(code), ezo.ProcessingDelay)
}

// ReadingMode returns the current reading mode.
func (p *Probe) ReadingMode() reading.Mode {
	return p.scheduler.Mode()
}

// SetReadingMode switches between manual and continuous reading.
func (p *Probe) SetReadingMode(m reading.Mode) error {
	return p.scheduler.SetMode(m)
}

// ReadingInterval returns the continuous reading interval.
func (p *Probe) ReadingInterval() time.Duration {
	return p.scheduler.Interval()
}

// SetReadingInterval changes the continuous reading interval. It fails with
// ezo.ErrUnsupportedOperation in manual mode.
func (p *Probe) SetReadingInterval(d time.Duration) error {
	return p.scheduler.SetInterval(d)
}

// Scheduler returns the continuous reading scheduler.
func (p *Probe) Scheduler() *reading.Scheduler {
	return p.scheduler
}

// Close stops continuous reading, then closes the session.
func (p *Probe) Close() error {
	err := p.scheduler.Close()
	if cerr := p.Device.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}

	return err
}

func (p *Probe) onTimer(ctx context.Context) {
	v, err := p.Read(ctx)
	if err != nil {
		p.logger.Warn("rtd: continuous reading failed", "error", err)
	}

	p.handler(Reading{Temperature: v, Time: time.Now(), Err: err})
}
