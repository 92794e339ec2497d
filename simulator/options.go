package simulator

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/logger"
)

// Option is a functional option for configuring a Device.
type Option interface {
	apply(*Device) error
}

type optFunc func(*Device) error

func (f optFunc) apply(d *Device) error { return f(d) }

// WithValue sets the initial reading. RTD values are in degree Celsius.
func WithValue(v float64) Option {
	return optFunc(func(d *Device) error {
		d.value = v
		return nil
	})
}

// WithJitter adds uniform noise in [-amp, amp] to every reading.
func WithJitter(amp float64) Option {
	return optFunc(func(d *Device) error {
		if amp < 0 {
			return fmt.Errorf("%w: jitter %v", ezo.ErrOutOfRange, amp)
		}
		d.jitter = amp

		return nil
	})
}

// WithProcessingTime makes reads return StillProcessing until d has elapsed
// since the command was written.
func WithProcessingTime(p time.Duration) Option {
	return optFunc(func(d *Device) error {
		if p < 0 {
			return fmt.Errorf("%w: processing time %v", ezo.ErrOutOfRange, p)
		}
		d.processing = p

		return nil
	})
}

// WithCalibration preloads calibration rows.
func WithCalibration(rows ...string) Option {
	return optFunc(func(d *Device) error {
		d.calRows = ezo.ParseCalibrationBlob(rows)
		return nil
	})
}

// WithFirmware sets the firmware version reported by "i".
func WithFirmware(v string) Option {
	return optFunc(func(d *Device) error {
		d.firmware = v
		return nil
	})
}

// WithAddress sets the simulated I2C address.
func WithAddress(addr int) Option {
	return optFunc(func(d *Device) error {
		if err := ezo.ValidateAddress(addr); err != nil {
			return err
		}
		d.address = addr

		return nil
	})
}

// WithFrameSize sets the length of response frames.
func WithFrameSize(n int) Option {
	return optFunc(func(d *Device) error {
		if n < ezo.MinFrameSize || n > ezo.MaxFrameSize {
			return fmt.Errorf("%w: frame size %d", ezo.ErrOutOfRange, n)
		}
		d.frameSize = n

		return nil
	})
}

// WithLogger sets the logger of the device.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(d *Device) error {
		if l == nil {
			return errors.New("simulator: logger must not be nil")
		}
		d.logger = l

		return nil
	})
}
