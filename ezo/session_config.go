package ezo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-ezo/internal/pool"
	"github.com/arloliu/go-ezo/logger"
)

// Settle delays shared by all EZO circuits. Probe packages define their own
// delays for measurement commands.
const (
	// ProcessingDelay is the settle delay of configuration and query commands.
	ProcessingDelay = 300 * time.Millisecond
	// CalibrationDelay is the settle delay of calibration point commands.
	CalibrationDelay = 900 * time.Millisecond
)

// Frame size limits.
const (
	MinFrameSize = 2
	MaxFrameSize = 256
)

// Sleeper suspends the caller for d. It must not return nil before d has
// fully elapsed; it may return early with an error when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SessionConfig holds the configuration of a Session.
type SessionConfig struct {
	address   int
	frameSize int
	sleeper   Sleeper
	logger    logger.Logger
}

// NewSessionConfig creates a session configuration.
//
// opts are functional options applied in order; see the With* functions.
func NewSessionConfig(opts ...SessionOption) (*SessionConfig, error) {
	cfg := &SessionConfig{
		frameSize: DefaultFrameSize,
		sleeper:   pool.Wait,
		logger:    logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Address returns the configured bus address, or 0 when none was set.
func (cfg *SessionConfig) Address() int { return cfg.address }

// FrameSize returns the length of a response frame.
func (cfg *SessionConfig) FrameSize() int { return cfg.frameSize }

// GetLogger returns the configured logger.
func (cfg *SessionConfig) GetLogger() logger.Logger { return cfg.logger }

// SessionOption is a functional option for configuring a SessionConfig.
type SessionOption interface {
	apply(*SessionConfig) error
}

type sessionOptFunc func(*SessionConfig) error

func (f sessionOptFunc) apply(cfg *SessionConfig) error { return f(cfg) }

// WithAddress records the I2C address of the device. It is used for logging
// and reported by Device.Address. Must be in [1, 127].
func WithAddress(addr int) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if err := ValidateAddress(addr); err != nil {
			return err
		}
		cfg.address = addr

		return nil
	})
}

// WithFrameSize sets the response frame length, status byte included.
// Defaults to 40.
func WithFrameSize(n int) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if n < MinFrameSize || n > MaxFrameSize {
			return fmt.Errorf("%w: frame size %d not in [%d, %d]", ErrOutOfRange, n, MinFrameSize, MaxFrameSize)
		}
		cfg.frameSize = n

		return nil
	})
}

// WithSleeper replaces the settle delay wait. Mostly useful in tests.
func WithSleeper(s Sleeper) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if s == nil {
			return errors.New("ezo: sleeper must not be nil")
		}
		cfg.sleeper = s

		return nil
	})
}

// WithLogger sets the logger of the session.
func WithLogger(l logger.Logger) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if l == nil {
			return errors.New("ezo: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
