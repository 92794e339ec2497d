package ezo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-ezo/logger"
)

// Commander issues commands to a single device.
//
// It is implemented by *Session, which locks the device for every call, and
// by the handle passed to Session.Exclusive, which runs under a lock already
// held.
type Commander interface {
	// Issue writes cmd, waits delay, reads one response frame and decodes it
	// according to format. A non-success status is returned as *RejectedError.
	Issue(ctx context.Context, cmd string, delay time.Duration, format ResponseFormat) (*Response, error)
	// Send writes cmd and waits delay without reading a response.
	Send(ctx context.Context, cmd string, delay time.Duration) error
}

// Session is the request/response channel to one device.
//
// The protocol carries no request identifiers, so a reply can only be matched
// to the write immediately preceding it. Session therefore allows exactly one
// command in flight: every Issue and Send holds the session lock from the
// write until the frame is read. Use Exclusive to keep the device across a
// multi-step exchange.
//
// The session never retries, never loops on StillProcessing, and never
// re-sends a command.
type Session struct {
	mu        sync.Mutex
	transport Transport
	cfg       *SessionConfig
	logger    logger.Logger
	closed    atomic.Bool
	metrics   SessionMetrics
}

var _ Commander = (*Session)(nil)

// NewSession creates a Session that owns transport.
func NewSession(transport Transport, cfg *SessionConfig) (*Session, error) {
	if transport == nil {
		return nil, ErrTransportNil
	}
	if cfg == nil {
		return nil, ErrSessionConfigNil
	}

	l := cfg.logger
	if cfg.address != 0 {
		l = l.With("address", cfg.address)
	}

	return &Session{
		transport: transport,
		cfg:       cfg,
		logger:    l,
	}, nil
}

// Config returns the session configuration.
func (s *Session) Config() *SessionConfig {
	return s.cfg
}

// GetLogger returns the session's logger.
func (s *Session) GetLogger() logger.Logger {
	return s.logger
}

// GetMetrics returns the session metrics.
func (s *Session) GetMetrics() *SessionMetrics {
	return &s.metrics
}

// Issue implements Commander.
func (s *Session) Issue(ctx context.Context, cmd string, delay time.Duration, format ResponseFormat) (*Response, error) {
	payload, err := EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exchange(ctx, cmd, payload, delay, format)
}

// Send implements Commander.
func (s *Session) Send(ctx context.Context, cmd string, delay time.Duration) error {
	payload, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeAndSettle(ctx, cmd, payload, delay)
}

// Exclusive runs fn while holding the device. Commands issued through the
// Commander passed to fn are not interleaved with any other caller.
//
// The Commander must not be used after fn returns.
func (s *Session) Exclusive(fn func(c Commander) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(lockedSession{s})
}

// Close closes the session and its transport. It waits for a command in
// flight to complete. Close is idempotent.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug("ezo: close session")

	return s.transport.Close()
}

// IsClosed reports whether Close has been called.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// writeAndSettle writes the command and suspends for the settle delay.
// The caller must hold s.mu.
func (s *Session) writeAndSettle(ctx context.Context, cmd string, payload []byte, delay time.Duration) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	s.logger.Debug("ezo: write command", "cmd", cmd, "delay", delay)

	s.metrics.incCommandCount()
	if err := s.transport.Write(ctx, payload); err != nil {
		s.metrics.incTransportErrCount()
		return fmt.Errorf("ezo: write %q: %w", cmd, err)
	}

	begin := time.Now()
	err := s.cfg.sleeper(ctx, delay)
	s.metrics.addSettle(time.Since(begin))
	if err != nil {
		return fmt.Errorf("ezo: settle after %q: %w", cmd, err)
	}

	return nil
}

// exchange performs one full round trip. The caller must hold s.mu.
func (s *Session) exchange(ctx context.Context, cmd string, payload []byte, delay time.Duration, format ResponseFormat) (*Response, error) {
	s.metrics.InflightGauge.Store(1)
	defer s.metrics.InflightGauge.Store(0)

	if err := s.writeAndSettle(ctx, cmd, payload, delay); err != nil {
		return nil, err
	}

	frame := make([]byte, s.cfg.frameSize)
	if err := s.transport.Read(ctx, frame); err != nil {
		s.metrics.incTransportErrCount()
		return nil, fmt.Errorf("ezo: read response to %q: %w", cmd, err)
	}

	resp, err := DecodeResponse(frame, format)
	if err != nil {
		s.metrics.incDecodeErrCount()
		s.logger.Warn("ezo: undecodable response", "cmd", cmd, "status_byte", frame[0], "error", err)

		return nil, fmt.Errorf("ezo: response to %q: %w", cmd, err)
	}
	s.metrics.incResponseCount()

	s.logger.Debug("ezo: response", "cmd", cmd, "status", resp.Status, "payload", string(resp.Payload))

	if !resp.IsSuccess() {
		s.metrics.incRejectedCount()
		return nil, &RejectedError{Command: cmd, Status: resp.Status}
	}

	return resp, nil
}

// lockedSession is the Commander handed to Exclusive callbacks.
type lockedSession struct {
	s *Session
}

func (l lockedSession) Issue(ctx context.Context, cmd string, delay time.Duration, format ResponseFormat) (*Response, error) {
	payload, err := EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}

	return l.s.exchange(ctx, cmd, payload, delay, format)
}

func (l lockedSession) Send(ctx context.Context, cmd string, delay time.Duration) error {
	payload, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}

	return l.s.writeAndSettle(ctx, cmd, payload, delay)
}
