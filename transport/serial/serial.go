// Package serial adapts an EZO circuit in UART mode to ezo.Transport.
//
// In UART mode a circuit takes carriage return terminated commands and
// answers with carriage return terminated lines: zero or more data lines
// followed by a response code ("*OK" or "*ER"). Unsolicited notices such as
// "*WA" (wake up) or "*RS" (reset) may appear between them.
//
// Read collects the lines of one answer and synthesizes the frame an I2C
// circuit would have returned, so the same Session and probe code works for
// both buses:
//
//	*OK or a data line   -> StatusSuccess, data line as payload
//	*ER                  -> StatusSyntaxError
//	nothing before timeout -> StatusNoDataToSend
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/logger"
	goserial "go.bug.st/serial"
)

const (
	// DefaultBaudRate is the factory UART rate of EZO circuits.
	DefaultBaudRate = 9600
	// DefaultResponseTimeout bounds the wait for a complete answer.
	DefaultResponseTimeout = time.Second
	// pollInterval is the port read timeout between deadline checks.
	pollInterval = 20 * time.Millisecond

	terminator = '\r'
	maxLine    = 256
)

var (
	// ErrPortNil indicates that a nil Port was provided.
	ErrPortNil = errors.New("serial: port is nil")
	// ErrLineTooLong indicates a line without terminator exceeding the line limit.
	ErrLineTooLong = errors.New("serial: line too long")
	// ErrFrameOverflow indicates an answer that does not fit the read buffer.
	ErrFrameOverflow = errors.New("serial: answer exceeds read buffer")
)

// Port is the subset of go.bug.st/serial.Port used by the transport.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

var _ Port = (goserial.Port)(nil)

// Transport is an ezo.Transport over a serial port.
type Transport struct {
	mu            sync.Mutex
	port          Port
	timeout       time.Duration
	responseCodes bool
	logger        logger.Logger
	pending       []byte
}

var _ ezo.Transport = (*Transport)(nil)

// Option is a functional option for configuring a Transport.
type Option interface {
	apply(*Transport) error
}

type optFunc func(*Transport) error

func (f optFunc) apply(t *Transport) error { return f(t) }

// WithResponseTimeout bounds the wait for an answer after the settle delay.
func WithResponseTimeout(d time.Duration) Option {
	return optFunc(func(t *Transport) error {
		if d <= 0 {
			return fmt.Errorf("%w: response timeout %v", ezo.ErrOutOfRange, d)
		}
		t.timeout = d

		return nil
	})
}

// WithResponseCodes declares whether the circuit sends "*OK"/"*ER" after each
// answer ("RESPONSE,1", the factory setting). With response codes disabled the
// first data line completes an answer.
func WithResponseCodes(enabled bool) Option {
	return optFunc(func(t *Transport) error {
		t.responseCodes = enabled
		return nil
	})
}

// WithLogger sets the logger of the transport.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(t *Transport) error {
		if l == nil {
			return errors.New("serial: logger must not be nil")
		}
		t.logger = l

		return nil
	})
}

// Open opens the named serial port at baud and wraps it in a Transport.
func Open(name string, baud int, opts ...Option) (*Transport, error) {
	mode := &goserial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   goserial.NoParity,
		StopBits: goserial.OneStopBit,
	}

	port, err := goserial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", name, err)
	}

	t, err := New(port, opts...)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	t.logger = t.logger.With("port", name, "baud", baud)

	return t, nil
}

// New wraps an open port. The transport takes ownership of port.
func New(port Port, opts ...Option) (*Transport, error) {
	if port == nil {
		return nil, ErrPortNil
	}

	t := &Transport{
		port:          port,
		timeout:       DefaultResponseTimeout,
		responseCodes: true,
		logger:        logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(t); err != nil {
			return nil, err
		}
	}

	if err := port.SetReadTimeout(pollInterval); err != nil {
		return nil, fmt.Errorf("serial: set read timeout: %w", err)
	}

	return t, nil
}

// Write discards unread input and sends p followed by a carriage return.
func (t *Transport) Write(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = t.pending[:0]
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("serial: reset input: %w", err)
	}

	buf := make([]byte, 0, len(p)+1)
	buf = append(buf, p...)
	buf = append(buf, terminator)
	if _, err := t.port.Write(buf); err != nil {
		return fmt.Errorf("serial: write: %w", err)
	}

	return nil
}

// Read collects one answer and writes the synthesized frame into p.
func (t *Transport) Read(ctx context.Context, p []byte) error {
	if len(p) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	deadline := time.Now().Add(t.timeout)
	status := ezo.StatusNoDataToSend
	data := ""

	for {
		line, err := t.readLine(ctx, deadline)
		if errors.Is(err, errDeadline) {
			break
		}
		if err != nil {
			return err
		}

		done := false
		switch {
		case line == "":
			continue
		case line == "*OK":
			status = ezo.StatusSuccess
			done = true
		case line == "*ER":
			status = ezo.StatusSyntaxError
			done = true
		case strings.EqualFold(line, ezo.ExportDoneSentinel):
			data = line
			status = ezo.StatusSuccess
			done = !t.responseCodes
		case strings.HasPrefix(line, "*"):
			t.logger.Debug("serial: device notice", "notice", line)
		default:
			data = line
			status = ezo.StatusSuccess
			done = !t.responseCodes
		}

		if done {
			break
		}
	}

	if len(data) > len(p)-1 {
		return fmt.Errorf("%w: %d bytes, room for %d", ErrFrameOverflow, len(data), len(p)-1)
	}

	clear(p)
	p[0] = byte(status)
	copy(p[1:], data)

	return nil
}

// Close closes the port.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.port.Close()
}

var errDeadline = errors.New("serial: response deadline")

// readLine returns the next terminated line without its terminator.
// The caller must hold t.mu.
func (t *Transport) readLine(ctx context.Context, deadline time.Time) (string, error) {
	var chunk [64]byte

	for {
		if i := indexTerminator(t.pending); i >= 0 {
			line := strings.Trim(string(t.pending[:i]), "\n ")
			t.pending = append(t.pending[:0], t.pending[i+1:]...)

			return line, nil
		}
		if len(t.pending) > maxLine {
			t.pending = t.pending[:0]
			return "", ErrLineTooLong
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !time.Now().Before(deadline) {
			return "", errDeadline
		}

		n, err := t.port.Read(chunk[:])
		if n > 0 {
			t.pending = append(t.pending, chunk[:n]...)
		}
		if err != nil {
			return "", fmt.Errorf("serial: read: %w", err)
		}
	}
}

func indexTerminator(b []byte) int {
	for i, c := range b {
		if c == terminator {
			return i
		}
	}

	return -1
}
