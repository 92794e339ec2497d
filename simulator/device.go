// Package simulator provides an in-memory EZO circuit that implements
// ezo.Transport.
//
// The simulated device keeps the state a real circuit keeps between
// commands: reading value, calibration rows, export cursor, LED, protocol
// lock, temperature scale and compensation. It answers the same command set
// with the same response layout, which makes it usable as a stand-in for
// hardware in tests, examples and the ezoctl --sim mode.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// ErrClosed is returned by Write and Read after Close.
var ErrClosed = errors.New("simulator: device closed")

// Kind selects the circuit to simulate.
type Kind int

const (
	KindPH Kind = iota
	KindORP
	KindRTD
)

func (k Kind) String() string {
	switch k {
	case KindPH:
		return "pH"
	case KindORP:
		return "ORP"
	case KindRTD:
		return "RTD"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "ph":
		return KindPH, nil
	case "orp":
		return KindORP, nil
	case "rtd":
		return KindRTD, nil
	default:
		return 0, fmt.Errorf("simulator: unknown kind %q", s)
	}
}

// Reply is the response a handler stages for the next read.
type Reply struct {
	Status  ezo.ResponseStatus
	Payload string
	// Silent commands stage nothing; the next read yields NoDataToSend.
	Silent bool
}

func ok(payload string) Reply { return Reply{Status: ezo.StatusSuccess, Payload: payload} }

func syntaxError() Reply { return Reply{Status: ezo.StatusSyntaxError} }

func silent() Reply { return Reply{Silent: true} }

// Handler answers one command. args holds the comma separated arguments
// following the command name. Handlers run while the device is locked and
// must not call methods of the Device.
type Handler func(args []string) Reply

// Device is a simulated EZO circuit.
type Device struct {
	mu     sync.Mutex
	kind   Kind
	logger logger.Logger

	handlers *xsync.MapOf[string, Handler]

	frameSize  int
	processing time.Duration
	jitter     float64
	writeFault error
	closed     bool

	pending []byte
	readyAt time.Time
	history []string

	firmware  string
	address   int
	baud      int
	restart   ezo.RestartReason
	vcc       float64
	value     float64
	tempComp  float64
	scale     byte
	slope     [2]float64
	led       bool
	plock     bool
	asleep    bool
	calRows   [][]byte
	cursor    int
	importing bool
}

// New creates a simulated device of the given kind.
func New(kind Kind, opts ...Option) (*Device, error) {
	d := &Device{
		kind:      kind,
		logger:    logger.GetLogger(),
		handlers:  xsync.NewMapOf[string, Handler](),
		frameSize: ezo.DefaultFrameSize,
		firmware:  "2.16",
	}
	if err := d.reset(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt.apply(d); err != nil {
			return nil, err
		}
	}
	d.logger = d.logger.With("sim", d.kind.String())

	d.registerCommon()
	switch kind {
	case KindPH:
		d.registerPH()
	case KindORP:
		d.registerORP()
	case KindRTD:
		d.registerRTD()
	}

	return d, nil
}

func (d *Device) reset() error {
	d.restart = ezo.RestartPoweredOff
	d.vcc = 5.038
	d.tempComp = 25
	d.scale = 'c'
	d.slope = [2]float64{99.7, 100.3}
	d.led = true
	d.plock = false
	d.asleep = false
	d.calRows = nil
	d.cursor = 0
	d.importing = false

	switch d.kind {
	case KindPH:
		d.address = 0x63
		d.value = 7
	case KindORP:
		d.address = 0x62
		d.value = 225
	case KindRTD:
		d.address = 0x66
		d.value = 25
	default:
		return fmt.Errorf("simulator: unknown kind %d", int(d.kind))
	}

	return nil
}

// Kind returns the simulated circuit kind.
func (d *Device) Kind() Kind { return d.kind }

// Handle registers or replaces the handler of a command. name is matched
// case-insensitively against the text before the first comma.
func (d *Device) Handle(name string, h Handler) {
	d.handlers.Store(strings.ToLower(name), h)
}

// Write implements ezo.Transport.
func (d *Device) Write(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.writeFault != nil {
		return d.writeFault
	}

	cmd := string(p)
	d.history = append(d.history, cmd)
	d.asleep = false

	name, args := splitCommand(cmd)
	if name != "import" {
		d.importing = false
	}

	reply := syntaxError()
	if h, found := d.handlers.Load(name); found {
		reply = h(args)
	}

	d.logger.Debug("simulator: command", "cmd", cmd, "status", reply.Status, "payload", reply.Payload)

	if reply.Silent {
		d.pending = nil
		return nil
	}
	d.pending = d.buildFrame(reply)
	d.readyAt = time.Now().Add(d.processing)

	return nil
}

// Read implements ezo.Transport.
func (d *Device) Read(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	clear(p)
	if len(p) == 0 {
		return nil
	}

	switch {
	case d.pending == nil || d.asleep:
		p[0] = byte(ezo.StatusNoDataToSend)
	case time.Now().Before(d.readyAt):
		p[0] = byte(ezo.StatusStillProcessing)
	default:
		copy(p, d.pending)
		d.pending = nil
	}

	return nil
}

// Close implements ezo.Transport.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true

	return nil
}

// SetValue sets the value reported by the next readings. For RTD circuits
// the value is in degree Celsius.
func (d *Device) SetValue(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = v
}

// InjectWriteFault makes every following Write fail with err. A nil err
// clears the fault.
func (d *Device) InjectWriteFault(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeFault = err
}

// History returns the commands received so far.
func (d *Device) History() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.history...)
}

// Calibration returns a copy of the stored calibration rows.
func (d *Device) Calibration() ezo.CalibrationBlob {
	d.mu.Lock()
	defer d.mu.Unlock()

	return ezo.CalibrationBlob(d.calRows).Clone()
}

// Address returns the simulated I2C address.
func (d *Device) Address() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.address
}

// Baud returns the rate of the last accepted UART switch, or 0.
func (d *Device) Baud() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.baud
}

func (d *Device) buildFrame(r Reply) []byte {
	f := make([]byte, d.frameSize)
	f[0] = byte(r.Status)
	copy(f[1:], r.Payload)

	return f
}

// reading returns the current value with the configured jitter applied.
func (d *Device) reading() float64 {
	v := d.value
	if d.jitter > 0 {
		v += (rand.Float64()*2 - 1) * d.jitter //nolint:gosec
	}

	return v
}

func splitCommand(cmd string) (string, []string) {
	name, rest, found := strings.Cut(cmd, ",")
	name = strings.ToLower(strings.TrimSpace(name))
	if !found {
		return name, nil
	}

	return name, strings.Split(rest, ",")
}
