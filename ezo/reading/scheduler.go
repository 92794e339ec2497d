// Package reading implements the continuous reading state machine shared by
// probes that can sample on their own schedule.
package reading

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/internal/task"
	"github.com/arloliu/go-ezo/logger"
)

// DefaultInterval is the firing period used when none is configured.
const DefaultInterval = time.Second

// Mode is the reading mode of a Scheduler.
type Mode int

const (
	// ModeManual takes readings only on explicit request.
	ModeManual Mode = iota
	// ModeContinuous takes a reading immediately and then once per interval.
	ModeContinuous
)

func (m Mode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeContinuous:
		return "continuous"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "manual" or "continuous".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "manual":
		return ModeManual, nil
	case "continuous":
		return ModeContinuous, nil
	default:
		return ModeManual, fmt.Errorf("%w: reading mode %q", ezo.ErrOutOfRange, s)
	}
}

// Func performs one reading. ctx is cancelled when the scheduler is closed.
type Func func(ctx context.Context)

const taskName = "reading"

// Scheduler fires a Func periodically while in ModeContinuous.
//
// Firings never overlap. When a firing is due while the previous one is still
// running, it is skipped and counted in Skipped.
type Scheduler struct {
	mu       sync.Mutex
	mode     Mode
	interval time.Duration
	closed   bool
	// generation of the armed interval task; bumped on every arm and disarm
	// so a tick of a stale task never fires.
	gen uint64

	fn      Func
	taskMgr *task.Manager
	logger  logger.Logger

	running atomic.Bool
	wg      sync.WaitGroup
	fired   atomic.Uint64
	skipped atomic.Uint64
}

// Option is a functional option for configuring a Scheduler.
type Option interface {
	apply(*Scheduler) error
}

type optFunc func(*Scheduler) error

func (f optFunc) apply(s *Scheduler) error { return f(s) }

// WithInterval sets the initial firing period. Must be positive.
func WithInterval(d time.Duration) Option {
	return optFunc(func(s *Scheduler) error {
		if d <= 0 {
			return fmt.Errorf("%w: interval %v must be positive", ezo.ErrOutOfRange, d)
		}
		s.interval = d

		return nil
	})
}

// WithMode sets the initial mode. ModeContinuous arms the scheduler as soon
// as it is created.
func WithMode(m Mode) Option {
	return optFunc(func(s *Scheduler) error {
		if m != ModeManual && m != ModeContinuous {
			return fmt.Errorf("%w: mode %v", ezo.ErrOutOfRange, m)
		}
		s.mode = m

		return nil
	})
}

// WithLogger sets the logger of the scheduler.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(s *Scheduler) error {
		if l == nil {
			return fmt.Errorf("reading: logger must not be nil")
		}
		s.logger = l

		return nil
	})
}

// NewScheduler creates a Scheduler firing fn. It starts in ModeManual unless
// WithMode says otherwise.
func NewScheduler(fn Func, opts ...Option) (*Scheduler, error) {
	if fn == nil {
		return nil, fmt.Errorf("reading: func must not be nil")
	}

	s := &Scheduler{
		interval: DefaultInterval,
		fn:       fn,
		logger:   logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "reading")
	s.taskMgr = task.NewManager(context.Background(), s.logger)

	if s.mode == ModeContinuous {
		if err := s.arm(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Mode returns the current mode.
func (s *Scheduler) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mode
}

// Interval returns the current firing period.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.interval
}

// SetMode switches the mode. Switching to ModeContinuous (re)arms the
// scheduler with an immediate firing; switching to ModeManual disarms it.
// A firing already running is not interrupted.
func (s *Scheduler) SetMode(m Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ezo.ErrUnsupportedOperation
	}

	switch m {
	case ModeContinuous:
		s.disarm()
		if err := s.arm(); err != nil {
			return err
		}
	case ModeManual:
		s.disarm()
	default:
		return fmt.Errorf("%w: mode %v", ezo.ErrOutOfRange, m)
	}

	s.logger.Debug("reading mode changed", "mode", m, "interval", s.interval)
	s.mode = m

	return nil
}

// SetInterval changes the firing period and re-arms with an immediate firing.
// It fails with ezo.ErrUnsupportedOperation in ModeManual, where an interval
// has no meaning, and leaves the scheduler untouched.
func (s *Scheduler) SetInterval(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ezo.ErrUnsupportedOperation
	}
	if s.mode != ModeContinuous {
		return fmt.Errorf("%w: cannot change interval in %s mode", ezo.ErrUnsupportedOperation, s.mode)
	}
	if d <= 0 {
		return fmt.Errorf("%w: interval %v must be positive", ezo.ErrOutOfRange, d)
	}

	prev := s.interval
	s.interval = d
	s.disarm()
	if err := s.arm(); err != nil {
		s.interval = prev
		return err
	}

	s.logger.Debug("reading interval changed", "interval", d)

	return nil
}

// Fired returns the number of firings that ran.
func (s *Scheduler) Fired() uint64 {
	return s.fired.Load()
}

// Skipped returns the number of firings skipped because the previous one was
// still running.
func (s *Scheduler) Skipped() uint64 {
	return s.skipped.Load()
}

// Armed reports whether periodic firing is active.
func (s *Scheduler) Armed() bool {
	return s.taskMgr.HasInterval(taskName)
}

// Close disarms the scheduler unconditionally, cancels a running firing and
// waits for it to return. Close is idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mode = ModeManual
	s.gen++
	s.mu.Unlock()

	s.taskMgr.Stop()
	s.taskMgr.Wait()
	s.wg.Wait()

	s.logger.Debug("reading scheduler closed", "fired", s.Fired(), "skipped", s.Skipped())

	return nil
}

// arm starts the interval task. The caller must hold s.mu, except in
// NewScheduler where s is not shared yet.
func (s *Scheduler) arm() error {
	s.gen++
	gen := s.gen

	return s.taskMgr.StartInterval(taskName, func(ctx context.Context) bool {
		return s.tick(ctx, gen)
	}, s.interval, true)
}

// disarm stops the interval task if armed. The caller must hold s.mu.
func (s *Scheduler) disarm() {
	s.gen++
	if s.taskMgr.HasInterval(taskName) {
		_ = s.taskMgr.StopInterval(taskName)
	}
}

// tick runs on the interval task goroutine. The firing itself runs on its own
// goroutine so the ticker keeps its period and overlapping firings can be
// detected and skipped.
//
// gen is the generation the task was armed with. A tick from a task that has
// since been disarmed terminates it without firing; the check and the start of
// the firing happen under s.mu, so no firing starts after SetMode(ModeManual),
// SetInterval or Close returned.
func (s *Scheduler) tick(ctx context.Context, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return false
	}

	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Debug("reading skipped, previous still running")

		return true
	}

	s.fired.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in reading func", "panic", r)
			}
		}()

		s.fn(ctx)
	}()

	return true
}
