// Package task manages the goroutines behind periodic device work.
package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-ezo/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// TaskFunc performs one unit of work. It returns true to keep the task
// scheduled, or false to terminate it.
type TaskFunc func(ctx context.Context) bool

// Manager manages the lifecycle of goroutines (tasks).
//
// The Manager uses a context.Context to manage the lifecycle of its
// goroutines. When the context is canceled, all running goroutines are
// signaled to stop. Wait blocks until all of them have terminated.
//
// Example Usage:
//
//	mgr := task.NewManager(ctx, logger)
//
//	// run fn now, then every second
//	_ = mgr.StartInterval("reading", fn, time.Second, true)
//
//	// disarm without waiting for an in-flight run
//	_ = mgr.StopInterval("reading")
//
//	// terminate everything
//	mgr.Stop()
//	mgr.Wait()
type Manager struct {
	pctx      context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    logger.Logger
	count     atomic.Int32
	intervals *xsync.MapOf[string, *intervalTask]
	mu        sync.RWMutex // protect ctx and cancel
	taskMu    sync.RWMutex // protect task creation during Wait()
}

// intervalTask is a single armed interval. Each one owns its own ticker and
// stop channel so it can be disarmed without touching its siblings.
type intervalTask struct {
	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
}

func (it *intervalTask) halt() {
	it.once.Do(func() {
		it.ticker.Stop()
		close(it.stop)
	})
}

func (it *intervalTask) halted() bool {
	select {
	case <-it.stop:
		return true
	default:
		return false
	}
}

// NewManager creates a new Manager using ctx as the parent context.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	if l == nil {
		l = logger.GetLogger()
	}
	mgr := &Manager{
		pctx:      ctx,
		logger:    l,
		intervals: xsync.NewMapOf[string, *intervalTask](),
	}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

func (mgr *Manager) getContext() context.Context {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	return mgr.ctx
}

// StartInterval starts a goroutine that executes taskFunc every interval.
//
// If runNow is true, taskFunc is executed once as soon as the goroutine
// starts, before the first tick. Runs of one interval task never overlap:
// ticks that arrive while taskFunc is running are coalesced by the ticker.
func (mgr *Manager) StartInterval(name string, taskFunc TaskFunc, interval time.Duration, runNow bool) error {
	mgr.logger.Debug("StartInterval task", "name", name, "interval", interval, "runNow", runNow)

	if interval <= 0 {
		return fmt.Errorf("invalid interval: %v", interval)
	}

	starter, err := mgr.newTaskStarter(name)
	if err != nil {
		return err
	}

	it := &intervalTask{ticker: time.NewTicker(interval), stop: make(chan struct{})}
	if _, loaded := mgr.intervals.LoadOrStore(name, it); loaded {
		it.ticker.Stop()
		return fmt.Errorf("interval task %s already exists", name)
	}

	ctx := starter.ctx
	starter.startTask(func() {
		defer func() {
			it.halt()
			// only forget the entry if it was not replaced by a newer task
			mgr.intervals.Compute(name, func(cur *intervalTask, loaded bool) (*intervalTask, bool) {
				return cur, !loaded || cur == it
			})
		}()

		if runNow && !mgr.callWithRecoverBool(ctx, name, taskFunc) {
			mgr.logger.Debug("interval task terminated by runNow", "name", name)
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-it.stop:
				return
			case <-it.ticker.C:
				if it.halted() {
					return
				}
				mgr.logger.Debug("execute interval func", "name", name)
				if !mgr.callWithRecoverBool(ctx, name, taskFunc) {
					return
				}
			}
		}
	})

	if err := starter.waitForStart(); err != nil {
		it.halt()
		mgr.intervals.Delete(name)
		return err
	}

	return nil
}

// StopInterval disarms the interval task with the given name.
//
// A run already in progress is allowed to finish; no further runs start.
func (mgr *Manager) StopInterval(name string) error {
	it, ok := mgr.intervals.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("interval task %s not found", name)
	}
	it.halt()
	mgr.logger.Debug("StopInterval task", "name", name)

	return nil
}

// HasInterval reports whether an interval task with the given name is armed.
func (mgr *Manager) HasInterval(name string) bool {
	_, ok := mgr.intervals.Load(name)
	return ok
}

// callWithRecoverBool calls a task function with panic protection.
// A panicking task is treated as one that asked to keep running.
func (mgr *Manager) callWithRecoverBool(ctx context.Context, name string, fn TaskFunc) (keep bool) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
			keep = true
		}
	}()

	return fn(ctx)
}

// Stop disarms all interval tasks and signals all running goroutines.
func (mgr *Manager) Stop() {
	mgr.intervals.Range(func(name string, it *intervalTask) bool {
		it.halt()
		return true
	})
	mgr.intervals.Clear()

	mgr.mu.Lock()
	if mgr.cancel != nil {
		mgr.cancel()
	}
	mgr.mu.Unlock()
}

// Wait waits for all goroutines to terminate, then re-arms the manager so
// new tasks can be started.
func (mgr *Manager) Wait() {
	mgr.taskMu.Lock()
	defer mgr.taskMu.Unlock()

	mgr.wg.Wait()

	mgr.mu.Lock()
	mgr.ctx, mgr.cancel = context.WithCancel(mgr.pctx)
	mgr.mu.Unlock()
}

// TaskCount returns the number of currently running goroutines.
func (mgr *Manager) TaskCount() int {
	return int(mgr.count.Load())
}

type taskStarter struct {
	mgr     *Manager
	ctx     context.Context
	name    string
	started chan error
}

func (mgr *Manager) newTaskStarter(name string) (*taskStarter, error) {
	ctx := mgr.getContext()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("task manager already stopped")
	default:
	}

	return &taskStarter{
		mgr:     mgr,
		ctx:     ctx,
		name:    name,
		started: make(chan error, 1),
	}, nil
}

func (s *taskStarter) startTask(taskBody func()) {
	s.mgr.taskMu.RLock()
	defer s.mgr.taskMu.RUnlock()

	s.mgr.wg.Add(1)

	go func() {
		defer s.mgr.wg.Done()

		s.mgr.count.Add(1)
		s.started <- nil

		defer func() {
			s.mgr.count.Add(-1)
			s.mgr.logger.Debug("task terminated", "name", s.name, "task_count", s.mgr.TaskCount())
		}()

		taskBody()
	}()
}

func (s *taskStarter) waitForStart() error {
	select {
	case err := <-s.started:
		if err != nil {
			return fmt.Errorf("failed to start %s: %w", s.name, err)
		}

		return nil

	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for %s to start", s.name)

	case <-s.ctx.Done():
		return fmt.Errorf("context cancelled while starting %s", s.name)
	}
}
