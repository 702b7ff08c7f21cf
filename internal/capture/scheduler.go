package capture

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Schedule is a periodic task's answer to "when should I run next".
type Schedule struct {
	stop  bool
	after time.Duration
}

// Again asks to be called again after d.
func Again(d time.Duration) Schedule { return Schedule{after: d} }

// Terminate asks not to be called again.
var Terminate = Schedule{stop: true}

// Terminated reports whether the task asked to stop.
func (s Schedule) Terminated() bool { return s.stop }

// After returns the requested delay. It is meaningless when Terminated.
func (s Schedule) After() time.Duration { return s.after }

// Task is a periodic callback run on the scheduler goroutine.
type Task func(now time.Time) Schedule

// Registrar registers periodic tasks. Registering a name that is already
// present replaces the existing task.
type Registrar interface {
	Register(name string, task Task, first time.Duration)
}

// ErrSchedulerStopped is returned by Do once Run has returned.
var ErrSchedulerStopped = errors.New("capture: scheduler stopped")

type entry struct {
	task Task
	due  time.Time
}

// Scheduler runs periodic tasks and one-off calls serially on a single
// goroutine (Run). Everything that touches a Session goes through it.
type Scheduler struct {
	logger *slog.Logger

	mu    sync.Mutex
	tasks map[string]*entry

	wake    chan struct{}
	calls   chan func()
	stopped chan struct{}
}

// NewScheduler returns a scheduler. Call Run to start it.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger:  logger,
		tasks:   make(map[string]*entry),
		wake:    make(chan struct{}, 1),
		calls:   make(chan func()),
		stopped: make(chan struct{}),
	}
}

// Register implements Registrar. It is safe to call from any goroutine,
// including from inside a task or a Do callback.
func (s *Scheduler) Register(name string, task Task, first time.Duration) {
	s.mu.Lock()
	s.tasks[name] = &entry{task: task, due: time.Now().Add(first)}
	s.mu.Unlock()
	s.poke()
}

// Cancel removes a task and reports whether it was registered.
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	_, ok := s.tasks[name]
	delete(s.tasks, name)
	s.mu.Unlock()
	if ok {
		s.poke()
	}
	return ok
}

// Pending returns the registered task names, sorted.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Do runs fn on the scheduler goroutine and waits for it to return.
// It must not be called from inside a task or another Do callback.
func (s *Scheduler) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	call := func() {
		defer close(done)
		fn()
	}

	select {
	case s.calls <- call:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrSchedulerStopped
	}

	<-done
	return nil
}

// Run executes tasks and calls until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.stopped)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	s.logger.Debug("scheduler starting")
	for {
		var timerC <-chan time.Time
		if due, ok := s.nextDue(); ok {
			timer.Reset(time.Until(due))
			timerC = timer.C
		} else {
			timer.Stop()
		}

		select {
		case <-ctx.Done():
			s.logger.Debug("scheduler stopping (context canceled)")
			return nil

		case fn := <-s.calls:
			fn()

		case <-s.wake:

		case now := <-timerC:
			s.runDue(now)
		}
	}
}

func (s *Scheduler) nextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next time.Time
	found := false
	for _, e := range s.tasks {
		if !found || e.due.Before(next) {
			next = e.due
			found = true
		}
	}
	return next, found
}

func (s *Scheduler) runDue(now time.Time) {
	type due struct {
		name string
		e    *entry
	}
	var run []due

	s.mu.Lock()
	for name, e := range s.tasks {
		if !e.due.After(now) {
			run = append(run, due{name: name, e: e})
		}
	}
	s.mu.Unlock()

	for _, d := range run {
		next := d.e.task(now)

		s.mu.Lock()
		// The task may have been replaced or canceled while it ran.
		if cur, ok := s.tasks[d.name]; ok && cur == d.e {
			if next.Terminated() {
				delete(s.tasks, d.name)
			} else {
				d.e.due = now.Add(next.After())
			}
		}
		s.mu.Unlock()
	}
}
